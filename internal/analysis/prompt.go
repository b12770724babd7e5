package analysis

import (
	"fmt"
	"strings"

	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
)

const (
	SystemPrompt = "You are an academic advisor helping students improve their assignments."

	maxTextChars     = 4000
	maxSources       = 3
	maxAbstractChars = 500
)

const schemaInstruction = `Please provide analysis in the following JSON format:
{
  "topic": "main topic of assignment",
  "academic_level": "undergraduate|graduate|phd",
  "key_themes": ["theme1", "theme2", "theme3"],
  "research_questions": ["question1", "question2"],
  "research_suggestions": "detailed suggestions for improvement",
  "citation_recommendations": "APA|MLA|Chicago etc.",
  "plagiarism_risk_areas": ["section1", "section2"]
}
Respond with the JSON object only.`

// BuildPrompt renders the analysis prompt from the first 4000 characters of
// text and at most three sources.
func BuildPrompt(text string, sources []models.RankedSource) string {
	var b strings.Builder
	b.WriteString("Analyze the following student assignment and provide comprehensive feedback.\n\n")
	b.WriteString("Assignment text:\n")
	b.WriteString(embedding.Truncate(text, maxTextChars))
	b.WriteString("\n\nRelevant academic sources:\n")
	b.WriteString(sourcesContext(sources))
	b.WriteString("\n\n")
	b.WriteString(schemaInstruction)
	return b.String()
}

func sourcesContext(sources []models.RankedSource) string {
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	if len(sources) == 0 {
		return "(none found)"
	}
	parts := make([]string, 0, len(sources))
	for i, s := range sources {
		year := "n.d."
		if s.PublicationYear != nil {
			year = fmt.Sprintf("%d", *s.PublicationYear)
		}
		parts = append(parts, fmt.Sprintf("Source %d: %s by %s (%s)\nAbstract: %s...",
			i+1, s.Title, s.Authors, year, embedding.Truncate(s.Abstract, maxAbstractChars)))
	}
	return strings.Join(parts, "\n\n")
}
