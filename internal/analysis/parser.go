package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"assignhelper/internal/models"
)

// Fallback is the record returned whenever synthesis cannot produce a parsed result.
func Fallback() models.AnalysisRecord {
	return models.AnalysisRecord{
		Topic:                   "Unknown",
		AcademicLevel:           models.LevelUndergraduate,
		KeyThemes:               []string{},
		ResearchQuestions:       []string{},
		ResearchSuggestions:     "Analysis unavailable",
		CitationRecommendations: "APA",
		PlagiarismRiskAreas:     []string{},
	}
}

// ParseRecord decodes a model response into an AnalysisRecord. A single
// markdown code fence around the object is tolerated.
func ParseRecord(raw string) (models.AnalysisRecord, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return models.AnalysisRecord{}, fmt.Errorf("empty response")
	}
	var rec *models.AnalysisRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("decode analysis json: %w", err)
	}
	if rec == nil {
		return models.AnalysisRecord{}, fmt.Errorf("decode analysis json: not an object")
	}
	return normalize(*rec), nil
}

func normalize(rec models.AnalysisRecord) models.AnalysisRecord {
	rec.Topic = strings.TrimSpace(rec.Topic)
	switch level := strings.ToLower(strings.TrimSpace(rec.AcademicLevel)); level {
	case models.LevelUndergraduate, models.LevelGraduate, models.LevelPhD:
		rec.AcademicLevel = level
	default:
		rec.AcademicLevel = models.LevelUndergraduate
	}
	rec.KeyThemes = nonNil(rec.KeyThemes)
	rec.ResearchQuestions = nonNil(rec.ResearchQuestions)
	rec.PlagiarismRiskAreas = nonNil(rec.PlagiarismRiskAreas)
	return rec
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
