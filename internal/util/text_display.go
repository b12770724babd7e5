package util

import (
	"sort"
	"strings"
	"unicode"
)

// DisplaySnippet cleans s for terminal or JSON display and caps it at maxRunes.
func DisplaySnippet(s string, maxRunes int) string {
	return cleanForDisplay(s, maxRunes)
}

// DisplayEvidenceSnippet picks the abstract sentences that best match a search
// query. Sentences are ranked by how many distinct query terms they contain;
// ties keep abstract order. The second best sentence is appended when it also
// matches.
func DisplayEvidenceSnippet(abstract, query string, maxRunes int) string {
	abstract = cleanForDisplay(abstract, 4000)
	if abstract == "" {
		return ""
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return cleanForDisplay(abstract, maxRunes)
	}
	sentences := splitSentences(abstract)
	if len(sentences) == 0 {
		return cleanForDisplay(abstract, maxRunes)
	}

	type ranked struct {
		text string
		hits int
	}
	list := make([]ranked, 0, len(sentences))
	for _, s := range sentences {
		low := strings.ToLower(s)
		hits := 0
		for _, term := range terms {
			if strings.Contains(low, term) {
				hits++
			}
		}
		list = append(list, ranked{text: s, hits: hits})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].hits > list[j].hits })

	best := list[0].text
	if len(list) > 1 && list[1].hits > 0 {
		best += " " + list[1].text
	}
	return cleanForDisplay(best, maxRunes)
}

// splitSentences breaks on terminal punctuation followed by a space or the
// end of text, so decimals like "0.85" and "et al." mid-sentence stay intact
// unless followed by whitespace.
func splitSentences(s string) []string {
	runes := []rune(s)
	out := make([]string, 0, 8)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && strings.HasSuffix(strings.ToLower(string(runes[start:i])), " al") {
			continue
		}
		if x := strings.TrimSpace(string(runes[start : i+1])); x != "" {
			out = append(out, x)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

var queryStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {},
	"why": {}, "which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {},
	"from": {}, "about": {}, "into": {}, "does": {}, "paper": {}, "papers": {}, "study": {},
	"studies": {}, "research": {}, "source": {}, "sources": {},
}

func queryTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(cleanForDisplay(s, 2000)))
	seen := map[string]struct{}{}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`")
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := queryStopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func cleanForDisplay(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 420
	}
	s = SanitizeText(s)
	s = splitJoinedWords(s)
	s = strings.Join(strings.Fields(s), " ")

	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsPrint(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			out = append(out, r)
		}
	}
	runes := []rune(strings.TrimSpace(string(out)))
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return string(runes)
}

// splitJoinedWords reinserts spaces PDF extraction tends to drop between a
// lowercase and an uppercase letter ("learningModels").
func splitJoinedWords(s string) string {
	in := []rune(s)
	if len(in) < 2 {
		return s
	}
	out := make([]rune, 0, len(in)+len(in)/8)
	out = append(out, in[0])
	for i := 1; i < len(in); i++ {
		if unicode.IsLower(in[i-1]) && unicode.IsUpper(in[i]) {
			out = append(out, ' ')
		}
		out = append(out, in[i])
	}
	return string(out)
}
