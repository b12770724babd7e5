// Package plagiarism estimates plagiarism risk from retrieval similarity alone.
// The assignment text is accepted but not inspected.
package plagiarism

import (
	"math"

	"assignhelper/internal/models"
)

const (
	scale         = 1.5
	flagThreshold = 0.7
	sourceGate    = 0.6
	examined      = 2
	FlagReason    = "High similarity with academic source"
)

// Assess scores sources as min(max_similarity*1.5, 1). When the unrounded
// score exceeds 0.7, the first two ranked sources above 0.6 are flagged.
func Assess(text string, sources []models.RankedSource) models.PlagiarismAssessment {
	out := models.PlagiarismAssessment{FlaggedSections: []models.FlaggedSection{}}
	if len(sources) == 0 {
		return out
	}

	maxSim := 0.0
	for _, s := range sources {
		if s.Similarity > maxSim {
			maxSim = s.Similarity
		}
	}
	score := math.Max(0, math.Min(maxSim*scale, 1.0))

	if score > flagThreshold {
		for i, s := range sources {
			if i >= examined {
				break
			}
			if s.Similarity > sourceGate {
				out.FlaggedSections = append(out.FlaggedSections, models.FlaggedSection{
					SourceTitle: s.Title,
					Similarity:  s.Similarity,
					Reason:      FlagReason,
				})
			}
		}
	}
	out.Score = math.Round(score*100) / 100
	return out
}
