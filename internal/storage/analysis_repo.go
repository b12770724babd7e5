package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"assignhelper/internal/models"
)

type AnalysisRepo struct {
	db *DB
}

func NewAnalysisRepo(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

// Upsert stores the analysis for an assignment, replacing any earlier run.
func (r *AnalysisRepo) Upsert(ctx context.Context, res models.AnalysisResult) (int64, error) {
	cols, err := encodeAnalysisColumns(res)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.Pool.QueryRow(ctx, `
INSERT INTO analysis_results (assignment_id, suggested_sources, plagiarism_score, flagged_sections, analysis, issues, analyzed_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (assignment_id)
DO UPDATE SET
  suggested_sources = EXCLUDED.suggested_sources,
  plagiarism_score = EXCLUDED.plagiarism_score,
  flagged_sections = EXCLUDED.flagged_sections,
  analysis = EXCLUDED.analysis,
  issues = EXCLUDED.issues,
  analyzed_at = NOW()
RETURNING id`,
		res.AssignmentID, cols[0], res.PlagiarismScore, cols[1], cols[2], cols[3]).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert analysis: %w", err)
	}
	return id, nil
}

func (r *AnalysisRepo) GetByAssignment(ctx context.Context, assignmentID int64) (models.AnalysisResult, error) {
	var (
		res                          models.AnalysisResult
		sources, flagged, rec, issue []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, assignment_id, suggested_sources, plagiarism_score, flagged_sections, analysis, issues, analyzed_at
FROM analysis_results
WHERE assignment_id=$1`, assignmentID).
		Scan(&res.ID, &res.AssignmentID, &sources, &res.PlagiarismScore, &flagged, &rec, &issue, &res.AnalyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AnalysisResult{}, fmt.Errorf("analysis for assignment %d: %w", assignmentID, models.ErrNotFound)
	}
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("get analysis: %w", err)
	}
	if err := decodeAnalysisColumns(&res, sources, flagged, rec, issue); err != nil {
		return models.AnalysisResult{}, err
	}
	return res, nil
}

func encodeAnalysisColumns(res models.AnalysisResult) ([4][]byte, error) {
	var out [4][]byte
	if res.SuggestedSources == nil {
		res.SuggestedSources = []models.RankedSource{}
	}
	if res.FlaggedSections == nil {
		res.FlaggedSections = []models.FlaggedSection{}
	}
	if res.Issues == nil {
		res.Issues = []string{}
	}
	for i, v := range []any{res.SuggestedSources, res.FlaggedSections, res.Analysis, res.Issues} {
		b, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("encode analysis column: %w", err)
		}
		out[i] = b
	}
	return out, nil
}

func decodeAnalysisColumns(res *models.AnalysisResult, sources, flagged, rec, issues []byte) error {
	targets := []struct {
		raw []byte
		dst any
	}{
		{sources, &res.SuggestedSources},
		{flagged, &res.FlaggedSections},
		{rec, &res.Analysis},
		{issues, &res.Issues},
	}
	for _, t := range targets {
		if len(t.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(t.raw, t.dst); err != nil {
			return fmt.Errorf("decode analysis column: %w", err)
		}
	}
	return nil
}
