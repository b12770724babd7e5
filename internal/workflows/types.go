package workflows

import (
	"assignhelper/internal/catalog"
	"assignhelper/internal/pipeline"
)

type AssignmentAnalysisInput struct {
	AssignmentID int64 `json:"assignment_id"`
}

type AnalysisStatus struct {
	AssignmentID int64             `json:"assignment_id"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	FailReason   string            `json:"fail_reason,omitempty"`
	Steps        map[string]string `json:"steps"`
	Issues       []pipeline.Issue  `json:"issues,omitempty"`
	AnalysisID   int64             `json:"analysis_id,omitempty"`
}

type SourceIngestInput struct {
	Sources        []catalog.SourceInput `json:"sources"`
	BatchSize      int                   `json:"batch_size"`
	DeferEmbedding bool                  `json:"defer_embedding"`
}

type IngestProgress struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Batches    int `json:"batches"`
}

type BackfillEmbeddingsInput struct {
	BatchSize  int `json:"batch_size"`
	MaxBatches int `json:"max_batches"`
}
