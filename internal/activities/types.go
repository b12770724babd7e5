package activities

import (
	"assignhelper/internal/catalog"
	"assignhelper/internal/models"
	"assignhelper/internal/pipeline"
)

type UpdateAssignmentStatusInput struct {
	AssignmentID int64  `json:"assignment_id"`
	Status       string `json:"status"`
}

type AnalyzeAssignmentInput struct {
	AssignmentID int64 `json:"assignment_id"`
}

type AnalyzeAssignmentOutput struct {
	Result   models.AnalysisResult `json:"result"`
	Issues   []pipeline.Issue      `json:"issues"`
	Trace    []pipeline.State      `json:"trace"`
	Degraded bool                  `json:"degraded"`
	Calls    []LogLLMCallInput     `json:"calls"`
}

type SaveAnalysisInput struct {
	Result models.AnalysisResult `json:"result"`
}

type SaveAnalysisOutput struct {
	AnalysisID   int64  `json:"analysis_id"`
	ArtifactPath string `json:"artifact_path,omitempty"`
}

type LogLLMCallInput struct {
	CallID       string `json:"call_id"`
	Operation    string `json:"operation"`
	AssignmentID int64  `json:"assignment_id"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
	LatencyMS    int64  `json:"latency_ms"`
}

type IngestSourcesInput struct {
	Sources        []catalog.SourceInput `json:"sources"`
	DeferEmbedding bool                  `json:"defer_embedding"`
}

type BackfillEmbeddingsInput struct {
	Limit int `json:"limit"`
}
