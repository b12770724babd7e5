package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(AssignmentAnalysisWorkflow)
	w.RegisterWorkflow(SourceIngestWorkflow)
	w.RegisterWorkflow(BackfillEmbeddingsWorkflow)
}
