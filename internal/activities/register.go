package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.UpdateAssignmentStatusActivity)
	w.RegisterActivity(a.AnalyzeAssignmentActivity)
	w.RegisterActivity(a.SaveAnalysisActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
	w.RegisterActivity(a.IngestSourcesActivity)
	w.RegisterActivity(a.BackfillEmbeddingsActivity)
}
