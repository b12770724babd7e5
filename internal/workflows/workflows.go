package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"assignhelper/internal/activities"
	"assignhelper/internal/catalog"
	"assignhelper/internal/models"
)

const (
	QueryGetAnalysisStatus = "GetAnalysisStatus"
	QueryGetIngestProgress = "GetIngestProgress"

	StatusAnalyzed = models.AssignmentAnalyzed
	StatusFailed   = models.AssignmentFailed
)

func defaultActivityOptions(timeout time.Duration, attempts int32) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    attempts,
		},
	}
}

// AssignmentAnalysisWorkflow runs the analysis pipeline for one uploaded
// assignment and persists the outcome. Degraded pipeline results still count
// as analyzed; only storage failures mark the assignment failed.
func AssignmentAnalysisWorkflow(ctx workflow.Context, input AssignmentAnalysisInput) (string, error) {
	status := AnalysisStatus{
		AssignmentID: input.AssignmentID,
		CurrentStep:  "init",
		Status:       models.AssignmentAnalyzing,
		Steps:        map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetAnalysisStatus, func() (AnalysisStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions(5*time.Minute, 3))
	logger := workflow.GetLogger(ctx)

	fail := func(step string, err error) (string, error) {
		status.Status = StatusFailed
		status.FailReason = err.Error()
		status.Steps[step] = "failed"
		logger.Warn("assignment analysis failed", "assignment_id", input.AssignmentID, "step", step, "error", err)
		_ = workflow.ExecuteActivity(ctx, "UpdateAssignmentStatusActivity", activities.UpdateAssignmentStatusInput{
			AssignmentID: input.AssignmentID,
			Status:       StatusFailed,
		}).Get(ctx, nil)
		return status.Status, nil
	}

	status.CurrentStep = "mark_analyzing"
	if err := workflow.ExecuteActivity(ctx, "UpdateAssignmentStatusActivity", activities.UpdateAssignmentStatusInput{
		AssignmentID: input.AssignmentID,
		Status:       models.AssignmentAnalyzing,
	}).Get(ctx, nil); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "analyze"
	status.Steps[status.CurrentStep] = "processing"
	var analyzed activities.AnalyzeAssignmentOutput
	if err := workflow.ExecuteActivity(ctx, "AnalyzeAssignmentActivity", activities.AnalyzeAssignmentInput{AssignmentID: input.AssignmentID}).Get(ctx, &analyzed); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Issues = analyzed.Issues
	status.Steps[status.CurrentStep] = "done"
	if analyzed.Degraded {
		status.Steps[status.CurrentStep] = "degraded"
	}

	status.CurrentStep = "save_analysis"
	status.Steps[status.CurrentStep] = "processing"
	var saved activities.SaveAnalysisOutput
	if err := workflow.ExecuteActivity(ctx, "SaveAnalysisActivity", activities.SaveAnalysisInput{Result: analyzed.Result}).Get(ctx, &saved); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.AnalysisID = saved.AnalysisID
	status.Steps[status.CurrentStep] = "done"

	// audit rows are best effort
	for _, call := range analyzed.Calls {
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", call).Get(ctx, nil)
	}

	status.CurrentStep = "mark_analyzed"
	if err := workflow.ExecuteActivity(ctx, "UpdateAssignmentStatusActivity", activities.UpdateAssignmentStatusInput{
		AssignmentID: input.AssignmentID,
		Status:       StatusAnalyzed,
	}).Get(ctx, nil); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = StatusAnalyzed
	return status.Status, nil
}

// SourceIngestWorkflow ingests sources in batches and aggregates the batch reports.
func SourceIngestWorkflow(ctx workflow.Context, input SourceIngestInput) (catalog.BatchResult, error) {
	progress := IngestProgress{Total: len(input.Sources)}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestProgress, func() (IngestProgress, error) {
		return progress, nil
	}); err != nil {
		return catalog.BatchResult{}, err
	}
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions(10*time.Minute, 2))

	size := input.BatchSize
	if size <= 0 {
		size = 25
	}
	out := catalog.BatchResult{Total: len(input.Sources), Results: make([]catalog.IngestResult, 0, len(input.Sources))}
	for i := 0; i < len(input.Sources); i += size {
		end := i + size
		if end > len(input.Sources) {
			end = len(input.Sources)
		}
		var batch catalog.BatchResult
		err := workflow.ExecuteActivity(ctx, "IngestSourcesActivity", activities.IngestSourcesInput{
			Sources:        input.Sources[i:end],
			DeferEmbedding: input.DeferEmbedding,
		}).Get(ctx, &batch)
		if err != nil {
			for _, src := range input.Sources[i:end] {
				batch.Results = append(batch.Results, catalog.IngestResult{Title: src.Title, Error: err.Error()})
			}
			batch.Failed = end - i
			batch.Successful = 0
		}
		out.Successful += batch.Successful
		out.Failed += batch.Failed
		out.Results = append(out.Results, batch.Results...)
		progress.Successful, progress.Failed = out.Successful, out.Failed
		progress.Batches++
	}
	return out, nil
}

// BackfillEmbeddingsWorkflow embeds catalog rows missing a vector until none
// remain, a batch makes no progress, or MaxBatches is reached.
func BackfillEmbeddingsWorkflow(ctx workflow.Context, input BackfillEmbeddingsInput) (catalog.BackfillResult, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions(10*time.Minute, 2))
	size := input.BatchSize
	if size <= 0 {
		size = 100
	}
	maxBatches := input.MaxBatches
	if maxBatches <= 0 {
		maxBatches = 50
	}

	var total catalog.BackfillResult
	for i := 0; i < maxBatches; i++ {
		var batch catalog.BackfillResult
		if err := workflow.ExecuteActivity(ctx, "BackfillEmbeddingsActivity", activities.BackfillEmbeddingsInput{Limit: size}).Get(ctx, &batch); err != nil {
			return total, err
		}
		total.Scanned += batch.Scanned
		total.Updated += batch.Updated
		total.Failed += batch.Failed
		total.Errors = append(total.Errors, batch.Errors...)
		if batch.Scanned == 0 || batch.Updated == 0 {
			break
		}
	}
	return total, nil
}
