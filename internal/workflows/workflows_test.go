package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"assignhelper/internal/activities"
	"assignhelper/internal/catalog"
	"assignhelper/internal/models"
	"assignhelper/internal/pipeline"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerAnalysisActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "UpdateAssignmentStatusActivity", func(context.Context, activities.UpdateAssignmentStatusInput) error { return nil })
	registerActivityName(env, "AnalyzeAssignmentActivity", func(context.Context, activities.AnalyzeAssignmentInput) (activities.AnalyzeAssignmentOutput, error) {
		return activities.AnalyzeAssignmentOutput{}, nil
	})
	registerActivityName(env, "SaveAnalysisActivity", func(context.Context, activities.SaveAnalysisInput) (activities.SaveAnalysisOutput, error) {
		return activities.SaveAnalysisOutput{}, nil
	})
	registerActivityName(env, "LogLLMCallActivity", func(context.Context, activities.LogLLMCallInput) error { return nil })
}

func TestAssignmentAnalysisWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(AssignmentAnalysisWorkflow)
	registerAnalysisActivities(env)

	result := models.AnalysisResult{AssignmentID: 7, PlagiarismScore: 0.4}
	env.OnActivity("UpdateAssignmentStatusActivity", mock.Anything, activities.UpdateAssignmentStatusInput{AssignmentID: 7, Status: models.AssignmentAnalyzing}).Return(nil).Once()
	env.OnActivity("AnalyzeAssignmentActivity", mock.Anything, activities.AnalyzeAssignmentInput{AssignmentID: 7}).Return(activities.AnalyzeAssignmentOutput{
		Result: result,
		Calls: []activities.LogLLMCallInput{
			{CallID: "a", Operation: "embedding", AssignmentID: 7, Status: "ok"},
			{CallID: "b", Operation: "assignment_analysis", AssignmentID: 7, Status: "ok"},
		},
	}, nil)
	env.OnActivity("SaveAnalysisActivity", mock.Anything, activities.SaveAnalysisInput{Result: result}).Return(activities.SaveAnalysisOutput{AnalysisID: 3}, nil)
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil).Times(2)
	env.OnActivity("UpdateAssignmentStatusActivity", mock.Anything, activities.UpdateAssignmentStatusInput{AssignmentID: 7, Status: models.AssignmentAnalyzed}).Return(nil).Once()

	env.ExecuteWorkflow(AssignmentAnalysisWorkflow, AssignmentAnalysisInput{AssignmentID: 7})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusAnalyzed, out)
	env.AssertExpectations(t)
}

func TestAssignmentAnalysisWorkflowDegradedStillAnalyzed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(AssignmentAnalysisWorkflow)
	registerAnalysisActivities(env)

	env.OnActivity("UpdateAssignmentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("AnalyzeAssignmentActivity", mock.Anything, mock.Anything).Return(activities.AnalyzeAssignmentOutput{
		Degraded: true,
		Issues:   []pipeline.Issue{{Step: pipeline.StateEmbedding, Kind: pipeline.KindEmbeddingUnavailable, Message: "down"}},
	}, nil)
	env.OnActivity("SaveAnalysisActivity", mock.Anything, mock.Anything).Return(activities.SaveAnalysisOutput{AnalysisID: 1}, nil)

	env.ExecuteWorkflow(AssignmentAnalysisWorkflow, AssignmentAnalysisInput{AssignmentID: 9})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusAnalyzed, out)

	q, err := env.QueryWorkflow(QueryGetAnalysisStatus)
	require.NoError(t, err)
	var st AnalysisStatus
	require.NoError(t, q.Get(&st))
	require.Equal(t, "degraded", st.Steps["analyze"])
	require.Len(t, st.Issues, 1)
}

func TestAssignmentAnalysisWorkflowSaveFailureMarksFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(AssignmentAnalysisWorkflow)
	registerAnalysisActivities(env)

	env.OnActivity("UpdateAssignmentStatusActivity", mock.Anything, activities.UpdateAssignmentStatusInput{AssignmentID: 4, Status: models.AssignmentAnalyzing}).Return(nil)
	env.OnActivity("AnalyzeAssignmentActivity", mock.Anything, mock.Anything).Return(activities.AnalyzeAssignmentOutput{}, nil)
	env.OnActivity("SaveAnalysisActivity", mock.Anything, mock.Anything).Return(activities.SaveAnalysisOutput{}, errors.New("db down"))
	env.OnActivity("UpdateAssignmentStatusActivity", mock.Anything, activities.UpdateAssignmentStatusInput{AssignmentID: 4, Status: models.AssignmentFailed}).Return(nil).Once()

	env.ExecuteWorkflow(AssignmentAnalysisWorkflow, AssignmentAnalysisInput{AssignmentID: 4})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusFailed, out)
}

func TestSourceIngestWorkflowBatches(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(SourceIngestWorkflow)
	registerActivityName(env, "IngestSourcesActivity", func(context.Context, activities.IngestSourcesInput) (catalog.BatchResult, error) {
		return catalog.BatchResult{}, nil
	})

	sources := []catalog.SourceInput{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	env.OnActivity("IngestSourcesActivity", mock.Anything, activities.IngestSourcesInput{Sources: sources[:2]}).Return(catalog.BatchResult{
		Total: 2, Successful: 2,
		Results: []catalog.IngestResult{{Success: true, SourceID: 1, Title: "a"}, {Success: true, SourceID: 2, Title: "b"}},
	}, nil)
	env.OnActivity("IngestSourcesActivity", mock.Anything, activities.IngestSourcesInput{Sources: sources[2:]}).Return(catalog.BatchResult{
		Total: 1, Failed: 1,
		Results: []catalog.IngestResult{{Title: "c", Error: "embedding unavailable"}},
	}, nil)

	env.ExecuteWorkflow(SourceIngestWorkflow, SourceIngestInput{Sources: sources, BatchSize: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out catalog.BatchResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 3, out.Total)
	require.Equal(t, 2, out.Successful)
	require.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 3)
}

func TestBackfillEmbeddingsWorkflowStopsWhenDrained(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(BackfillEmbeddingsWorkflow)
	registerActivityName(env, "BackfillEmbeddingsActivity", func(context.Context, activities.BackfillEmbeddingsInput) (catalog.BackfillResult, error) {
		return catalog.BackfillResult{}, nil
	})

	env.OnActivity("BackfillEmbeddingsActivity", mock.Anything, mock.Anything).Return(catalog.BackfillResult{Scanned: 10, Updated: 10}, nil).Once()
	env.OnActivity("BackfillEmbeddingsActivity", mock.Anything, mock.Anything).Return(catalog.BackfillResult{Scanned: 3, Updated: 3}, nil).Once()
	env.OnActivity("BackfillEmbeddingsActivity", mock.Anything, mock.Anything).Return(catalog.BackfillResult{}, nil).Once()

	env.ExecuteWorkflow(BackfillEmbeddingsWorkflow, BackfillEmbeddingsInput{BatchSize: 10})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out catalog.BackfillResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 13, out.Scanned)
	require.Equal(t, 13, out.Updated)
}

func TestAnalysisWorkflowID(t *testing.T) {
	require.Equal(t, "assignment-analysis-42", AnalysisWorkflowID(42))
}
