package workflows

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// Starter launches workflows on a task queue.
type Starter struct {
	client    tclient.Client
	taskQueue string
	now       func() time.Time
}

func NewStarter(c tclient.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue, now: time.Now}
}

type Started struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

func AnalysisWorkflowID(assignmentID int64) string {
	return fmt.Sprintf("assignment-analysis-%d", assignmentID)
}

// StartAnalysis starts (or restarts) the analysis of an assignment. A run
// already in flight for the same assignment is reported as an error.
func (s *Starter) StartAnalysis(ctx context.Context, assignmentID int64) (Started, error) {
	we, err := s.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       AnalysisWorkflowID(assignmentID),
		TaskQueue:                                s.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, AssignmentAnalysisWorkflow, AssignmentAnalysisInput{AssignmentID: assignmentID})
	if err != nil {
		return Started{}, fmt.Errorf("start analysis workflow: %w", err)
	}
	return Started{WorkflowID: we.GetID(), RunID: we.GetRunID()}, nil
}

func (s *Starter) StartIngest(ctx context.Context, in SourceIngestInput) (Started, error) {
	we, err := s.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("source-ingest-%d", s.now().UnixNano()),
		TaskQueue: s.taskQueue,
	}, SourceIngestWorkflow, in)
	if err != nil {
		return Started{}, fmt.Errorf("start ingest workflow: %w", err)
	}
	return Started{WorkflowID: we.GetID(), RunID: we.GetRunID()}, nil
}

func (s *Starter) StartBackfill(ctx context.Context, in BackfillEmbeddingsInput) (Started, error) {
	we, err := s.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       "embedding-backfill",
		TaskQueue:                                s.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, BackfillEmbeddingsWorkflow, in)
	if err != nil {
		return Started{}, fmt.Errorf("start backfill workflow: %w", err)
	}
	return Started{WorkflowID: we.GetID(), RunID: we.GetRunID()}, nil
}
