package activities

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"assignhelper/internal/analysis"
	"assignhelper/internal/catalog"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
	"assignhelper/internal/pipeline"
	"assignhelper/internal/providers"
	"assignhelper/internal/storage"
	"assignhelper/internal/util"
)

type AssignmentStore interface {
	Get(ctx context.Context, id int64) (models.Assignment, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetTopic(ctx context.Context, id int64, topic, level string) error
}

type AnalysisStore interface {
	Upsert(ctx context.Context, res models.AnalysisResult) (int64, error)
}

type AuditStore interface {
	Insert(ctx context.Context, rec storage.LLMCallRecord) error
}

type Runner interface {
	Run(ctx context.Context, text string) pipeline.Result
}

type Deps struct {
	Assignments AssignmentStore
	Analyses    AnalysisStore
	Audit       AuditStore
	Pipeline    Runner
	Ingester    *catalog.Ingester
}

type Activities struct {
	cfg         config.Config
	assignments AssignmentStore
	analyses    AnalysisStore
	audit       AuditStore
	pipeline    Runner
	ingester    *catalog.Ingester
	backend     *catalog.Backend
}

func New(ctx context.Context, cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := catalog.OpenBackend(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	a := NewWithDeps(cfg, Deps{
		Assignments: storage.NewAssignmentRepo(db),
		Analyses:    storage.NewAnalysisRepo(db),
		Audit:       storage.NewLLMAuditRepo(db),
		Pipeline:    pipeline.FromManager(cfg, pm, backend.Index),
		Ingester:    catalog.NewIngester(backend.Store, embedding.NewGenerator(pm.Embedder().Provider, cfg)),
	})
	a.backend = backend
	log.Printf("activities: catalog=%s embed_providers=%v llm_providers=%v", cfg.CatalogBackend, pm.EmbedProviderRefs(), pm.LLMProviderRefs())
	return a, nil
}

func NewWithDeps(cfg config.Config, d Deps) *Activities {
	return &Activities{
		cfg:         cfg,
		assignments: d.Assignments,
		analyses:    d.Analyses,
		audit:       d.Audit,
		pipeline:    d.Pipeline,
		ingester:    d.Ingester,
	}
}

func (a *Activities) Close() error {
	return a.backend.Close()
}

func (a *Activities) UpdateAssignmentStatusActivity(ctx context.Context, in UpdateAssignmentStatusInput) error {
	return nonRetryableIfMissing(a.assignments.UpdateStatus(ctx, in.AssignmentID, in.Status))
}

// AnalyzeAssignmentActivity runs the pipeline over the stored assignment text.
// Component failures come back as issues; only storage errors fail the activity.
func (a *Activities) AnalyzeAssignmentActivity(ctx context.Context, in AnalyzeAssignmentInput) (AnalyzeAssignmentOutput, error) {
	asg, err := a.assignments.Get(ctx, in.AssignmentID)
	if err != nil {
		return AnalyzeAssignmentOutput{}, nonRetryableIfMissing(err)
	}

	res := a.pipeline.Run(ctx, asg.OriginalText)
	issues := make([]string, 0, len(res.Issues))
	for _, is := range res.Issues {
		issues = append(issues, is.String())
	}
	return AnalyzeAssignmentOutput{
		Result: models.AnalysisResult{
			AssignmentID:     asg.ID,
			SuggestedSources: res.Sources,
			PlagiarismScore:  res.Plagiarism.Score,
			FlaggedSections:  res.Plagiarism.FlaggedSections,
			Analysis:         res.Analysis,
			Issues:           issues,
		},
		Issues:   res.Issues,
		Trace:    res.Trace,
		Degraded: res.Degraded(),
		Calls:    auditCalls(asg.ID, res),
	}, nil
}

func (a *Activities) SaveAnalysisActivity(ctx context.Context, in SaveAnalysisInput) (SaveAnalysisOutput, error) {
	id, err := a.analyses.Upsert(ctx, in.Result)
	if err != nil {
		return SaveAnalysisOutput{}, err
	}
	rec := in.Result.Analysis
	if err := a.assignments.SetTopic(ctx, in.Result.AssignmentID, rec.Topic, rec.AcademicLevel); err != nil {
		return SaveAnalysisOutput{}, err
	}
	out := SaveAnalysisOutput{AnalysisID: id}
	if a.cfg.DataOutRoot != "" {
		in.Result.ID = id
		path := filepath.Join(a.cfg.DataOutRoot, "assignments", strconv.FormatInt(in.Result.AssignmentID, 10), "analysis.json")
		if err := util.WriteJSONAtomic(path, in.Result); err != nil {
			return SaveAnalysisOutput{}, err
		}
		out.ArtifactPath = path
	}
	return out, nil
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	return a.audit.Insert(ctx, storage.LLMCallRecord{
		CallID:       in.CallID,
		Operation:    in.Operation,
		AssignmentID: in.AssignmentID,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
		LatencyMS:    in.LatencyMS,
	})
}

func (a *Activities) IngestSourcesActivity(ctx context.Context, in IngestSourcesInput) (catalog.BatchResult, error) {
	if a.ingester == nil {
		return catalog.BatchResult{}, temporal.NewNonRetryableApplicationError("source catalog not configured", "config", nil)
	}
	ing := *a.ingester
	ing.DeferEmbedding = in.DeferEmbedding
	return ing.IngestBatch(ctx, in.Sources), nil
}

func (a *Activities) BackfillEmbeddingsActivity(ctx context.Context, in BackfillEmbeddingsInput) (catalog.BackfillResult, error) {
	if a.ingester == nil {
		return catalog.BackfillResult{}, temporal.NewNonRetryableApplicationError("source catalog not configured", "config", nil)
	}
	return a.ingester.Backfill(ctx, in.Limit)
}

// auditCalls describes the model calls a run made, one row per provider call.
func auditCalls(assignmentID int64, res pipeline.Result) []LogLLMCallInput {
	calls := []LogLLMCallInput{{
		CallID:       uuid.NewString(),
		Operation:    "embed_assignment",
		AssignmentID: assignmentID,
		ProviderName: providerName(res.EmbedProvider),
		Model:        res.EmbedProvider.Model,
		Status:       "ok",
	}}
	if res.LLMProvider.Name != "" || res.Synthesis.Prompt != "" {
		calls = append(calls, LogLLMCallInput{
			CallID:       uuid.NewString(),
			Operation:    analysis.Operation,
			AssignmentID: assignmentID,
			ProviderName: providerName(res.LLMProvider),
			Model:        res.LLMProvider.Model,
			Status:       "ok",
			LatencyMS:    res.Synthesis.Latency.Milliseconds(),
		})
	}
	for _, is := range res.Issues {
		idx := -1
		switch is.Kind {
		case pipeline.KindEmbeddingUnavailable:
			idx = 0
		case pipeline.KindSynthesisCallFailure, pipeline.KindSynthesisParseFailure:
			idx = len(calls) - 1
		}
		if idx < 0 {
			continue
		}
		calls[idx].Status = "failed"
		calls[idx].ErrorType = is.Kind
		if is.Kind != pipeline.KindSynthesisParseFailure {
			calls[idx].ErrorType = string(providers.ClassifyError(errors.New(is.Message)))
		}
	}
	return calls
}

func providerName(info providers.ProviderInfo) string {
	if info.Name == "" {
		return "unknown"
	}
	return info.Name
}

func nonRetryableIfMissing(err error) error {
	if err != nil && errors.Is(err, models.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "not_found", err)
	}
	return err
}
