package activities

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"assignhelper/internal/analysis"
	"assignhelper/internal/catalog"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
	"assignhelper/internal/pipeline"
	"assignhelper/internal/providers"
	"assignhelper/internal/storage"
	"assignhelper/internal/vector"
)

type memAssignments struct {
	rows   map[int64]models.Assignment
	topics map[int64][2]string
}

func (m *memAssignments) Get(ctx context.Context, id int64) (models.Assignment, error) {
	a, ok := m.rows[id]
	if !ok {
		return models.Assignment{}, models.ErrNotFound
	}
	return a, nil
}

func (m *memAssignments) UpdateStatus(ctx context.Context, id int64, status string) error {
	a, ok := m.rows[id]
	if !ok {
		return models.ErrNotFound
	}
	a.Status = status
	m.rows[id] = a
	return nil
}

func (m *memAssignments) SetTopic(ctx context.Context, id int64, topic, level string) error {
	m.topics[id] = [2]string{topic, level}
	return nil
}

type memAnalyses struct{ saved []models.AnalysisResult }

func (m *memAnalyses) Upsert(ctx context.Context, res models.AnalysisResult) (int64, error) {
	m.saved = append(m.saved, res)
	return int64(len(m.saved)), nil
}

type memAudit struct{ rows []storage.LLMCallRecord }

func (m *memAudit) Insert(ctx context.Context, rec storage.LLMCallRecord) error {
	m.rows = append(m.rows, rec)
	return nil
}

type brokenEmbedder struct{}

func (brokenEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	return nil, providers.ProviderInfo{Name: "openai", Model: "ada"}, errors.New("429 rate limit")
}

type fixture struct {
	acts        *Activities
	assignments *memAssignments
	analyses    *memAnalyses
	audit       *memAudit
	store       *vector.SQLiteStore
}

func newFixture(t *testing.T, embedder providers.EmbeddingProvider) fixture {
	t.Helper()
	cfg := config.Config{EmbedDim: 16, DefaultTopK: 5, DataOutRoot: t.TempDir()}
	store, err := vector.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mock := providers.NewMockProvider(16)
	if embedder == nil {
		embedder = mock
	}
	gen := embedding.NewGenerator(embedder, cfg)
	f := fixture{
		assignments: &memAssignments{
			rows:   map[int64]models.Assignment{1: {ID: 1, StudentID: "s1", OriginalText: "Renewable energy adoption in rural areas", Status: models.AssignmentUploaded}},
			topics: map[int64][2]string{},
		},
		analyses: &memAnalyses{},
		audit:    &memAudit{},
		store:    store,
	}
	f.acts = NewWithDeps(cfg, Deps{
		Assignments: f.assignments,
		Analyses:    f.analyses,
		Audit:       f.audit,
		Pipeline:    pipeline.New(gen, store, analysis.NewSynthesizer(mock, cfg), cfg),
		Ingester:    catalog.NewIngester(store, gen),
	})
	return f
}

func TestAnalyzeAndSaveAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	batch, err := f.acts.IngestSourcesActivity(ctx, IngestSourcesInput{Sources: []catalog.SourceInput{
		{Title: "Rural solar", Authors: "Okafor", Abstract: "Solar microgrids."},
		{Title: "Wind policy", Authors: "Berg", Abstract: "Onshore wind."},
	}})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Successful)

	out, err := f.acts.AnalyzeAssignmentActivity(ctx, AnalyzeAssignmentInput{AssignmentID: 1})
	require.NoError(t, err)
	require.False(t, out.Degraded)
	require.Len(t, out.Result.SuggestedSources, 2)
	require.Equal(t, int64(1), out.Result.AssignmentID)
	require.Len(t, out.Calls, 2)
	require.Equal(t, "ok", out.Calls[1].Status)
	require.Equal(t, pipeline.StateComplete, out.Trace[len(out.Trace)-1])

	saved, err := f.acts.SaveAnalysisActivity(ctx, SaveAnalysisInput{Result: out.Result})
	require.NoError(t, err)
	require.Equal(t, int64(1), saved.AnalysisID)
	require.FileExists(t, saved.ArtifactPath)
	require.Equal(t, filepath.Join("assignments", "1", "analysis.json"), relTo(t, f.acts.cfg.DataOutRoot, saved.ArtifactPath))
	require.Equal(t, out.Result.Analysis.Topic, f.assignments.topics[1][0])
}

func TestAnalyzeDegradedRecordsFailedCall(t *testing.T) {
	f := newFixture(t, brokenEmbedder{})

	out, err := f.acts.AnalyzeAssignmentActivity(context.Background(), AnalyzeAssignmentInput{AssignmentID: 1})
	require.NoError(t, err)
	require.True(t, out.Degraded)
	require.Empty(t, out.Result.SuggestedSources)
	require.Equal(t, 0.0, out.Result.PlagiarismScore)
	require.Len(t, out.Result.Issues, 1)
	require.Equal(t, "failed", out.Calls[0].Status)
	require.Equal(t, string(providers.ErrorRate), out.Calls[0].ErrorType)
	require.Equal(t, "openai", out.Calls[0].ProviderName)
}

func TestAnalyzeMissingAssignmentIsNonRetryable(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.acts.AnalyzeAssignmentActivity(context.Background(), AnalyzeAssignmentInput{AssignmentID: 42})
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.True(t, appErr.NonRetryable())
	require.Equal(t, "not_found", appErr.Type())
}

func TestUpdateStatusAndAudit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	require.NoError(t, f.acts.UpdateAssignmentStatusActivity(ctx, UpdateAssignmentStatusInput{AssignmentID: 1, Status: models.AssignmentAnalyzing}))
	require.Equal(t, models.AssignmentAnalyzing, f.assignments.rows[1].Status)

	require.NoError(t, f.acts.LogLLMCallActivity(ctx, LogLLMCallInput{Operation: "assignment_analysis", AssignmentID: 1, ProviderName: "mock", Status: "ok", LatencyMS: 12}))
	require.Len(t, f.audit.rows, 1)
	require.Equal(t, int64(12), f.audit.rows[0].LatencyMS)
}

func TestBackfillEmbeddingsActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.store.Insert(ctx, models.SourceRecord{Title: "pending"})
	require.NoError(t, err)

	out, err := f.acts.BackfillEmbeddingsActivity(ctx, BackfillEmbeddingsInput{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, out.Updated)
}

func TestIngestWithoutCatalogIsNonRetryable(t *testing.T) {
	a := NewWithDeps(config.Config{}, Deps{})
	_, err := a.IngestSourcesActivity(context.Background(), IngestSourcesInput{})
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.True(t, appErr.NonRetryable())
	require.NoError(t, a.Close())
}

func relTo(t *testing.T, base, path string) string {
	t.Helper()
	rel, err := filepath.Rel(base, path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
	return rel
}
