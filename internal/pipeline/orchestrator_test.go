package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"assignhelper/internal/analysis"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
	"assignhelper/internal/providers"
	"assignhelper/internal/vector"
)

const essay = "Urban heat islands raise night-time temperatures in dense cities."

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	return nil, providers.ProviderInfo{Name: "broken"}, errors.New("connection refused")
}

type failingIndex struct{}

func (failingIndex) Search(ctx context.Context, vec []float32, topK int, f vector.Filters) ([]models.RankedSource, error) {
	return nil, errors.New("pool closed")
}

type staticLLM struct{ text string }

func (s staticLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return providers.GenerateResponse{Text: s.text}, providers.ProviderInfo{Name: "static"}, nil
}

func testConfig() config.Config {
	return config.Config{EmbedDim: 16, DefaultTopK: 5, Temperature: 0.3}
}

func seededStore(t *testing.T, mock *providers.MockProvider, texts ...string) *vector.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := vector.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	for _, txt := range texts {
		vecs, _, err := mock.Embed(ctx, providers.EmbedRequest{Inputs: []string{txt}, Dimension: 16})
		require.NoError(t, err)
		_, err = store.Insert(ctx, models.SourceRecord{Title: txt, Abstract: "abstract of " + txt, Embedding: vecs[0]})
		require.NoError(t, err)
	}
	return store
}

func TestRunFullFlow(t *testing.T) {
	cfg := testConfig()
	mock := providers.NewMockProvider(16)
	store := seededStore(t, mock, "unrelated source about tides", essay)
	o := New(embedding.NewGenerator(mock, cfg), store, analysis.NewSynthesizer(mock, cfg), cfg)

	res := o.Run(context.Background(), essay)
	require.False(t, res.Degraded(), "%v", res.Issues)
	require.Equal(t, []State{StateEmbedding, StateSearching, StateScoringSynthesizing, StateComplete}, res.Trace)
	require.Len(t, res.Sources, 2)
	require.Equal(t, essay, res.Sources[0].Title)
	require.InDelta(t, 1.0, res.Sources[0].Similarity, 1e-5)
	require.Equal(t, 1.0, res.Plagiarism.Score)
	require.Equal(t, essay, res.Plagiarism.FlaggedSections[0].SourceTitle)
	require.Equal(t, "Urban heat islands raise", res.Analysis.Topic)
	require.Equal(t, "mock", res.EmbedProvider.Name)
	require.Equal(t, "mock", res.LLMProvider.Name)
	require.Contains(t, res.Synthesis.Prompt, "Source 1: "+essay)
}

func TestRunEmbeddingFailureDegrades(t *testing.T) {
	cfg := testConfig()
	mock := providers.NewMockProvider(16)
	store := seededStore(t, mock, essay)
	o := New(embedding.NewGenerator(failingEmbedder{}, cfg), store, analysis.NewSynthesizer(mock, cfg), cfg)

	res := o.Run(context.Background(), essay)
	require.True(t, res.Degraded())
	require.Equal(t, []State{StateEmbedding, StateScoringSynthesizing, StateComplete}, res.Trace)
	require.NotNil(t, res.Sources)
	require.Empty(t, res.Sources)
	require.Equal(t, models.PlagiarismAssessment{Score: 0, FlaggedSections: []models.FlaggedSection{}}, res.Plagiarism)
	require.Len(t, res.Issues, 1)
	require.Equal(t, KindEmbeddingUnavailable, res.Issues[0].Kind)
	require.Equal(t, StateEmbedding, res.Issues[0].Step)
	require.NotEqual(t, "Unknown", res.Analysis.Topic, "synthesis still runs on an empty source list")
}

func TestRunSearchFailureDegrades(t *testing.T) {
	cfg := testConfig()
	mock := providers.NewMockProvider(16)
	o := New(embedding.NewGenerator(mock, cfg), failingIndex{}, analysis.NewSynthesizer(mock, cfg), cfg)

	res := o.Run(context.Background(), essay)
	require.Empty(t, res.Sources)
	require.Equal(t, 0.0, res.Plagiarism.Score)
	require.Len(t, res.Issues, 1)
	require.Equal(t, KindSearchUnavailable, res.Issues[0].Kind)
	require.Equal(t, StateComplete, res.Trace[len(res.Trace)-1])
}

func TestRunSynthesisParseFailureUsesFallback(t *testing.T) {
	cfg := testConfig()
	mock := providers.NewMockProvider(16)
	store := seededStore(t, mock, essay)
	o := New(embedding.NewGenerator(mock, cfg), store, analysis.NewSynthesizer(staticLLM{text: "not json"}, cfg), cfg)

	res := o.Run(context.Background(), essay)
	require.Equal(t, analysis.Fallback(), res.Analysis)
	require.Len(t, res.Sources, 1)
	require.Len(t, res.Issues, 1)
	require.Equal(t, KindSynthesisParseFailure, res.Issues[0].Kind)
	require.Equal(t, "static", res.LLMProvider.Name)
}

func TestSearchSourcesStatuses(t *testing.T) {
	cfg := testConfig()
	mock := providers.NewMockProvider(16)
	store := seededStore(t, mock, "a", "b", "c")
	synth := analysis.NewSynthesizer(mock, cfg)

	out := New(embedding.NewGenerator(mock, cfg), store, synth, cfg).SearchSources(context.Background(), "b", 2, vector.Filters{})
	require.Equal(t, StatusOK, out.Status)
	require.Len(t, out.Sources, 2)
	require.Equal(t, "b", out.Sources[0].Title)
	require.NoError(t, out.Err)

	out = New(embedding.NewGenerator(failingEmbedder{}, cfg), store, synth, cfg).SearchSources(context.Background(), "b", 2, vector.Filters{})
	require.Equal(t, StatusEmbeddingUnavailable, out.Status)
	require.Empty(t, out.Sources)
	require.ErrorIs(t, out.Err, embedding.ErrEmbeddingUnavailable)

	out = New(embedding.NewGenerator(mock, cfg), failingIndex{}, synth, cfg).SearchSources(context.Background(), "b", 0, vector.Filters{})
	require.Equal(t, StatusSearchUnavailable, out.Status)
	require.ErrorIs(t, out.Err, vector.ErrSearchUnavailable)
}
