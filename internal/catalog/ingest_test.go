package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
	"assignhelper/internal/providers"
	"assignhelper/internal/vector"
)

type recordingEmbedder struct {
	texts []string
	fail  func(text string) bool
}

func (r *recordingEmbedder) Generate(ctx context.Context, text string) ([]float32, providers.ProviderInfo, error) {
	r.texts = append(r.texts, text)
	if r.fail != nil && r.fail(text) {
		return nil, providers.ProviderInfo{}, embedding.ErrEmbeddingUnavailable
	}
	return []float32{1, float32(len(text))}, providers.ProviderInfo{Name: "rec"}, nil
}

func openStore(t *testing.T) *vector.SQLiteStore {
	t.Helper()
	s, err := vector.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIngestEmbedsTitleAuthorsAbstract(t *testing.T) {
	store := openStore(t)
	emb := &recordingEmbedder{}
	ing := NewIngester(store, emb)

	res, err := ing.Ingest(context.Background(), SourceInput{Title: "Deep Learning", Authors: "LeCun", Abstract: "Review.", SourceType: "journal"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"Deep Learning LeCun Review."}, emb.texts)

	rec, err := store.Get(context.Background(), res.SourceID)
	require.NoError(t, err)
	require.Equal(t, "journal", rec.SourceType)
	require.NotEmpty(t, rec.Embedding)
}

func TestIngestRejectsMissingTitle(t *testing.T) {
	_, err := NewIngester(openStore(t), &recordingEmbedder{}).Ingest(context.Background(), SourceInput{Abstract: "x"})
	require.ErrorContains(t, err, "title is required")
	require.Equal(t, "", EmbeddingText(" ", "", " "))
}

func TestIngestEmbeddingFailure(t *testing.T) {
	store := openStore(t)
	ing := NewIngester(store, &recordingEmbedder{fail: func(string) bool { return true }})

	_, err := ing.Ingest(context.Background(), SourceInput{Title: "T"})
	require.ErrorIs(t, err, embedding.ErrEmbeddingUnavailable)

	ing.DeferEmbedding = true
	res, err := ing.Ingest(context.Background(), SourceInput{Title: "T"})
	require.NoError(t, err)
	require.True(t, res.Pending)

	missing, err := store.ListMissingEmbeddings(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
}

func TestIngestBatchCountsFailures(t *testing.T) {
	emb := &recordingEmbedder{fail: func(text string) bool { return strings.HasPrefix(text, "bad") }}
	out := NewIngester(openStore(t), emb).IngestBatch(context.Background(), []SourceInput{
		{Title: "good one"},
		{Title: "bad one"},
		{Title: ""},
		{Title: "good two"},
	})
	require.Equal(t, 4, out.Total)
	require.Equal(t, 2, out.Successful)
	require.Equal(t, 2, out.Failed)
	require.Len(t, out.Results, 4)
	require.False(t, out.Results[1].Success)
	require.NotEmpty(t, out.Results[1].Error)
	require.True(t, out.Results[3].Success)
}

func TestBackfillFillsOnlyMissing(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	done, err := store.Insert(ctx, models.SourceRecord{Title: "done", Embedding: []float32{9, 9}})
	require.NoError(t, err)
	_, err = store.Insert(ctx, models.SourceRecord{Title: "p1", Authors: "A"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, models.SourceRecord{Title: "bad p2"})
	require.NoError(t, err)

	emb := &recordingEmbedder{fail: func(text string) bool { return strings.HasPrefix(text, "bad") }}
	out, err := NewIngester(store, emb).Backfill(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, BackfillResult{Scanned: 2, Updated: 1, Failed: 1, Errors: out.Errors}, out)
	require.Len(t, out.Errors, 1)
	require.Equal(t, []string{"p1 A", "bad p2"}, emb.texts)

	rec, err := store.Get(ctx, done)
	require.NoError(t, err)
	require.Equal(t, []float32{9, 9}, rec.Embedding)
}

func TestIngestWithMockGeneratorIsSearchable(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{EmbedDim: 8}
	gen := embedding.NewGenerator(providers.NewMockProvider(8), cfg)
	store := openStore(t)
	ing := NewIngester(store, gen)

	res, err := ing.Ingest(ctx, SourceInput{Title: "Climate", Authors: "IPCC", Abstract: "Assessment report"})
	require.NoError(t, err)

	vec, _, err := gen.Generate(ctx, EmbeddingText("Climate", "IPCC", "Assessment report"))
	require.NoError(t, err)
	hits, err := store.Search(ctx, vec, 1, vector.Filters{})
	require.NoError(t, err)
	require.Equal(t, res.SourceID, hits[0].ID)
	require.InDelta(t, 1.0, hits[0].Similarity, 1e-5)
}
