package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"assignhelper/internal/config"
	"assignhelper/internal/models"
	"assignhelper/internal/vector"
)

func TestOpenBackendSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	b, err := OpenBackend(ctx, config.Config{CatalogBackend: "sqlite", SQLitePath: path}, nil)
	require.NoError(t, err)
	require.Equal(t, "sqlite", b.Name)

	_, err = b.Store.Insert(ctx, models.SourceRecord{Title: "x", Embedding: []float32{1, 0}})
	require.NoError(t, err)
	hits, err := b.Index.Search(ctx, []float32{1, 0}, 5, vector.Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NoError(t, b.Close())
}

func TestOpenBackendErrors(t *testing.T) {
	_, err := OpenBackend(context.Background(), config.Config{CatalogBackend: "postgres"}, nil)
	require.ErrorContains(t, err, "requires a database")

	_, err = OpenBackend(context.Background(), config.Config{CatalogBackend: "redis"}, nil)
	require.ErrorContains(t, err, "unknown backend")

	var b *Backend
	require.NoError(t, b.Close())
}
