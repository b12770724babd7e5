package catalog

import (
	"context"
	"fmt"
	"strings"

	"assignhelper/internal/config"
	"assignhelper/internal/storage"
	"assignhelper/internal/vector"
)

// Backend pairs the writable catalog with its similarity index.
type Backend struct {
	Store Store
	Index vector.Index
	Name  string

	closeFn func() error
}

// OpenBackend selects the source catalog named by cfg.CatalogBackend:
// "postgres" (pgvector, needs db) or "sqlite" (local file at cfg.SQLitePath).
func OpenBackend(ctx context.Context, cfg config.Config, db *storage.DB) (*Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CatalogBackend)) {
	case "", "postgres":
		if db == nil || db.Pool == nil {
			return nil, fmt.Errorf("open catalog: postgres backend requires a database")
		}
		return &Backend{Store: storage.NewSourceRepo(db), Index: vector.NewSearcher(db.Pool), Name: "postgres"}, nil
	case "sqlite":
		s, err := vector.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, Index: s, Name: "sqlite", closeFn: s.Close}, nil
	default:
		return nil, fmt.Errorf("open catalog: unknown backend %q", cfg.CatalogBackend)
	}
}

func (b *Backend) Close() error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}
