package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"assignhelper/internal/models"
	"assignhelper/internal/vector"
)

// SourceRepo is the Postgres source catalog. Similarity queries go through vector.Searcher.
type SourceRepo struct {
	db *DB
}

func NewSourceRepo(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const sourceColumns = `id, title, COALESCE(authors,''), publication_year, COALESCE(abstract,''),
       COALESCE(full_text,''), COALESCE(source_type,''), embedding::text, created_at`

func (r *SourceRepo) Insert(ctx context.Context, src models.SourceRecord) (int64, error) {
	var emb string
	if len(src.Embedding) > 0 {
		emb = vector.ToLiteral(src.Embedding)
	}
	var id int64
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO academic_sources (title, authors, publication_year, abstract, full_text, source_type, embedding)
VALUES ($1, NULLIF($2,''), $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), NULLIF($7,'')::vector)
RETURNING id`,
		src.Title, src.Authors, src.PublicationYear, src.Abstract, src.FullText, src.SourceType, emb).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return id, nil
}

func (r *SourceRepo) Get(ctx context.Context, id int64) (models.SourceRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM academic_sources WHERE id=$1`, id)
	rec, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SourceRecord{}, fmt.Errorf("source %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.SourceRecord{}, fmt.Errorf("get source: %w", err)
	}
	return rec, nil
}

func (r *SourceRepo) ListMissingEmbeddings(ctx context.Context, limit int) ([]models.SourceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT `+sourceColumns+`
FROM academic_sources
WHERE embedding IS NULL
ORDER BY id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sources missing embeddings: %w", err)
	}
	defer rows.Close()
	out := make([]models.SourceRecord, 0)
	for rows.Next() {
		rec, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Only rows still missing a vector are updated.
const updateEmbeddingSQL = `UPDATE academic_sources SET embedding=$2::vector WHERE id=$1 AND embedding IS NULL`

func (r *SourceRepo) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	tag, err := r.db.Pool.Exec(ctx, updateEmbeddingSQL, id, vector.ToLiteral(vec))
	if err != nil {
		return fmt.Errorf("update source embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %d without embedding: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *SourceRepo) Count(ctx context.Context) (total, embedded int64, err error) {
	err = r.db.Pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(embedding) FROM academic_sources`).Scan(&total, &embedded)
	if err != nil {
		return 0, 0, fmt.Errorf("count sources: %w", err)
	}
	return total, embedded, nil
}

func scanSource(row pgx.Row) (models.SourceRecord, error) {
	var rec models.SourceRecord
	var emb *string
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Authors, &rec.PublicationYear, &rec.Abstract, &rec.FullText, &rec.SourceType, &emb, &rec.CreatedAt); err != nil {
		return rec, err
	}
	if emb != nil {
		v, err := vector.ParseLiteral(*emb)
		if err != nil {
			return rec, err
		}
		rec.Embedding = v
	}
	return rec, nil
}
