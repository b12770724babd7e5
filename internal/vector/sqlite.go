package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"assignhelper/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS academic_sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  authors TEXT NOT NULL DEFAULT '',
  publication_year INTEGER,
  abstract TEXT NOT NULL DEFAULT '',
  full_text TEXT NOT NULL DEFAULT '',
  source_type TEXT NOT NULL DEFAULT '',
  embedding TEXT,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_academic_sources_type ON academic_sources(source_type);`

// SQLiteStore is a file-backed source catalog for local runs and tests.
// Embeddings are kept as pgvector text literals and ranked in process.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite catalog: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, src models.SourceRecord) (int64, error) {
	var emb any
	if len(src.Embedding) > 0 {
		emb = ToLiteral(src.Embedding)
	}
	var year any
	if src.PublicationYear != nil {
		year = *src.PublicationYear
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO academic_sources (title, authors, publication_year, abstract, full_text, source_type, embedding, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		src.Title, src.Authors, year, src.Abstract, src.FullText, src.SourceType, emb, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert source id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (models.SourceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, authors, publication_year, abstract, full_text, source_type, embedding, created_at
FROM academic_sources WHERE id = ?`, id)
	rec, err := scanSQLiteSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SourceRecord{}, fmt.Errorf("source %d: %w", id, models.ErrNotFound)
	}
	return rec, err
}

func (s *SQLiteStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]models.SourceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, authors, publication_year, abstract, full_text, source_type, embedding, created_at
FROM academic_sources WHERE embedding IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sources missing embeddings: %w", err)
	}
	defer rows.Close()
	out := []models.SourceRecord{}
	for rows.Next() {
		rec, err := scanSQLiteSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE academic_sources SET embedding = ? WHERE id = ? AND embedding IS NULL`, ToLiteral(vec), id)
	if err != nil {
		return fmt.Errorf("update source embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %d without embedding: %w", id, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, vec []float32, topK int, f Filters) ([]models.RankedSource, error) {
	results := []models.RankedSource{}
	if len(vec) == 0 {
		return results, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	query := `
SELECT id, title, authors, publication_year, abstract, full_text, source_type, embedding, created_at
FROM academic_sources WHERE embedding IS NOT NULL`
	var args []any
	if st := strings.TrimSpace(f.SourceType); st != "" {
		query += " AND source_type = ?"
		args = append(args, st)
	}
	if f.MinYear > 0 {
		query += " AND publication_year >= ?"
		args = append(args, f.MinYear)
	}
	if f.MaxYear > 0 {
		query += " AND publication_year <= ?"
		args = append(args, f.MaxYear)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return results, fmt.Errorf("%w: query sqlite catalog: %v", ErrSearchUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanSQLiteSource(rows)
		if err != nil {
			return []models.RankedSource{}, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
		}
		if len(rec.Embedding) != len(vec) {
			return []models.RankedSource{}, fmt.Errorf("%w: source %d has %d dimensions, query has %d", ErrSearchUnavailable, rec.ID, len(rec.Embedding), len(vec))
		}
		results = append(results, models.RankedSource{
			ID:              rec.ID,
			Title:           rec.Title,
			Authors:         rec.Authors,
			PublicationYear: rec.PublicationYear,
			Abstract:        rec.Abstract,
			SourceType:      rec.SourceType,
			Similarity:      Clamp(Cosine(vec, rec.Embedding)),
		})
	}
	if err := rows.Err(); err != nil {
		return []models.RankedSource{}, fmt.Errorf("%w: iterate sqlite rows: %v", ErrSearchUnavailable, err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSource(r rowScanner) (models.SourceRecord, error) {
	var rec models.SourceRecord
	var year sql.NullInt64
	var emb sql.NullString
	var created string
	if err := r.Scan(&rec.ID, &rec.Title, &rec.Authors, &year, &rec.Abstract, &rec.FullText, &rec.SourceType, &emb, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan source: %w", err)
	}
	if year.Valid {
		y := int(year.Int64)
		rec.PublicationYear = &y
	}
	if emb.Valid {
		v, err := ParseLiteral(emb.String)
		if err != nil {
			return rec, fmt.Errorf("source %d: %w", rec.ID, err)
		}
		rec.Embedding = v
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
