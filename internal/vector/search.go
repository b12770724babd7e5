package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"assignhelper/internal/models"
)

// ErrSearchUnavailable wraps any backend failure during a similarity query.
var ErrSearchUnavailable = errors.New("search unavailable")

const DefaultTopK = 5

type Filters struct {
	SourceType string `json:"source_type,omitempty"`
	MinYear    int    `json:"min_year,omitempty"`
	MaxYear    int    `json:"max_year,omitempty"`
}

// Index is a read-only similarity view over the source catalog.
type Index interface {
	Search(ctx context.Context, vec []float32, topK int, f Filters) ([]models.RankedSource, error)
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Searcher runs cosine-distance queries against academic_sources via pgvector.
type Searcher struct {
	q Queryer
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

func (s *Searcher) Search(ctx context.Context, vec []float32, topK int, f Filters) ([]models.RankedSource, error) {
	results := []models.RankedSource{}
	if len(vec) == 0 {
		return results, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	query, args := buildSearchQuery(ToLiteral(vec), topK, f)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return []models.RankedSource{}, fmt.Errorf("%w: query vector search: %v", ErrSearchUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.RankedSource
		var authors, abstract, sourceType *string
		if err := rows.Scan(&r.ID, &r.Title, &authors, &r.PublicationYear, &abstract, &sourceType, &r.Similarity); err != nil {
			return []models.RankedSource{}, fmt.Errorf("%w: scan source result: %v", ErrSearchUnavailable, err)
		}
		r.Authors, r.Abstract, r.SourceType = deref(authors), deref(abstract), deref(sourceType)
		r.Similarity = Clamp(r.Similarity)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return []models.RankedSource{}, fmt.Errorf("%w: iterate search rows: %v", ErrSearchUnavailable, err)
	}
	return results, nil
}

func buildSearchQuery(vecLiteral string, topK int, f Filters) (string, []any) {
	args := []any{vecLiteral, topK}
	var where strings.Builder
	if st := strings.TrimSpace(f.SourceType); st != "" {
		args = append(args, st)
		fmt.Fprintf(&where, "\n  AND source_type = $%d", len(args))
	}
	if f.MinYear > 0 {
		args = append(args, f.MinYear)
		fmt.Fprintf(&where, "\n  AND publication_year >= $%d", len(args))
	}
	if f.MaxYear > 0 {
		args = append(args, f.MaxYear)
		fmt.Fprintf(&where, "\n  AND publication_year <= $%d", len(args))
	}

	query := `
SELECT id, title, authors, publication_year, abstract, source_type,
       1 - (embedding <=> $1::vector) AS similarity
FROM academic_sources
WHERE embedding IS NOT NULL` + where.String() + `
ORDER BY embedding <=> $1::vector, id ASC
LIMIT $2`
	return query, args
}

// ToLiteral renders v in pgvector text form, e.g. [1,0.5,-2].
func ToLiteral(v []float32) string {
	return pgvector.NewVector(v).String()
}

// ParseLiteral is the inverse of ToLiteral.
func ParseLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("parse vector literal: malformed %q", s)
	}
	var v pgvector.Vector
	if err := v.Parse(s); err != nil {
		return nil, fmt.Errorf("parse vector literal: %w", err)
	}
	return v.Slice(), nil
}

// Clamp bounds a similarity to [0,1]; cosine distance can push it slightly outside.
// NaN, which pgvector reports for zero vectors, maps to 0.
func Clamp(sim float64) float64 {
	switch {
	case math.IsNaN(sim), sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
