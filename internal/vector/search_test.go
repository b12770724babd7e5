package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSearchQueryNoFilters(t *testing.T) {
	q, args := buildSearchQuery("[1,2]", 5, Filters{})
	require.Equal(t, []any{"[1,2]", 5}, args)
	require.Contains(t, q, "1 - (embedding <=> $1::vector) AS similarity")
	require.Contains(t, q, "WHERE embedding IS NOT NULL")
	require.Contains(t, q, "ORDER BY embedding <=> $1::vector, id ASC")
	require.Contains(t, q, "LIMIT $2")
	require.NotContains(t, q, "$3")
}

func TestBuildSearchQueryFilterPlaceholders(t *testing.T) {
	q, args := buildSearchQuery("[1]", 3, Filters{SourceType: "journal", MinYear: 2000, MaxYear: 2010})
	require.Equal(t, []any{"[1]", 3, "journal", 2000, 2010}, args)
	require.Contains(t, q, "AND source_type = $3")
	require.Contains(t, q, "AND publication_year >= $4")
	require.Contains(t, q, "AND publication_year <= $5")

	q, args = buildSearchQuery("[1]", 3, Filters{MaxYear: 2010})
	require.Equal(t, []any{"[1]", 3, 2010}, args)
	require.Contains(t, q, "AND publication_year <= $3")
}

func TestLiteralRoundTrip(t *testing.T) {
	v := []float32{0.1, -2.5, 3}
	lit := ToLiteral(v)
	require.Equal(t, "[0.1,-2.5,3]", lit)
	back, err := ParseLiteral(lit)
	require.NoError(t, err)
	require.Equal(t, v, back)

	_, err = ParseLiteral("[]")
	require.Error(t, err)
	_, err = ParseLiteral("nope")
	require.Error(t, err)
}

func TestClampAndCosine(t *testing.T) {
	require.Equal(t, 0.0, Clamp(-0.2))
	require.Equal(t, 1.0, Clamp(1.0000001))
	require.Equal(t, 0.5, Clamp(0.5))
	require.Equal(t, 0.0, Clamp(math.NaN()))

	require.InDelta(t, 1.0, Cosine([]float32{1, 1}, []float32{2, 2}), 1e-9)
	require.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	require.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
}
