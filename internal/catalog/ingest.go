// Package catalog writes to the academic source catalog: single and batch
// ingestion plus embedding backfill for rows stored without a vector.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assignhelper/internal/models"
	"assignhelper/internal/providers"
)

var ErrEmptySource = errors.New("no text content available for embedding generation")

type Store interface {
	Insert(ctx context.Context, src models.SourceRecord) (int64, error)
	Get(ctx context.Context, id int64) (models.SourceRecord, error)
	ListMissingEmbeddings(ctx context.Context, limit int) ([]models.SourceRecord, error)
	UpdateEmbedding(ctx context.Context, id int64, vec []float32) error
}

type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, providers.ProviderInfo, error)
}

type SourceInput struct {
	Title           string `json:"title" yaml:"title"`
	Authors         string `json:"authors" yaml:"authors"`
	PublicationYear *int   `json:"publication_year,omitempty" yaml:"publication_year"`
	Abstract        string `json:"abstract" yaml:"abstract"`
	FullText        string `json:"full_text,omitempty" yaml:"full_text"`
	SourceType      string `json:"source_type" yaml:"source_type"`
}

type IngestResult struct {
	Success  bool   `json:"success"`
	SourceID int64  `json:"source_id,omitempty"`
	Title    string `json:"title"`
	Pending  bool   `json:"pending_embedding,omitempty"`
	Error    string `json:"error,omitempty"`
}

type BatchResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []IngestResult `json:"results"`
}

type Ingester struct {
	store    Store
	embedder Embedder

	// DeferEmbedding stores rows with a NULL embedding instead of failing
	// when the provider is down; Backfill fills them later.
	DeferEmbedding bool
}

func NewIngester(store Store, embedder Embedder) *Ingester {
	return &Ingester{store: store, embedder: embedder}
}

// EmbeddingText is the text a source is indexed by.
func EmbeddingText(title, authors, abstract string) string {
	return strings.TrimSpace(strings.Join([]string{title, authors, abstract}, " "))
}

func (g *Ingester) Ingest(ctx context.Context, in SourceInput) (IngestResult, error) {
	res := IngestResult{Title: in.Title}
	if strings.TrimSpace(in.Title) == "" {
		return res, fmt.Errorf("ingest source: title is required")
	}
	text := EmbeddingText(in.Title, in.Authors, in.Abstract)
	if text == "" {
		return res, fmt.Errorf("ingest source: %w", ErrEmptySource)
	}

	rec := models.SourceRecord{
		Title:           strings.TrimSpace(in.Title),
		Authors:         strings.TrimSpace(in.Authors),
		PublicationYear: in.PublicationYear,
		Abstract:        in.Abstract,
		FullText:        in.FullText,
		SourceType:      strings.TrimSpace(in.SourceType),
	}
	vec, _, err := g.embedder.Generate(ctx, text)
	if err != nil {
		if !g.DeferEmbedding {
			return res, fmt.Errorf("ingest source %q: %w", in.Title, err)
		}
		res.Pending = true
	} else {
		rec.Embedding = vec
	}

	id, err := g.store.Insert(ctx, rec)
	if err != nil {
		return res, fmt.Errorf("ingest source %q: %w", in.Title, err)
	}
	res.Success = true
	res.SourceID = id
	return res, nil
}

// IngestBatch ingests every input in order; one failure never aborts the rest.
func (g *Ingester) IngestBatch(ctx context.Context, inputs []SourceInput) BatchResult {
	out := BatchResult{Total: len(inputs), Results: make([]IngestResult, 0, len(inputs))}
	for _, in := range inputs {
		res, err := g.Ingest(ctx, in)
		if err != nil {
			res.Success = false
			res.Error = err.Error()
			out.Failed++
		} else {
			out.Successful++
		}
		out.Results = append(out.Results, res)
	}
	return out
}

type BackfillResult struct {
	Scanned int      `json:"scanned"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Backfill embeds up to limit sources whose embedding is NULL. Embeddings are
// only ever set on rows that lack one.
func (g *Ingester) Backfill(ctx context.Context, limit int) (BackfillResult, error) {
	var out BackfillResult
	pending, err := g.store.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return out, fmt.Errorf("backfill embeddings: %w", err)
	}
	out.Scanned = len(pending)
	for _, src := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		vec, _, err := g.embedder.Generate(ctx, EmbeddingText(src.Title, src.Authors, src.Abstract))
		if err == nil {
			err = g.store.UpdateEmbedding(ctx, src.ID, vec)
		}
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("source %d: %v", src.ID, err))
			continue
		}
		out.Updated++
	}
	return out, nil
}
