// Package pipeline runs one assignment through embedding, source retrieval,
// plagiarism scoring and analysis synthesis. Runs never fail: component
// failures are recorded as issues and replaced by degraded values.
package pipeline

import (
	"context"
	"errors"
	"time"

	"assignhelper/internal/analysis"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
	"assignhelper/internal/plagiarism"
	"assignhelper/internal/providers"
	"assignhelper/internal/vector"
)

type State string

const (
	StateEmbedding           State = "embedding"
	StateSearching           State = "searching"
	StateScoringSynthesizing State = "scoring_synthesizing"
	StateComplete            State = "complete"
)

const (
	KindEmbeddingUnavailable  = "embedding_unavailable"
	KindSearchUnavailable     = "search_unavailable"
	KindSynthesisCallFailure  = "synthesis_call_failure"
	KindSynthesisParseFailure = "synthesis_parse_failure"
)

// Search statuses reported by SearchSources.
const (
	StatusOK                   = "ok"
	StatusEmbeddingUnavailable = KindEmbeddingUnavailable
	StatusSearchUnavailable    = KindSearchUnavailable
)

type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, providers.ProviderInfo, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, sources []models.RankedSource) (analysis.Output, error)
}

type Issue struct {
	Step    State  `json:"step"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return string(i.Step) + ": " + i.Kind + ": " + i.Message
}

type Result struct {
	Sources       []models.RankedSource       `json:"sources"`
	Plagiarism    models.PlagiarismAssessment `json:"plagiarism"`
	Analysis      models.AnalysisRecord       `json:"analysis"`
	Issues        []Issue                     `json:"issues"`
	Trace         []State                     `json:"trace"`
	EmbedProvider providers.ProviderInfo      `json:"embed_provider"`
	LLMProvider   providers.ProviderInfo      `json:"llm_provider"`
	Synthesis     analysis.Output             `json:"-"`
}

func (r Result) Degraded() bool {
	return len(r.Issues) > 0
}

type SearchOutcome struct {
	Sources  []models.RankedSource
	Status   string
	Provider providers.ProviderInfo
	Err      error
}

type Orchestrator struct {
	embedder      Embedder
	index         vector.Index
	synth         Synthesizer
	topK          int
	searchTimeout time.Duration
}

func New(e Embedder, idx vector.Index, s Synthesizer, cfg config.Config) *Orchestrator {
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = vector.DefaultTopK
	}
	return &Orchestrator{embedder: e, index: idx, synth: s, topK: topK, searchTimeout: cfg.SearchTimeout}
}

// Run executes the full pipeline on an assignment text.
func (o *Orchestrator) Run(ctx context.Context, text string) Result {
	res := Result{Issues: []Issue{}}
	enter := func(s State) { res.Trace = append(res.Trace, s) }

	enter(StateEmbedding)
	vec, info, err := o.embedder.Generate(ctx, text)
	res.EmbedProvider = info

	res.Sources = []models.RankedSource{}
	if err != nil {
		res.Issues = append(res.Issues, Issue{Step: StateEmbedding, Kind: KindEmbeddingUnavailable, Message: err.Error()})
	} else {
		enter(StateSearching)
		sources, err := o.search(ctx, vec, o.topK, vector.Filters{})
		if err != nil {
			res.Issues = append(res.Issues, Issue{Step: StateSearching, Kind: KindSearchUnavailable, Message: err.Error()})
		} else {
			res.Sources = sources
		}
	}

	enter(StateScoringSynthesizing)
	res.Plagiarism = plagiarism.Assess(text, res.Sources)
	out, err := o.synth.Synthesize(ctx, text, res.Sources)
	res.Synthesis = out
	res.Analysis = out.Record
	res.LLMProvider = out.Provider
	if err != nil {
		kind := KindSynthesisCallFailure
		if errors.Is(err, analysis.ErrSynthesisParse) {
			kind = KindSynthesisParseFailure
		}
		res.Issues = append(res.Issues, Issue{Step: StateScoringSynthesizing, Kind: kind, Message: err.Error()})
	}

	enter(StateComplete)
	return res
}

// SearchSources is the consumer query path: embed the query and rank the catalog.
func (o *Orchestrator) SearchSources(ctx context.Context, query string, topK int, f vector.Filters) SearchOutcome {
	if topK <= 0 {
		topK = o.topK
	}
	vec, info, err := o.embedder.Generate(ctx, query)
	if err != nil {
		return SearchOutcome{Sources: []models.RankedSource{}, Status: StatusEmbeddingUnavailable, Provider: info, Err: err}
	}
	sources, err := o.search(ctx, vec, topK, f)
	if err != nil {
		return SearchOutcome{Sources: []models.RankedSource{}, Status: StatusSearchUnavailable, Provider: info, Err: err}
	}
	return SearchOutcome{Sources: sources, Status: StatusOK, Provider: info}
}

func (o *Orchestrator) search(ctx context.Context, vec []float32, topK int, f vector.Filters) ([]models.RankedSource, error) {
	if o.index == nil {
		return nil, vector.ErrSearchUnavailable
	}
	if o.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.searchTimeout)
		defer cancel()
	}
	sources, err := o.index.Search(ctx, vec, topK, f)
	if err != nil {
		if !errors.Is(err, vector.ErrSearchUnavailable) {
			err = errors.Join(vector.ErrSearchUnavailable, err)
		}
		return nil, err
	}
	if sources == nil {
		sources = []models.RankedSource{}
	}
	return sources, nil
}

var _ Embedder = (*embedding.Generator)(nil)
var _ Synthesizer = (*analysis.Synthesizer)(nil)
