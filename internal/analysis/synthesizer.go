package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assignhelper/internal/config"
	"assignhelper/internal/models"
	"assignhelper/internal/providers"
)

var (
	ErrSynthesisCall  = errors.New("synthesis call failed")
	ErrSynthesisParse = errors.New("synthesis response unparseable")
)

const Operation = "assignment_analysis"

type Synthesizer struct {
	llm         providers.LLMProvider
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

func NewSynthesizer(llm providers.LLMProvider, cfg config.Config) *Synthesizer {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	return &Synthesizer{llm: llm, maxTokens: maxTokens, temperature: cfg.Temperature, timeout: cfg.SynthesisTimeout}
}

// Output carries the raw exchange alongside the record so callers can audit the call.
type Output struct {
	Record   models.AnalysisRecord
	Prompt   string
	Response string
	Provider providers.ProviderInfo
	Latency  time.Duration
}

// Synthesize always returns a well-formed record. On failure the record is
// Fallback() and err wraps ErrSynthesisCall or ErrSynthesisParse.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, sources []models.RankedSource) (Output, error) {
	out := Output{Record: Fallback(), Prompt: BuildPrompt(text, sources)}
	if s == nil || s.llm == nil {
		return out, fmt.Errorf("%w: no llm configured", ErrSynthesisCall)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, info, err := s.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   Operation,
		System:      SystemPrompt,
		Prompt:      out.Prompt,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	out.Latency = time.Since(start)
	out.Provider = info
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrSynthesisCall, err)
	}
	out.Response = resp.Text

	rec, err := ParseRecord(resp.Text)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrSynthesisParse, err)
	}
	out.Record = rec
	return out, nil
}
