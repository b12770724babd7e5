package pipeline

import (
	"assignhelper/internal/analysis"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/providers"
	"assignhelper/internal/vector"
)

// FromManager wires an orchestrator from the manager's preferred embedder and LLM.
func FromManager(cfg config.Config, pm *providers.Manager, idx vector.Index) *Orchestrator {
	return New(
		embedding.NewGenerator(pm.Embedder().Provider, cfg),
		idx,
		analysis.NewSynthesizer(pm.LLM().Provider, cfg),
		cfg,
	)
}
