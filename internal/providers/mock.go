package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MockProvider is deterministic and offline. It backs tests and local runs
// without API keys.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	if !strings.Contains(strings.ToLower(req.Operation), "analysis") {
		return GenerateResponse{Text: "Mock response."}, info, nil
	}
	out, _ := json.Marshal(map[string]any{
		"topic":                    mockTopic(req.Prompt),
		"academic_level":           "undergraduate",
		"key_themes":               []string{"argument structure", "use of evidence"},
		"research_questions":       []string{"What evidence supports the central claim?"},
		"research_suggestions":     "Engage with the suggested sources and cite them where relevant.",
		"citation_recommendations": "Use APA format consistently.",
		"plagiarism_risk_areas":    []string{},
	})
	return GenerateResponse{Text: string(out)}, info, nil
}

// mockTopic picks the first few words of the assignment excerpt in an analysis prompt.
func mockTopic(prompt string) string {
	body := prompt
	if i := strings.Index(prompt, "Assignment text:"); i >= 0 {
		body = prompt[i+len("Assignment text:"):]
	}
	words := strings.Fields(body)
	if len(words) == 0 {
		return "Unknown"
	}
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251), byte(i/251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
