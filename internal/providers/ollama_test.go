package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOllamaEmbedModel(t *testing.T) {
	t.Setenv("ASSIGNHELPER_OLLAMA_EMBED_MODEL", "")
	require.Equal(t, "nomic-embed-text", resolveOllamaEmbedModel(""))
	require.Equal(t, "bge-small-en-v1.5", resolveOllamaEmbedModel("bge"))
	require.Equal(t, "mxbai-embed-large", resolveOllamaEmbedModel("mxbai-embed-large"))

	t.Setenv("ASSIGNHELPER_OLLAMA_EMBED_MODEL_LOCAL", "all-minilm")
	require.Equal(t, "all-minilm", resolveOllamaEmbedModel("local"))
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	require.Equal(t, []float32{1, 2}, matchDimension(src, 2))
	require.Equal(t, []float32{1, 2, 3, 0, 0}, matchDimension(src, 5))
	require.Equal(t, src, matchDimension(src, 0))
}

func TestOllamaEmbedAndGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embeddings":
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.5, 0.5}})
		case "/api/chat":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			opts := body["options"].(map[string]any)
			if opts["num_predict"].(float64) != 200 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "ok"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	t.Setenv("ASSIGNHELPER_OLLAMA_BASE_URL", srv.URL)

	p := NewOllamaProvider("")
	vecs, info, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 4})
	require.NoError(t, err)
	require.Equal(t, "ollama", info.Name)
	require.Len(t, vecs, 2)
	require.Len(t, vecs[0], 4)

	resp, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi", MaxTokens: 200})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
}
