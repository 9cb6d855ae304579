package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

func newTestOpenAIClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(&OpenAIConfig{
		BaseURL:        baseURL,
		Model:          "gpt-4o",
		EmbeddingModel: "test-embed",
		MaxTokens:      256,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}
	return client
}

func TestOpenAIClient_BuildRequest_ZeroTemperatureSurvivesSerialization(t *testing.T) {
	client := newTestOpenAIClient(t, "http://localhost:1")

	req := client.buildRequest(&GenerateRequest{
		Turns:       []models.Turn{{Role: models.ChatRoleUser, Content: "hi"}},
		Temperature: 0,
	})

	// A literal 0 would be dropped by the omitempty tag and the provider
	// would substitute its own default.
	if req.Temperature != math.SmallestNonzeroFloat32 {
		t.Errorf("expected smallest nonzero float for temperature 0, got %v", req.Temperature)
	}

	req = client.buildRequest(&GenerateRequest{
		Turns:       []models.Turn{{Role: models.ChatRoleUser, Content: "hi"}},
		Temperature: 0.35,
	})
	if req.Temperature != 0.35 {
		t.Errorf("expected temperature 0.35 passed through, got %v", req.Temperature)
	}
}

func embeddingsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func TestOpenAIClient_Embed_OrdersByProviderIndex(t *testing.T) {
	// Data arrives permuted; the index field, not response position,
	// ties each embedding to its input.
	srv := embeddingsServer(t, `{
		"object": "list",
		"data": [
			{"object": "embedding", "index": 1, "embedding": [0.4, 0.5]},
			{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]}
		],
		"model": "test-embed",
		"usage": {"prompt_tokens": 2, "total_tokens": 2}
	}`)
	defer srv.Close()

	client := newTestOpenAIClient(t, srv.URL)
	embeddings, err := client.Embed(context.Background(), []string{"first", "second"}, "")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if embeddings[0][0] != 0.1 || embeddings[1][0] != 0.4 {
		t.Errorf("embeddings not matched to inputs by index: %v", embeddings)
	}
}

func TestOpenAIClient_Embed_DuplicateIndexFailsBatch(t *testing.T) {
	srv := embeddingsServer(t, `{
		"object": "list",
		"data": [
			{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]},
			{"object": "embedding", "index": 0, "embedding": [0.3, 0.4]}
		],
		"model": "test-embed",
		"usage": {"prompt_tokens": 2, "total_tokens": 2}
	}`)
	defer srv.Close()

	client := newTestOpenAIClient(t, srv.URL)
	_, err := client.Embed(context.Background(), []string{"first", "second"}, "")
	if !errors.Is(err, apperrors.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding for unfilled input slot, got %v", err)
	}
}
