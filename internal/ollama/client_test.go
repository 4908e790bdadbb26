package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChat_SendsSchemaAndReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req["stream"] != false {
			t.Error("stream should be false")
		}
		if req["format"] == nil {
			t.Error("format missing despite schema")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"ok":true}`},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	schema := &Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"ok": {Type: "boolean"},
		},
		Required: []string{"ok"},
	}
	got, err := c.Chat(context.Background(), "llama3.1", []Message{{Role: "user", Content: "hi"}}, schema)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("content = %q", got)
	}
}

func TestChat_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Chat(context.Background(), "m", nil, nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer srv.Close()

	vec, err := New(srv.URL).Embed(context.Background(), "nomic-embed-text", "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("got %d dimensions, want 3", len(vec))
	}
}

func TestEmbed_EmptyEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Embed(context.Background(), "m", "x"); err == nil {
		t.Fatal("expected error for empty embeddings")
	}
}

func TestHasModel_MatchesTagSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "llama3.1:latest"}, {"name": "nomic-embed-text:v1.5"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()
	if !c.HasModel(ctx, "llama3.1") {
		t.Error("llama3.1 should match llama3.1:latest")
	}
	if c.HasModel(ctx, "mistral") {
		t.Error("mistral should not be present")
	}
}

func TestSchema_MarshalsNestedItems(t *testing.T) {
	s := Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"roles": {
				Type: "array",
				Items: &Schema{
					Type: "object",
					Properties: map[string]SchemaProperty{
						"title":  {Type: "string"},
						"skills": {Type: "array", Items: &Schema{Type: "string"}},
					},
					Required: []string{"title", "skills"},
				},
			},
		},
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	props := round["properties"].(map[string]any)
	roles := props["roles"].(map[string]any)
	if roles["items"] == nil {
		t.Error("nested items lost in marshalling")
	}
}
