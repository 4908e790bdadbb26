package config

import (
	"errors"
	"testing"
)

// mockBackend is an in-memory ConfigBackend.
type mockBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mockBackend) SetString(key, val string) error { return nil }
func (m *mockBackend) SetInt(key string, val int) error { return nil }
func (m *mockBackend) Delete(key string) error          { return nil }

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func emptyBackend() *mockBackend {
	return &mockBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(emptyBackend(), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 8001 {
		t.Errorf("Server.MCPPort = %d, want 8001", cfg.Server.MCPPort)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.ChatModel != "llama3.1" {
		t.Errorf("Ollama.ChatModel = %q", cfg.Ollama.ChatModel)
	}
	if cfg.Ollama.EmbedModel != "nomic-embed-text" {
		t.Errorf("Ollama.EmbedModel = %q", cfg.Ollama.EmbedModel)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Match.TopK != 10 {
		t.Errorf("Match.TopK = %d, want 10", cfg.Match.TopK)
	}
	if cfg.Match.SemanticWeight != 0.5 || cfg.Match.SkillsWeight != 0.35 || cfg.Match.AvailabilityWeight != 0.15 {
		t.Errorf("weights = %v/%v/%v", cfg.Match.SemanticWeight, cfg.Match.SkillsWeight, cfg.Match.AvailabilityWeight)
	}
	if cfg.API.Token != "" {
		t.Errorf("API.Token = %q, want empty", cfg.API.Token)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	b := &mockBackend{
		strings: map[string]string{
			"ollama.chat_model":     "mistral-nemo",
			"storage.backend":       "chromem",
			"match.semantic_weight": "0.6",
			"log.level":             "debug",
		},
		ints: map[string]int{
			"server.port": 9000,
			"match.top_k": 20,
		},
	}

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Ollama.ChatModel != "mistral-nemo" {
		t.Errorf("Ollama.ChatModel = %q", cfg.Ollama.ChatModel)
	}
	if cfg.Storage.Backend != "chromem" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Match.TopK != 20 {
		t.Errorf("Match.TopK = %d, want 20", cfg.Match.TopK)
	}
	if cfg.Match.SemanticWeight != 0.6 {
		t.Errorf("Match.SemanticWeight = %v, want 0.6", cfg.Match.SemanticWeight)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := emptyBackend()
	b.ints["server.port"] = 9000

	t.Setenv("CREWMATCH_SERVER_PORT", "7000")
	t.Setenv("CREWMATCH_MATCH_SKILLS_WEIGHT", "0.4")

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want env override 7000", cfg.Server.Port)
	}
	if cfg.Match.SkillsWeight != 0.4 {
		t.Errorf("Match.SkillsWeight = %v, want 0.4", cfg.Match.SkillsWeight)
	}
}

func TestBadEnvValueKeepsDefault(t *testing.T) {
	t.Setenv("CREWMATCH_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(emptyBackend(), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestTokenEnvOverride(t *testing.T) {
	t.Setenv("CREWMATCH_API_TOKEN", "env-token")

	cfg, err := loadWith(emptyBackend(), mockKeychain{value: "keychain-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("API.Token = %q, want env-token", cfg.API.Token)
	}
}

func TestTokenKeychainFallback(t *testing.T) {
	t.Setenv("CREWMATCH_API_TOKEN", "")

	cfg, err := loadWith(emptyBackend(), mockKeychain{value: "keychain-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "keychain-token" {
		t.Errorf("API.Token = %q, want keychain-token", cfg.API.Token)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.API.Token = "super-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "api.token" || info.Value == "super-secret" {
			t.Errorf("secret leaked in ShowAll: %+v", info)
		}
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "api.token" {
			t.Error("api.token should not be listed as settable")
		}
	}
}
