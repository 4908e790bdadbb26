package config

import "strings"

type Config struct {
	Server  ServerConfig
	Ollama  OllamaConfig
	Storage StorageConfig
	Match   MatchConfig
	API     APIConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type OllamaConfig struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type StorageConfig struct {
	// Backend selects the profile store implementation: "sqlite" or
	// "chromem".
	Backend string
	DataDir string
}

type MatchConfig struct {
	TopK     int
	PoolSize int
	// Component weights of the composite score. They should sum to 1 to
	// keep composite scores in [0,1].
	SemanticWeight     float64
	SkillsWeight       float64
	AvailabilityWeight float64
	// UpstreamTimeout bounds one profile-store call, e.g. "5s".
	UpstreamTimeout string
}

type APIConfig struct {
	// Token guards mutating HTTP endpoints. Empty disables auth.
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    8000,
			MCPPort: 8001,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "llama3.1",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			DataDir: defaultDataDir(),
		},
		Match: MatchConfig{
			TopK:               10,
			PoolSize:           0, // derived from TopK when zero
			SemanticWeight:     0.5,
			SkillsWeight:       0.35,
			AvailabilityWeight: 0.15,
			UpstreamTimeout:    "10s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.crewmatch.app) and
// the API token falls back to macOS Keychain. On Linux the backend is a
// JSON file at $XDG_CONFIG_HOME/crewmatch/config.json.
//
// Environment variables (CREWMATCH_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts platform secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The API token is optional: without it the HTTP API runs
	// unauthenticated, which is fine for a local single-user setup.
	if cfg.API.Token == "" {
		if token, err := kc.Get("crewmatch", "api_token"); err == nil && token != "" {
			cfg.API.Token = token
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
