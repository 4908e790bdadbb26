package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CREWMATCH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "CREWMATCH_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "ollama.base_url", typ: kString, env: "CREWMATCH_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.chat_model", typ: kString, env: "CREWMATCH_OLLAMA_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.ChatModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "CREWMATCH_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "storage.backend", typ: kString, env: "CREWMATCH_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CREWMATCH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "match.top_k", typ: kInt, env: "CREWMATCH_MATCH_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Match.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Match.TopK },
	},
	{
		key: "match.pool_size", typ: kInt, env: "CREWMATCH_MATCH_POOL_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Match.PoolSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Match.PoolSize },
	},
	{
		key: "match.semantic_weight", typ: kFloat, env: "CREWMATCH_MATCH_SEMANTIC_WEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Match.SemanticWeight = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.SemanticWeight },
	},
	{
		key: "match.skills_weight", typ: kFloat, env: "CREWMATCH_MATCH_SKILLS_WEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Match.SkillsWeight = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.SkillsWeight },
	},
	{
		key: "match.availability_weight", typ: kFloat, env: "CREWMATCH_MATCH_AVAILABILITY_WEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Match.AvailabilityWeight = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.AvailabilityWeight },
	},
	{
		key: "match.upstream_timeout", typ: kString, env: "CREWMATCH_MATCH_UPSTREAM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Match.UpstreamTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Match.UpstreamTimeout },
	},
	{
		key: "api.token", typ: kString, env: "CREWMATCH_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
	{
		key: "log.level", typ: kString, env: "CREWMATCH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
