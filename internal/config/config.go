// Package config loads service configuration from defaults and
// MAILRAG_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Database  DatabaseConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
	EmbedDim   int
}

type DatabaseConfig struct {
	// Backend selects the record source: "postgres" or "sqlite".
	Backend string

	// URL is the Postgres connection string (postgres backend).
	URL string

	// DataDir holds the local SQLite database (sqlite backend).
	DataDir string
}

type RetrievalConfig struct {
	TopK            int
	MaxContextChars int

	// GateMode selects the relevance judge: "floor" (similarity
	// threshold) or "model" (LLM YES/NO check).
	GateMode string

	// ScoreFloor is the similarity floor for the heuristic gate.
	ScoreFloor float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		OpenAI: OpenAIConfig{
			ChatModel:  "gpt-4o",
			EmbedModel: "text-embedding-3-small",
			EmbedDim:   1536,
		},
		Database: DatabaseConfig{
			Backend: "postgres",
			DataDir: defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			TopK:            20,
			MaxContextChars: 12000,
			GateMode:        "model",
			ScoreFloor:      0.25,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "mailrag")
}

// Load builds the configuration from defaults and environment overrides.
// The OpenAI API key is required; everything else has a usable default.
func Load() (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key. Set it via environment variable MAILRAG_OPENAI_API_KEY")
	}
	if cfg.Database.Backend == "postgres" && cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("missing required config: database URL. Set it via environment variable MAILRAG_DATABASE_URL, or select the sqlite backend with MAILRAG_DATABASE_BACKEND=sqlite")
	}
	if cfg.Database.Backend != "postgres" && cfg.Database.Backend != "sqlite" {
		return Config{}, fmt.Errorf("unknown database backend %q (want postgres or sqlite)", cfg.Database.Backend)
	}
	if cfg.Retrieval.GateMode != "floor" && cfg.Retrieval.GateMode != "model" {
		return Config{}, fmt.Errorf("unknown gate mode %q (want floor or model)", cfg.Retrieval.GateMode)
	}
	return cfg, nil
}
