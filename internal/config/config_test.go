package config

import (
	"strings"
	"testing"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("MAILRAG_OPENAI_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error without API key, got nil")
	}
	if !strings.Contains(err.Error(), "MAILRAG_OPENAI_API_KEY") {
		t.Errorf("error %q should name the env var", err)
	}
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("MAILRAG_OPENAI_API_KEY", "sk-test")
	t.Setenv("MAILRAG_DATABASE_BACKEND", "")
	t.Setenv("MAILRAG_DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error without database URL, got nil")
	}
	if !strings.Contains(err.Error(), "MAILRAG_DATABASE_URL") {
		t.Errorf("error %q should name the env var", err)
	}
}

func TestLoad_SQLiteNeedsNoURL(t *testing.T) {
	t.Setenv("MAILRAG_OPENAI_API_KEY", "sk-test")
	t.Setenv("MAILRAG_DATABASE_BACKEND", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Database.Backend)
	}
	if cfg.Database.DataDir == "" {
		t.Error("DataDir default is empty")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MAILRAG_OPENAI_API_KEY", "sk-test")
	t.Setenv("MAILRAG_DATABASE_BACKEND", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %q, want gpt-4o", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.EmbedDim != 1536 {
		t.Errorf("EmbedDim = %d, want 1536", cfg.OpenAI.EmbedDim)
	}
	if cfg.Retrieval.TopK != 20 {
		t.Errorf("TopK = %d, want 20", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MaxContextChars != 12000 {
		t.Errorf("MaxContextChars = %d, want 12000", cfg.Retrieval.MaxContextChars)
	}
	if cfg.Retrieval.GateMode != "model" {
		t.Errorf("GateMode = %q, want model", cfg.Retrieval.GateMode)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAILRAG_OPENAI_API_KEY", "sk-test")
	t.Setenv("MAILRAG_DATABASE_BACKEND", "sqlite")
	t.Setenv("MAILRAG_SERVER_PORT", "9191")
	t.Setenv("MAILRAG_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("MAILRAG_MAX_CHUNKS", "5")
	t.Setenv("MAILRAG_SCORE_FLOOR", "0.4")
	t.Setenv("MAILRAG_GATE_MODE", "floor")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q, want gpt-4o-mini", cfg.OpenAI.ChatModel)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ScoreFloor != 0.4 {
		t.Errorf("ScoreFloor = %v, want 0.4", cfg.Retrieval.ScoreFloor)
	}
	if cfg.Retrieval.GateMode != "floor" {
		t.Errorf("GateMode = %q, want floor", cfg.Retrieval.GateMode)
	}
}

func TestLoad_UnparseableIntKeepsDefault(t *testing.T) {
	t.Setenv("MAILRAG_OPENAI_API_KEY", "sk-test")
	t.Setenv("MAILRAG_DATABASE_BACKEND", "sqlite")
	t.Setenv("MAILRAG_SERVER_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestLoad_RejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"backend", "MAILRAG_DATABASE_BACKEND", "mysql"},
		{"gate mode", "MAILRAG_GATE_MODE", "coin-flip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAILRAG_OPENAI_API_KEY", "sk-test")
			t.Setenv("MAILRAG_DATABASE_BACKEND", "sqlite")
			t.Setenv(tt.env, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q, got nil", tt.env, tt.val)
			}
		})
	}
}
