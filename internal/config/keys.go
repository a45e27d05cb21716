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
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "MAILRAG_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "MAILRAG_OPENAI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
	},
	{
		env: "MAILRAG_OPENAI_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
	},
	{
		env: "MAILRAG_LLM_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.ChatModel = v.(string) },
	},
	{
		env: "MAILRAG_EMBEDDER_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.EmbedModel = v.(string) },
	},
	{
		env: "MAILRAG_EMBEDDER_DIMENSIONS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.OpenAI.EmbedDim = v.(int) },
	},
	{
		env: "MAILRAG_DATABASE_BACKEND", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Database.Backend = v.(string) },
	},
	{
		env: "MAILRAG_DATABASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Database.URL = v.(string) },
	},
	{
		env: "MAILRAG_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Database.DataDir = v.(string) },
	},
	{
		env: "MAILRAG_MAX_CHUNKS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
	},
	{
		env: "MAILRAG_MAX_CONTEXT_CHARS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.MaxContextChars = v.(int) },
	},
	{
		env: "MAILRAG_GATE_MODE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Retrieval.GateMode = v.(string) },
	},
	{
		env: "MAILRAG_SCORE_FLOOR", typ: kFloat,
		apply: func(cfg *Config, v any) { cfg.Retrieval.ScoreFloor = v.(float64) },
	},
	{
		env: "MAILRAG_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
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
