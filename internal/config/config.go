package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	AdminToken    string           `json:"admin_token"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	AI            AIConfig         `json:"ai"`
	Chat          ChatConfig       `json:"chat"`
	Jobs          JobConfig        `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// Enabled reports whether a persistent store is configured at all.
// Running without one is supported: the pipeline then works purely
// from the built-in sample knowledge and deterministic templates.
func (c DatabaseConfig) Enabled() bool {
	return c.DSN != "" || c.Host != ""
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	RouterModel    string      `json:"router_model"`
	AnswerModel    string      `json:"answer_model"`
	EmbeddingModel string      `json:"embedding_model"`
	Timeout        int         `json:"timeout"`
	MaxInputChars  int         `json:"max_input_chars"`
	Disabled       bool        `json:"disabled"`
}

type ChatConfig struct {
	RateLimitSeconds int `json:"rate_limit_seconds"`
	RetrievalTopK    int `json:"retrieval_top_k"`
}

type JobConfig struct {
	EmbeddingBackfillSpec  string `json:"embedding_backfill_spec"`
	EmbeddingBackfillBatch int    `json:"embedding_backfill_batch"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider != "" && cfg.AI.Data == nil {
		return nil, fmt.Errorf("ai.data is required when ai.provider is set")
	}
	if cfg.AI.RouterModel == "" {
		cfg.AI.RouterModel = "gpt-4.1"
	}
	if cfg.AI.AnswerModel == "" {
		cfg.AI.AnswerModel = "gpt-4.1"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 1200
	}
	if cfg.Chat.RetrievalTopK == 0 {
		cfg.Chat.RetrievalTopK = 6
	}
	if cfg.Jobs.EmbeddingBackfillSpec == "" {
		cfg.Jobs.EmbeddingBackfillSpec = "*/10 * * * *"
	}
	if cfg.Jobs.EmbeddingBackfillBatch == 0 {
		cfg.Jobs.EmbeddingBackfillBatch = 20
	}
	return &cfg, nil
}
