// Package config loads pdfrag settings from defaults, TOML or YAML files,
// .env files and PDFRAG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Index     IndexConfig     `toml:"index" yaml:"index"`
	Splitter  SplitterConfig  `toml:"splitter" yaml:"splitter"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	QA        QAConfig        `toml:"qa" yaml:"qa"`
	Inbox     InboxConfig     `toml:"inbox" yaml:"inbox"`
	Reconcile ReconcileConfig `toml:"reconcile" yaml:"reconcile"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host                string `toml:"host" yaml:"host"`
	Port                int    `toml:"port" yaml:"port" validate:"min=1,max=65535"`
	MaxUploadMB         int    `toml:"max_upload_mb" yaml:"max_upload_mb" validate:"min=1"`
	ShutdownTimeoutSecs int    `toml:"shutdown_timeout_secs" yaml:"shutdown_timeout_secs" validate:"min=0"`
}

// StorageConfig locates the SQLite databases.
type StorageConfig struct {
	DataDir string `toml:"data_dir" yaml:"data_dir" validate:"required"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend     string       `toml:"backend" yaml:"backend" validate:"oneof=sqlite memory qdrant"`
	TopK        int          `toml:"top_k" yaml:"top_k" validate:"min=1,max=100"`
	TimeoutSecs int          `toml:"timeout_secs" yaml:"timeout_secs" validate:"min=0"`
	MaxAttempts int          `toml:"max_attempts" yaml:"max_attempts" validate:"min=1,max=10"`
	Qdrant      QdrantConfig `toml:"qdrant" yaml:"qdrant"`
}

// QdrantConfig holds Qdrant REST connection details.
type QdrantConfig struct {
	URL    string `toml:"url" yaml:"url" validate:"omitempty,url"`
	APIKey string `toml:"api_key" yaml:"api_key"`
}

// SplitterConfig sizes chunks in characters.
type SplitterConfig struct {
	ChunkSize    int `toml:"chunk_size" yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap int `toml:"chunk_overlap" yaml:"chunk_overlap" validate:"min=0,ltfield=ChunkSize"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider" yaml:"provider" validate:"oneof=gemini ollama local"`
	Model             string  `toml:"model" yaml:"model"`
	Dimensions        int     `toml:"dimensions" yaml:"dimensions" validate:"min=0"`
	BaseURL           string  `toml:"base_url" yaml:"base_url" validate:"omitempty,url"`
	APIKey            string  `toml:"api_key" yaml:"api_key"`
	Concurrency       int     `toml:"concurrency" yaml:"concurrency" validate:"min=0"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second" validate:"min=0"`
	TimeoutSecs       int     `toml:"timeout_secs" yaml:"timeout_secs" validate:"min=0"`
	MaxAttempts       int     `toml:"max_attempts" yaml:"max_attempts" validate:"min=1,max=10"`
}

// LLMConfig selects the generation provider. MaxAttempts defaults to a single call.
type LLMConfig struct {
	Provider    string  `toml:"provider" yaml:"provider" validate:"oneof=gemini claude ollama local"`
	Model       string  `toml:"model" yaml:"model"`
	BaseURL     string  `toml:"base_url" yaml:"base_url" validate:"omitempty,url"`
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	Temperature float64 `toml:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens" validate:"min=0"`
	TimeoutSecs int     `toml:"timeout_secs" yaml:"timeout_secs" validate:"min=0"`
	MaxAttempts int     `toml:"max_attempts" yaml:"max_attempts" validate:"min=1,max=10"`
}

// QAConfig controls question/answer bookkeeping.
type QAConfig struct {
	LinkToLatestDocument bool `toml:"link_to_latest_document" yaml:"link_to_latest_document"`
}

// InboxConfig configures the watched drop directory.
type InboxConfig struct {
	Dir          string `toml:"dir" yaml:"dir"`
	SettleMillis int    `toml:"settle_millis" yaml:"settle_millis" validate:"min=0"`
}

// ReconcileConfig configures orphan cleanup.
type ReconcileConfig struct {
	Schedule             string `toml:"schedule" yaml:"schedule"`
	RemoveStaleDocuments bool   `toml:"remove_stale_documents" yaml:"remove_stale_documents"`
	GraceMinutes         int    `toml:"grace_minutes" yaml:"grace_minutes" validate:"min=0"`
}

// LoggingConfig configures arbor writers.
type LoggingConfig struct {
	Level  string   `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output" yaml:"output" validate:"dive,oneof=console stdout file"`
	File   string   `toml:"file" yaml:"file"`
}

// NewDefaultConfig returns a configuration that runs fully offline.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "localhost",
			Port:                8080,
			MaxUploadMB:         50,
			ShutdownTimeoutSecs: 10,
		},
		Storage: StorageConfig{DataDir: "./data"},
		Index: IndexConfig{
			Backend:     "sqlite",
			TopK:        4,
			TimeoutSecs: 15,
			MaxAttempts: 3,
			Qdrant:      QdrantConfig{URL: "http://localhost:6333"},
		},
		Splitter: SplitterConfig{ChunkSize: 1000, ChunkOverlap: 200},
		Embedding: EmbeddingConfig{
			Provider:    "local",
			Concurrency: 4,
			TimeoutSecs: 30,
			MaxAttempts: 3,
		},
		LLM: LLMConfig{
			Provider:    "local",
			Temperature: 0,
			MaxTokens:   1024,
			TimeoutSecs: 60,
			MaxAttempts: 1,
		},
		Inbox:     InboxConfig{SettleMillis: 500},
		Reconcile: ReconcileConfig{GraceMinutes: 60},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"console"},
		},
	}
}

// NewGeminiConfig returns the defaults switched to Gemini embeddings and
// generation. API keys come from GEMINI_API_KEY or GOOGLE_API_KEY.
func NewGeminiConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Embedding.Provider = "gemini"
	cfg.Embedding.Model = "text-embedding-004"
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.LLM.Temperature = 0
	return cfg
}

// Load applies defaults, then each file in order, then PDFRAG_* variables,
// and validates the result. Missing files are an error.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Save writes cfg to path as TOML or YAML, chosen by extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml", "":
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and provider requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Embedding.Provider == "gemini" && c.Embedding.APIKey == "" {
		return errors.New("invalid config: embedding.api_key is required for gemini")
	}
	switch c.LLM.Provider {
	case "gemini", "claude":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("invalid config: llm.api_key is required for %s", c.LLM.Provider)
		}
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Seconds converts a seconds field to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// applyEnvOverrides applies PDFRAG_* variables, plus the providers' usual
// API key variables when no key is configured.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("PDFRAG_SERVER_HOST", &cfg.Server.Host)
	num("PDFRAG_SERVER_PORT", &cfg.Server.Port)
	num("PDFRAG_SERVER_MAX_UPLOAD_MB", &cfg.Server.MaxUploadMB)
	str("PDFRAG_DATA_DIR", &cfg.Storage.DataDir)

	str("PDFRAG_INDEX_BACKEND", &cfg.Index.Backend)
	num("PDFRAG_INDEX_TOP_K", &cfg.Index.TopK)
	str("PDFRAG_QDRANT_URL", &cfg.Index.Qdrant.URL)
	str("PDFRAG_QDRANT_API_KEY", &cfg.Index.Qdrant.APIKey)

	str("PDFRAG_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("PDFRAG_EMBEDDING_MODEL", &cfg.Embedding.Model)
	str("PDFRAG_EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL)
	str("PDFRAG_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)

	str("PDFRAG_LLM_PROVIDER", &cfg.LLM.Provider)
	str("PDFRAG_LLM_MODEL", &cfg.LLM.Model)
	str("PDFRAG_LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("PDFRAG_LLM_API_KEY", &cfg.LLM.APIKey)
	num("PDFRAG_LLM_MAX_ATTEMPTS", &cfg.LLM.MaxAttempts)

	flag("PDFRAG_QA_LINK_TO_LATEST_DOCUMENT", &cfg.QA.LinkToLatestDocument)
	str("PDFRAG_INBOX_DIR", &cfg.Inbox.Dir)
	str("PDFRAG_RECONCILE_SCHEDULE", &cfg.Reconcile.Schedule)

	str("PDFRAG_LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv("PDFRAG_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = strings.Split(v, ",")
	}

	if cfg.Embedding.Provider == "gemini" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	switch cfg.LLM.Provider {
	case "gemini":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
	case "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
