package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docqa API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int      `yaml:"max_upload_mb"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// CacheConfig holds the optional embedding-cache store settings.
// When Enabled is false the service runs without Redis; every build re-embeds.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLHours         int      `yaml:"ttl_hours"` // cache entry expiry
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Vectorizer VectorizerConfig          `yaml:"vectorizer"`
}

// ProviderConfig holds credentials for an OpenAI-compatible provider endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// EmptyContextPolicy selects synthesizer behavior when retrieval returns nothing.
type EmptyContextPolicy string

const (
	// EmptyContextRefuse fails the question with a no-relevant-context error.
	EmptyContextRefuse EmptyContextPolicy = "refuse"
	// EmptyContextAnswer answers from the question alone, marked as ungrounded.
	EmptyContextAnswer EmptyContextPolicy = "answer"
)

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider       string             `yaml:"provider"`
	Model          string             `yaml:"model"`
	OnEmptyContext EmptyContextPolicy `yaml:"on_empty_context"`
	MaxAttempts    int                `yaml:"max_attempts"`
	RetryBaseMS    int                `yaml:"retry_base_ms"`
}

// PipelineConfig holds chunking and retrieval settings.
type PipelineConfig struct {
	ChunkSize     int     `yaml:"chunk_size"`     // runes per chunk
	ChunkOverlap  int     `yaml:"chunk_overlap"`  // runes shared between adjacent chunks
	TopK          int     `yaml:"top_k"`          // chunks retrieved per question
	MinSimilarity float64 `yaml:"min_similarity"` // 0 = no threshold
	PromptBudget  int     `yaml:"prompt_budget"`  // max context runes in the prompt
	MaxAttempts   int     `yaml:"max_attempts"`   // embedding retry attempts
	RetryBaseMS   int     `yaml:"retry_base_ms"`  // embedding backoff base
}

// SessionsConfig holds document session settings.
type SessionsConfig struct {
	MaxDocuments int `yaml:"max_documents"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 20
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 720 // 30 days
	}
	if c.Generation.OnEmptyContext == "" {
		c.Generation.OnEmptyContext = EmptyContextRefuse
	}
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = 3
	}
	if c.Generation.RetryBaseMS <= 0 {
		c.Generation.RetryBaseMS = 200
	}
	if c.Pipeline.ChunkSize <= 0 {
		c.Pipeline.ChunkSize = 1024
	}
	if c.Pipeline.ChunkOverlap <= 0 {
		c.Pipeline.ChunkOverlap = 128
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 4
	}
	if c.Pipeline.PromptBudget <= 0 {
		c.Pipeline.PromptBudget = 8192
	}
	if c.Pipeline.MaxAttempts <= 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.RetryBaseMS <= 0 {
		c.Pipeline.RetryBaseMS = 200
	}
	if c.Sessions.MaxDocuments <= 0 {
		c.Sessions.MaxDocuments = 64
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "docqa:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	if c.Embedding.Vectorizer.Provider == "" {
		return fmt.Errorf("embedding.vectorizer.provider is required")
	}
	if _, ok := c.Embedding.Providers[c.Embedding.Vectorizer.Provider]; !ok {
		return fmt.Errorf("embedding.vectorizer.provider %q has no matching provider entry",
			c.Embedding.Vectorizer.Provider)
	}
	if c.Generation.Provider == "" {
		return fmt.Errorf("generation.provider is required")
	}
	if _, ok := c.Embedding.Providers[c.Generation.Provider]; !ok {
		return fmt.Errorf("generation.provider %q has no matching provider entry",
			c.Generation.Provider)
	}
	switch c.Generation.OnEmptyContext {
	case EmptyContextRefuse, EmptyContextAnswer:
		// ok
	default:
		return fmt.Errorf("generation.on_empty_context must be %q or %q, got %q",
			EmptyContextRefuse, EmptyContextAnswer, c.Generation.OnEmptyContext)
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline.chunk_overlap (%d) must be less than pipeline.chunk_size (%d)",
			c.Pipeline.ChunkOverlap, c.Pipeline.ChunkSize)
	}
	if c.Pipeline.MinSimilarity < 0 || c.Pipeline.MinSimilarity > 1 {
		return fmt.Errorf("pipeline.min_similarity must be in [0, 1], got %f", c.Pipeline.MinSimilarity)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
