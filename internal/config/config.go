package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ericksa/contractlens/internal/llm"
	"github.com/ericksa/contractlens/internal/precedent"
	"github.com/ericksa/contractlens/internal/standards"
)

// Config represents the complete contractlens configuration.
// The structure matches config.yaml and every key can be overridden by a
// CONTRACTLENS_ prefixed environment variable (dots become underscores).
type Config struct {
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	LLM        LLMConfig        `json:"llm" mapstructure:"llm"`
	Embedding  EmbeddingConfig  `json:"embedding" mapstructure:"embedding"`
	Precedents PrecedentsConfig `json:"precedents" mapstructure:"precedents"`
	Standards  StandardsConfig  `json:"standards" mapstructure:"standards"`
	Audit      AuditConfig      `json:"audit" mapstructure:"audit"`
	Log        LogConfig        `json:"log" mapstructure:"log"`
	MCP        MCPConfig        `json:"mcp" mapstructure:"mcp"`
}

type ServerConfig struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64         `json:"max_upload_mb" mapstructure:"max_upload_mb"`
	CORSOrigins     []string      `json:"cors_origins" mapstructure:"cors_origins"`
}

// LLMConfig points at an OpenAI-compatible chat completion provider
type LLMConfig struct {
	BaseURL          string        `json:"base_url" mapstructure:"base_url"`
	Model            string        `json:"model" mapstructure:"model"`
	APIKey           string        `json:"api_key" mapstructure:"api_key"`
	Temperature      float64       `json:"temperature" mapstructure:"temperature"`
	MaxTokens        int           `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout          time.Duration `json:"timeout" mapstructure:"timeout"`
	RetryAttempts    int           `json:"retry_attempts" mapstructure:"retry_attempts"`
	ResponseLanguage string        `json:"response_language" mapstructure:"response_language"`
	Referer          string        `json:"referer" mapstructure:"referer"`
	Title            string        `json:"title" mapstructure:"title"`
}

type EmbeddingConfig struct {
	Backend   string        `json:"backend" mapstructure:"backend"`
	Endpoint  string        `json:"endpoint" mapstructure:"endpoint"`
	APIKey    string        `json:"api_key" mapstructure:"api_key"`
	Dimension int           `json:"dimension" mapstructure:"dimension"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// PrecedentsConfig selects the vector store holding historical clauses
type PrecedentsConfig struct {
	Backend  string         `json:"backend" mapstructure:"backend"`
	TopN     int            `json:"top_n" mapstructure:"top_n"`
	Timeout  time.Duration  `json:"timeout" mapstructure:"timeout"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Chroma   ChromaConfig   `json:"chroma" mapstructure:"chroma"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type ChromaConfig struct {
	Endpoint   string `json:"endpoint" mapstructure:"endpoint"`
	Collection string `json:"collection" mapstructure:"collection"`
	APIKey     string `json:"api_key" mapstructure:"api_key"`
}

type PostgresConfig struct {
	URL   string `json:"url" mapstructure:"url"`
	Table string `json:"table" mapstructure:"table"`
}

// StandardsConfig locates the reference contracts
type StandardsConfig struct {
	Backend string      `json:"backend" mapstructure:"backend"`
	Dir     string      `json:"dir" mapstructure:"dir"`
	MinIO   MinIOConfig `json:"minio" mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Prefix    string `json:"prefix" mapstructure:"prefix"`
	Region    string `json:"region" mapstructure:"region"`
	UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

type MCPConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// Load reads .env, then config.yaml from the given directories (default:
// the working directory and $HOME/.contractlens), then the environment.
func Load(paths ...string) (*Config, error) {
	// Load .env first (ignore error if not present)
	_ = godotenv.Load()

	if len(paths) == 0 {
		paths = []string{".", "$HOME/.contractlens"}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("CONTRACTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Precedents.SQLite.Path = resolvePath(cfg.Precedents.SQLite.Path)
	cfg.Standards.Dir = resolvePath(cfg.Standards.Dir)
	cfg.Audit.Path = resolvePath(cfg.Audit.Path)
	return &cfg, nil
}

// bindLegacyEnv accepts the provider variable names used by existing deployments
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "CONTRACTLENS_LLM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("embedding.api_key", "CONTRACTLENS_EMBEDDING_API_KEY", "HUGGINGFACE_API_KEY")
	_ = v.BindEnv("precedents.postgres.url", "CONTRACTLENS_PRECEDENTS_POSTGRES_URL", "POSTGRES_URL")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.cors_origins", []string{"*"})

	// OpenRouter defaults
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "mistralai/mistral-small-3.2-24b-instruct:free")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.retry_attempts", 2)
	v.SetDefault("llm.response_language", "English")
	v.SetDefault("llm.referer", "")
	v.SetDefault("llm.title", "contractlens")

	v.SetDefault("embedding.backend", "hash")
	v.SetDefault("embedding.endpoint", precedent.DefaultHuggingFaceEndpoint)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimension", precedent.DefaultDimension)
	v.SetDefault("embedding.timeout", "30s")

	v.SetDefault("precedents.backend", "sqlite")
	v.SetDefault("precedents.top_n", 3)
	v.SetDefault("precedents.timeout", "30s")
	v.SetDefault("precedents.sqlite.path", "precedents.db")
	v.SetDefault("precedents.chroma.endpoint", "http://localhost:8001")
	v.SetDefault("precedents.chroma.collection", precedent.DefaultCollection)
	v.SetDefault("precedents.chroma.api_key", "")
	v.SetDefault("precedents.postgres.url", "")
	v.SetDefault("precedents.postgres.table", "historical_clauses")

	v.SetDefault("standards.backend", "fs")
	v.SetDefault("standards.dir", "./standards")
	v.SetDefault("standards.minio.endpoint", "127.0.0.1:9000")
	v.SetDefault("standards.minio.access_key", "minioadmin")
	v.SetDefault("standards.minio.secret_key", "minioadmin")
	v.SetDefault("standards.minio.bucket", "standards")
	v.SetDefault("standards.minio.prefix", "")
	v.SetDefault("standards.minio.region", "")
	v.SetDefault("standards.minio.use_ssl", false)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "audit.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("mcp.enabled", true)
	v.SetDefault("mcp.path", "/mcp")
}

// LLMClient converts the llm section for llm.New
func (c *Config) LLMClient() llm.Config {
	return llm.Config{
		BaseURL:          c.LLM.BaseURL,
		Model:            c.LLM.Model,
		APIKey:           c.LLM.APIKey,
		Temperature:      c.LLM.Temperature,
		MaxTokens:        c.LLM.MaxTokens,
		Timeout:          c.LLM.Timeout,
		RetryAttempts:    c.LLM.RetryAttempts,
		ResponseLanguage: c.LLM.ResponseLanguage,
		Referer:          c.LLM.Referer,
		Title:            c.LLM.Title,
	}
}

// PrecedentStore converts the embedding and precedents sections for precedent.Open
func (c *Config) PrecedentStore() precedent.Config {
	return precedent.Config{
		Backend:           c.Precedents.Backend,
		SQLitePath:        c.Precedents.SQLite.Path,
		ChromaURL:         c.Precedents.Chroma.Endpoint,
		ChromaCollection:  c.Precedents.Chroma.Collection,
		ChromaAPIKey:      c.Precedents.Chroma.APIKey,
		PostgresURL:       c.Precedents.Postgres.URL,
		PostgresTable:     c.Precedents.Postgres.Table,
		Timeout:           c.Embedding.Timeout,
		EmbeddingBackend:  c.Embedding.Backend,
		EmbeddingEndpoint: c.Embedding.Endpoint,
		EmbeddingAPIKey:   c.Embedding.APIKey,
		Dimension:         c.Embedding.Dimension,
	}
}

func (c *Config) StandardsMinIO() standards.MinIOConfig {
	m := c.Standards.MinIO
	return standards.MinIOConfig{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Bucket:    m.Bucket,
		Prefix:    m.Prefix,
		Region:    m.Region,
		UseSSL:    m.UseSSL,
	}
}

// resolvePath resolves ~ to home directory and cleans the path
func resolvePath(p string) string {
	if p == "" || p == ":memory:" {
		return p
	}
	if p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return filepath.Clean(p)
}
