package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", c.Server.Addr); err != nil {
		return fmt.Errorf("invalid server address: %v", err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server max_upload_mb must be positive")
	}

	// Validate LLM configuration; an empty api key disables analysis
	if c.LLM.APIKey != "" {
		if c.LLM.Model == "" {
			return errors.New("llm model cannot be empty when an api key is set")
		}
		if c.LLM.BaseURL == "" {
			return errors.New("llm base_url cannot be empty when an api key is set")
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature %.2f out of range [0, 2]", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm max_tokens must be positive")
	}
	if c.LLM.RetryAttempts < 0 {
		return errors.New("llm retry_attempts cannot be negative")
	}

	// Validate embedding configuration
	switch c.Embedding.Backend {
	case "hash":
	case "huggingface":
		if c.Embedding.Endpoint == "" {
			return errors.New("embedding endpoint cannot be empty for the huggingface backend")
		}
	default:
		return fmt.Errorf("unknown embedding backend: %s", c.Embedding.Backend)
	}
	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding dimension must be positive")
	}

	// Validate precedent store configuration
	if c.Precedents.TopN <= 0 {
		return errors.New("precedents top_n must be positive")
	}
	switch c.Precedents.Backend {
	case "sqlite":
		if c.Precedents.SQLite.Path == "" {
			return errors.New("precedents sqlite path cannot be empty")
		}
	case "chroma":
		if c.Precedents.Chroma.Endpoint == "" {
			return errors.New("precedents chroma endpoint cannot be empty")
		}
		if c.Precedents.Chroma.Collection == "" {
			return errors.New("precedents chroma collection cannot be empty")
		}
	case "postgres":
		if c.Precedents.Postgres.URL == "" {
			return errors.New("precedents postgres url cannot be empty")
		}
	default:
		return fmt.Errorf("unknown precedents backend: %s", c.Precedents.Backend)
	}

	// Validate standards configuration
	switch c.Standards.Backend {
	case "fs":
		if c.Standards.Dir == "" {
			return errors.New("standards dir cannot be empty")
		}
	case "minio":
		m := c.Standards.MinIO
		if m.Endpoint == "" {
			return errors.New("minio endpoint cannot be empty when standards use minio")
		}
		if m.AccessKey == "" || m.SecretKey == "" {
			return errors.New("minio credentials cannot be empty when standards use minio")
		}
		if !isValidBucketName(m.Bucket) {
			return fmt.Errorf("invalid minio bucket name: %s", m.Bucket)
		}
	default:
		return fmt.Errorf("unknown standards backend: %s", c.Standards.Backend)
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return errors.New("audit path cannot be empty when audit is enabled")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		return fmt.Errorf("mcp path must start with '/': %q", c.MCP.Path)
	}
	return nil
}

// isValidBucketName checks if a bucket name is valid according to MinIO/S3 rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return bucketPattern.MatchString(name)
}
