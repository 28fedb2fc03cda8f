package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the VoiceBrief server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Media    MediaConfig
	ASR      ASRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type MediaConfig struct {
	Dir         string
	BaseURL     string
	MaxUploadMB int64
}

type ASRConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type LLMConfig struct {
	Provider string
	Groq     GroqConfig
	Gemini   GeminiConfig
}

type GroqConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type PipelineConfig struct {
	Workers     int
	QueueSize   int
	CallTimeout time.Duration
}

var validProviders = map[string]bool{
	"groq":   true,
	"gemini": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("VOICEBRIEF_PORT", 8080),
			Env:  envString("VOICEBRIEF_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  envDuration("JWT_TOKEN_TTL", 7*24*time.Hour),
		},
		Media: MediaConfig{
			Dir:         envString("MEDIA_DIR", "media"),
			BaseURL:     envString("MEDIA_BASE_URL", "http://localhost:8080"),
			MaxUploadMB: int64(envInt("MEDIA_MAX_UPLOAD_MB", 50)),
		},
		ASR: ASRConfig{
			BaseURL:      envString("ASR_BASE_URL", "https://api.assemblyai.com"),
			APIKey:       os.Getenv("ASR_API_KEY"),
			PollInterval: envDuration("ASR_POLL_INTERVAL", 3*time.Second),
			PollTimeout:  envDuration("ASR_POLL_TIMEOUT", 10*time.Minute),
		},
		LLM: LLMConfig{
			Provider: os.Getenv("LLM_PROVIDER"),
			Groq: GroqConfig{
				BaseURL: envString("GROQ_BASE_URL", "https://api.groq.com/openai"),
				APIKey:  os.Getenv("GROQ_API_KEY"),
				Model:   envString("GROQ_MODEL", "llama-3.3-70b-versatile"),
			},
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.0-flash"),
			},
		},
		Pipeline: PipelineConfig{
			Workers:     envInt("PIPELINE_WORKERS", 4),
			QueueSize:   envInt("PIPELINE_QUEUE_SIZE", 64),
			CallTimeout: envDurationSecs("PIPELINE_CALL_TIMEOUT_SECS", 120*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if !strings.HasPrefix(c.ASR.BaseURL, "http://") && !strings.HasPrefix(c.ASR.BaseURL, "https://") {
		return fmt.Errorf("ASR_BASE_URL must start with http:// or https://, got %q", c.ASR.BaseURL)
	}
	if c.ASR.APIKey == "" {
		return fmt.Errorf("ASR_API_KEY is required")
	}

	if c.LLM.Provider == "" {
		return fmt.Errorf("LLM_PROVIDER is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER must be one of groq, gemini, mock; got %q", c.LLM.Provider)
	}

	if c.LLM.Provider == "groq" && c.LLM.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER is groq")
	}
	if c.LLM.Provider == "gemini" && c.LLM.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", c.Pipeline.Workers)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
