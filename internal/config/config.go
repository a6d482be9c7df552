// Package config holds process configuration for the orchestration core:
// three-layer precedence (defaults < environment variables < functional
// options), struct tags for documentation, and a validator pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the orchestration core.
type Config struct {
	ServiceName string `json:"service_name" env:"CORE_SERVICE_NAME" default:"corepilot" validate:"required"`
	Port        int    `json:"port" env:"CORE_PORT" default:"8080" validate:"min=1,max=65535"`

	Execution  ExecutionConfig  `json:"execution"`
	Breaker    BreakerConfig    `json:"breaker"`
	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Backends   BackendsConfig   `json:"backends"`
	SelfMod    SelfModConfig    `json:"self_mod"`
	Background BackgroundConfig `json:"background"`
}

// ExecutionConfig bounds plan execution.
type ExecutionConfig struct {
	MaxSteps      int           `json:"max_steps" env:"CORE_MAX_STEPS" default:"50" validate:"min=1,max=50"`
	StepTimeout   time.Duration `json:"step_timeout" env:"CORE_STEP_TIMEOUT" default:"30s" validate:"required"`
	MaxRetries    int           `json:"max_retries" env:"CORE_MAX_RETRIES" default:"3" validate:"min=0,max=10"`
}

// BreakerConfig configures the per-target circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32        `json:"failure_threshold" env:"CORE_CB_FAILURE_THRESHOLD" default:"5" validate:"min=1"`
	SuccessThreshold uint32        `json:"success_threshold" env:"CORE_CB_SUCCESS_THRESHOLD" default:"2" validate:"min=1"`
	OpenTimeout      time.Duration `json:"open_timeout" env:"CORE_CB_OPEN_TIMEOUT" default:"30s" validate:"required"`
}

// RateLimitConfig holds per-client request limiter settings. pkg/httpapi
// does not read them; its limiter is fixed at 100 requests per minute.
type RateLimitConfig struct {
	RequestsPerWindow int           `json:"requests_per_window" env:"CORE_RATE_LIMIT_REQUESTS" default:"100" validate:"min=1"`
	Window            time.Duration `json:"window" env:"CORE_RATE_LIMIT_WINDOW" default:"60s" validate:"required"`
}

// BackendsConfig names the external collaborator URLs.
type BackendsConfig struct {
	RetrievalURL      string        `json:"retrieval_url" env:"CORE_RETRIEVAL_URL" validate:"required,url"`
	InferenceURL      string        `json:"inference_url" env:"OLLAMA_URL" validate:"required,url"`
	ExternalModelURL  string        `json:"external_model_url" env:"QWEN_API_URL"`
	ExternalModelKey  string        `json:"-" env:"QWEN_API_KEY"`
	ArchitectureURL   string        `json:"architecture_url" env:"CORE_ARCH_URL" validate:"required,url"`
	RetrievalTimeout  time.Duration `json:"retrieval_timeout" env:"CORE_RETRIEVAL_TIMEOUT" default:"5s"`
	InferenceTimeout  time.Duration `json:"inference_timeout" env:"CORE_INFERENCE_TIMEOUT" default:"60s"`
	ArchTimeout       time.Duration `json:"arch_timeout" env:"CORE_ARCH_TIMEOUT" default:"15s"`
	MaxIdleConns      int           `json:"max_idle_conns" env:"CORE_HTTP_MAX_IDLE_CONNS" default:"20"`
	MaxConnsPerHost   int           `json:"max_conns_per_host" env:"CORE_HTTP_MAX_CONNS_PER_HOST" default:"100"`
}

// SelfModConfig configures the self-modification gate.
type SelfModConfig struct {
	BackupDir string `json:"backup_dir" env:"CORE_BACKUP_DIR" default:"backups"`
}

// BackgroundConfig configures the learning-loop background cadences.
type BackgroundConfig struct {
	OptimizerInterval time.Duration `json:"optimizer_interval" env:"CORE_OPTIMIZER_INTERVAL" default:"5m"`
	ProactiveInterval time.Duration `json:"proactive_interval" env:"CORE_PROACTIVE_INTERVAL" default:"10m"`
}

// Option is a functional option applied after defaults and environment
// variables, giving it the highest precedence.
type Option func(*Config)

// Default returns a Config populated with every field's documented default.
func Default() *Config {
	return &Config{
		ServiceName: "corepilot",
		Port:        8080,
		Execution: ExecutionConfig{
			MaxSteps:    50,
			StepTimeout: 30 * time.Second,
			MaxRetries:  3,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 100,
			Window:            60 * time.Second,
		},
		Backends: BackendsConfig{
			RetrievalTimeout: 5 * time.Second,
			InferenceTimeout: 60 * time.Second,
			ArchTimeout:      15 * time.Second,
			MaxIdleConns:     20,
			MaxConnsPerHost:  100,
		},
		SelfMod: SelfModConfig{
			BackupDir: "backups",
		},
		Background: BackgroundConfig{
			OptimizerInterval: 5 * time.Minute,
			ProactiveInterval: 10 * time.Minute,
		},
	}
}

// LoadFromEnv overlays environment variables onto c, using an explicit
// os.Getenv-per-field style rather than reflection.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("CORE_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("CORE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("CORE_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Execution.MaxSteps = n
		}
	}
	if v := os.Getenv("CORE_STEP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Execution.StepTimeout = d
		}
	}
	if v := os.Getenv("CORE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Execution.MaxRetries = n
		}
	}
	if v := os.Getenv("CORE_CB_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Breaker.FailureThreshold = uint32(n)
		}
	}
	if v := os.Getenv("CORE_CB_SUCCESS_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Breaker.SuccessThreshold = uint32(n)
		}
	}
	if v := os.Getenv("CORE_CB_OPEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.OpenTimeout = d
		}
	}
	if v := os.Getenv("CORE_RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RequestsPerWindow = n
		}
	}
	if v := os.Getenv("CORE_RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RateLimit.Window = d
		}
	}
	if v := os.Getenv("CORE_RETRIEVAL_URL"); v != "" {
		c.Backends.RetrievalURL = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Backends.InferenceURL = v
	}
	if v := os.Getenv("QWEN_API_URL"); v != "" {
		c.Backends.ExternalModelURL = v
	}
	if v := os.Getenv("QWEN_API_KEY"); v != "" {
		c.Backends.ExternalModelKey = v
	}
	if v := os.Getenv("CORE_ARCH_URL"); v != "" {
		c.Backends.ArchitectureURL = v
	}
	if v := os.Getenv("CORE_BACKUP_DIR"); v != "" {
		c.SelfMod.BackupDir = v
	}
	if v := os.Getenv("CORE_OPTIMIZER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Background.OptimizerInterval = d
		}
	}
	if v := os.Getenv("CORE_PROACTIVE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Background.ProactiveInterval = d
		}
	}
	return nil
}

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return func(c *Config) { c.ServiceName = name } }

// WithPort overrides the listen port.
func WithPort(port int) Option { return func(c *Config) { c.Port = port } }

// WithBackends overrides the three backend URLs at once.
func WithBackends(retrieval, inference, architecture string) Option {
	return func(c *Config) {
		c.Backends.RetrievalURL = retrieval
		c.Backends.InferenceURL = inference
		c.Backends.ArchitectureURL = architecture
	}
}

// New builds a Config from defaults, then environment variables, then opts,
// validating the result with go-playground/validator struct tags.
func New(opts ...Option) (*Config, error) {
	c := Default()
	if err := c.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("config: load from env: %w", err)
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

var validate = validator.New()

// Validate checks every validator struct tag on Config.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
