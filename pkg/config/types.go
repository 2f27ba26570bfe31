package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Guard    GuardConfig    `json:"guard" yaml:"guard"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `json:"addr" yaml:"addr"`
	ReadTimeout     string `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout    string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
	// RequestLog is how many exchanges the request log keeps.
	RequestLog int `json:"requestLog,omitempty" yaml:"requestLog,omitempty"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File additionally writes JSON logs to this path.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// PipelineConfig holds defaults for the operators of the demo pipelines.
type PipelineConfig struct {
	// Timeout answers 408 when a request is not answered in time.
	Timeout       string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	TimeoutUnsafe bool   `json:"timeoutUnsafe,omitempty" yaml:"timeoutUnsafe,omitempty"`
	// JoinUnsafe keeps join entries of requests that were answered.
	JoinUnsafe bool `json:"joinUnsafe,omitempty" yaml:"joinUnsafe,omitempty"`
	// JoinMaxAge evicts join entries older than this. Empty disables eviction.
	JoinMaxAge string `json:"joinMaxAge,omitempty" yaml:"joinMaxAge,omitempty"`
}

// GuardConfig configures the guards of protected routes.
type GuardConfig struct {
	// JWTSecret enables HMAC bearer authentication when set.
	JWTSecret string `json:"jwtSecret,omitempty" yaml:"jwtSecret,omitempty"`
	// Allow is an expression a request must satisfy to reach admin routes.
	Allow string `json:"allow,omitempty" yaml:"allow,omitempty"`
	// RateLimit limits requests per client IP when Rate is positive.
	RateLimit RateLimitConfig `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Rate           float64  `json:"rate,omitempty" yaml:"rate,omitempty"`
	Burst          int      `json:"burst,omitempty" yaml:"burst,omitempty"`
	TrustedProxies []string `json:"trustedProxies,omitempty" yaml:"trustedProxies,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "30s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			RequestLog:      1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Pipeline: PipelineConfig{
			Timeout: "5s",
		},
	}
}

// ValidationError describes an invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Duration parses an optional duration string. Empty means zero.
func Duration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// MustDuration is Duration for values that already passed Validate.
func MustDuration(s string) time.Duration {
	d, _ := Duration(s)
	return d
}
