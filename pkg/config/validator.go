package config

import (
	"errors"
	"fmt"
	"strings"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

var validFormats = map[string]bool{"text": true, "json": true}

// Validate checks the configuration and returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, &ValidationError{Field: "server.addr", Message: "is required"})
	}

	durations := []struct {
		field string
		value string
	}{
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"pipeline.timeout", c.Pipeline.Timeout},
		{"pipeline.joinMaxAge", c.Pipeline.JoinMaxAge},
	}
	for _, d := range durations {
		v, err := Duration(d.value)
		if err != nil {
			errs = append(errs, &ValidationError{Field: d.field, Message: fmt.Sprintf("invalid duration %q", d.value)})
			continue
		}
		if v < 0 {
			errs = append(errs, &ValidationError{Field: d.field, Message: "must not be negative"})
		}
	}

	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	if c.Logging.Format != "" && !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}

	if c.Server.RequestLog < 0 {
		errs = append(errs, &ValidationError{Field: "server.requestLog", Message: "must not be negative"})
	}
	if c.Guard.RateLimit.Rate < 0 {
		errs = append(errs, &ValidationError{Field: "guard.rateLimit.rate", Message: "must not be negative"})
	}
	if c.Guard.RateLimit.Burst < 0 {
		errs = append(errs, &ValidationError{Field: "guard.rateLimit.burst", Message: "must not be negative"})
	}

	return errors.Join(errs...)
}
