package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or all problems joined with errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "addr",
				Message: fmt.Sprintf("must be host:port (got %q)", cfg.Addr),
			})
		}
	} else {
		errs = append(errs, ValidationError{Field: "addr", Message: "must not be empty"})
	}

	if strings.TrimSpace(cfg.DemoDir) == "" {
		errs = append(errs, ValidationError{Field: "demo_dir", Message: "must not be empty"})
	}

	if len(cfg.RunnerArgs()) == 0 {
		errs = append(errs, ValidationError{Field: "runner", Message: "must name an interpreter"})
	}

	if !strings.HasPrefix(cfg.Extension, ".") || len(cfg.Extension) < 2 {
		errs = append(errs, ValidationError{
			Field:   "extension",
			Message: fmt.Sprintf("must start with a dot (got %q)", cfg.Extension),
		})
	}

	if cfg.Suffix == "" || strings.ContainsAny(cfg.Suffix, "/.") {
		errs = append(errs, ValidationError{
			Field:   "suffix",
			Message: fmt.Sprintf("must be a plain word (got %q)", cfg.Suffix),
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "timeout", Message: "must be positive"})
	}

	const minPoll = 100 * time.Millisecond
	if cfg.PollInterval < minPoll {
		errs = append(errs, ValidationError{
			Field:   "poll_interval",
			Message: fmt.Sprintf("must be at least %v (got %v)", minPoll, cfg.PollInterval),
		})
	}

	if err := validateURL(cfg.ServerURL); err != nil {
		errs = append(errs, ValidationError{Field: "server_url", Message: err.Error()})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// validateURL checks that the URL is absolute http or https.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}
