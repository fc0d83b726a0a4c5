package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg and returns a *ValidationError listing every problem.
// An empty URL is accepted; commands that talk to a server check for it.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateTransport(cfg, ve)
	validateAuth(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	if cfg.Timeout < 0 {
		ve.Add("timeout must not be negative")
	}
	if cfg.URL == "" {
		return
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		ve.Add("url %q is not an absolute URL", cfg.URL)
		return
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !cfg.AllowHTTP {
			ve.Add("url %q uses http; set allow_http to permit it", cfg.URL)
		}
	default:
		ve.Add("url %q: unsupported scheme %q", cfg.URL, u.Scheme)
	}
}

func validateTransport(cfg *Config, ve *ValidationError) {
	t := cfg.Transport
	if t.RateLimit < 0 {
		ve.Add("transport.rate_limit must not be negative")
	}
	if t.RateLimit > 0 && t.Burst < 0 {
		ve.Add("transport.burst must not be negative")
	}
	if t.Breaker.MaxFailures > 0 && t.Breaker.Timeout <= 0 {
		ve.Add("transport.breaker.timeout must be positive when max_failures is set")
	}
}

func validateAuth(cfg *Config, ve *ValidationError) {
	a := cfg.Auth
	if !a.Enabled() {
		return
	}
	if a.ClientID == "" {
		ve.Add("auth.client_id is required when auth is configured")
	}
	for _, raw := range []string{a.Issuer, a.TokenURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Host == "" {
			ve.Add("auth: %q is not an absolute URL", raw)
		} else if u.Scheme != "https" && !cfg.AllowHTTP {
			ve.Add("auth: %q must use https", raw)
		}
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q: want text or json", cfg.Logger.Format)
	}
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q: want debug, info, warn or error", cfg.Logger.Level)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q: want noop or stdout", cfg.Tracer.Exporter)
	}
}
