package config

import (
	"fmt"
	"strings"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

type UnlockFallback string

const (
	UnlockFallbackFailOpen UnlockFallback = "fail-open"
	UnlockFallbackPasscode UnlockFallback = "passcode"
)

type SecurityConfig interface {
	GetUnlockFallback() UnlockFallback
}

type Security struct {
	UnlockFallback string `env:"UNLOCK_FALLBACK" envDefault:"fail-open"`
}

var _ SecurityConfig = Security{}

func (s Security) GetUnlockFallback() UnlockFallback {
	return UnlockFallback(strings.ToLower(strings.TrimSpace(s.UnlockFallback)))
}

func (s Security) validate() error {
	switch s.GetUnlockFallback() {
	case UnlockFallbackFailOpen, UnlockFallbackPasscode:
		return nil
	}
	return fmt.Errorf("[config Security] unlock fallback %q: %w", s.UnlockFallback, autherrors.ErrInvalidConfig)
}

// IsProduction reports whether ENV names a production deployment.
func IsProduction(c EnvConfig) bool {
	switch c.GetEnv() {
	case "PROD", "PRODUCTION":
		return true
	}
	return false
}
