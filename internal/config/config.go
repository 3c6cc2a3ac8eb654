package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	AuthConfig
	StoreConfig
	SecurityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetAPIBaseURL() string
}

type mainConfig struct {
	EnvVars
	Auth
	Store
	Security
}

// New loads an optional .env file from the working directory and then reads
// the configuration from the environment.
func New() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config FromEnv] parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromEnvMap builds a Config from explicit key/value pairs, ignoring the process environment.
func FromEnvMap(vars map[string]string) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("[config FromEnvMap] parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c mainConfig) validate() error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	return c.Security.validate()
}
