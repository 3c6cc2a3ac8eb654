package config

import (
	"fmt"
	"path/filepath"
	"strings"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

type StoreBackend string

const (
	StoreBackendBolt   StoreBackend = "bolt"
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendMemory StoreBackend = "memory"
)

type StoreConfig interface {
	GetStoreBackend() StoreBackend
	GetStorePath() string
	GetStorePassphrase() string
}

type Store struct {
	Backend    string `env:"STORE_BACKEND"    envDefault:"bolt"`
	Path       string `env:"STORE_PATH"`
	Passphrase string `env:"STORE_PASSPHRASE"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() StoreBackend {
	return StoreBackend(strings.ToLower(strings.TrimSpace(s.Backend)))
}

// GetStorePath returns STORE_PATH, or an empty string so the caller can
// default it inside the data folder.
func (s Store) GetStorePath() string {
	return strings.TrimSpace(s.Path)
}

func (s Store) GetStorePassphrase() string {
	return s.Passphrase
}

func (s Store) validate() error {
	switch s.GetStoreBackend() {
	case StoreBackendBolt, StoreBackendSQLite:
		if s.Passphrase == "" {
			return fmt.Errorf("[config Store] %s backend: %w", s.GetStoreBackend(), autherrors.ErrMissingPassphrase)
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("[config Store] %q: %w", s.Backend, autherrors.ErrUnknownBackend)
	}
	return nil
}

// StoreFile returns the configured store path, defaulting to a file named
// after the backend inside dataFolder.
func StoreFile(c Config) string {
	if p := c.GetStorePath(); p != "" {
		return p
	}
	switch c.GetStoreBackend() {
	case StoreBackendSQLite:
		return filepath.Join(c.GetDataFolder(), "credentials.sqlite")
	default:
		return filepath.Join(c.GetDataFolder(), "credentials.db")
	}
}
