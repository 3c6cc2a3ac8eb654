// Package sqlitestore provides a SQLite-backed encrypted credential store.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-client/credstore"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS credentials_meta (
	name  TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

// Store implements credstore.Store on a SQLite database file.
type Store struct {
	db     *sql.DB
	sealer *credstore.Sealer
}

var _ credstore.Store = (*Store)(nil)

// Open opens or creates the database at path and unlocks it with passphrase.
// A nil kdf uses credstore.DefaultKDFParams.
func Open(path, passphrase string, kdf *credstore.KDFParams) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	params := credstore.DefaultKDFParams()
	if kdf != nil {
		params = *kdf
	}
	s := &Store{db: db}
	sealer, err := credstore.LoadSealer(s, passphrase, params)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.sealer = sealer
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Set(key, value string) error {
	sealed, err := s.sealer.Seal(key, []byte(value))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO credentials (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, sealed,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(key string) (string, error) {
	var sealed []byte
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, credstore.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	plain, err := s.sealer.Open(key, sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// GetMeta implements credstore.MetaStore.
func (s *Store) GetMeta(name string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM credentials_meta WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return value, err
}

// PutMeta implements credstore.MetaStore.
func (s *Store) PutMeta(values map[string][]byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning meta write: %w", err)
	}
	for name, value := range values {
		_, err := tx.Exec(
			`INSERT INTO credentials_meta (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, value,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("writing meta %s: %w", name, err)
		}
	}
	return tx.Commit()
}
