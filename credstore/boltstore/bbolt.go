// Package boltstore provides a BBolt-backed encrypted credential store.
package boltstore

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/credstore"
	"go.etcd.io/bbolt"
)

var (
	valuesBucket = []byte("credentials")
	metaBucket   = []byte("meta")
)

// Store implements credstore.Store on a BBolt file. Values are sealed with
// the key name as associated data, so a value copied under another key fails
// to open.
type Store struct {
	db     *bbolt.DB
	sealer *credstore.Sealer
}

var _ credstore.Store = (*Store)(nil)

// Options tune how the database is opened.
type Options struct {
	KDF         credstore.KDFParams
	OpenTimeout time.Duration
}

func defaultOptions() Options {
	return Options{KDF: credstore.DefaultKDFParams(), OpenTimeout: time.Second}
}

// Open opens or creates the store at path, unlocking it with passphrase.
func Open(path, passphrase string, opts *Options) (*Store, error) {
	o := defaultOptions()
	if opts != nil {
		o = *opts
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: o.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(valuesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	s := &Store{db: db}
	sealer, err := credstore.LoadSealer(s, passphrase, o.KDF)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.sealer = sealer
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Set(key, value string) error {
	sealed, err := s.sealer.Seal(key, []byte(value))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(valuesBucket).Put([]byte(key), sealed)
	})
}

func (s *Store) Get(key string) (string, error) {
	var sealed []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(valuesBucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s: %w", key, credstore.ErrNotFound)
		}
		sealed = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return "", err
	}
	plain, err := s.sealer.Open(key, sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(valuesBucket).Delete([]byte(key))
	})
}

// GetMeta implements credstore.MetaStore.
func (s *Store) GetMeta(name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(metaBucket).Get([]byte(name)); data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	return out, err
}

// PutMeta implements credstore.MetaStore.
func (s *Store) PutMeta(values map[string][]byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(metaBucket)
		for name, value := range values {
			if err := b.Put([]byte(name), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// RawValue returns the sealed bytes stored under key, for inspection.
func (s *Store) RawValue(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(valuesBucket).Get([]byte(key)); data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	return out, err
}
