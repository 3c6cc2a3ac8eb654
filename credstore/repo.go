// Package credstore defines the secure key/value store that holds session
// material on-device, plus the encryption shared by its durable backends.
package credstore

import (
	"encoding/json"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = autherrors.ErrNotFound

// Store is an at-rest encrypted string store. Writes replace the whole value
// for a key. Delete of an absent key succeeds.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// GetJSON decodes the value under key into v. It reports false with a nil
// error when the key is absent, and wraps ErrCorruptRecord when the stored
// value is not valid JSON for v.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, err := s.Get(key)
	if autherrors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, autherrors.Wrapf(err, "[credstore GetJSON] %s", key)
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("[credstore GetJSON] %s: %w: %v", key, autherrors.ErrCorruptRecord, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("[credstore SetJSON] %s: %w", key, err)
	}
	return autherrors.Wrapf(s.Set(key, string(data)), "[credstore SetJSON] %s", key)
}
