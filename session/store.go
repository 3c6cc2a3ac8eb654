package session

import (
	"fmt"

	"github.com/jrsteele09/go-auth-client/credstore"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Key is the credential store key of the session record.
const Key = "session_v1"

// Store projects the session record onto the credential store. There is no
// merge: Save replaces the whole record.
type Store struct {
	creds credstore.Store
}

func NewStore(creds credstore.Store) *Store {
	return &Store{creds: creds}
}

// Load returns the stored record, or nil when there is no session. A record
// without tokens and an unreadable record both count as no session.
func (s *Store) Load() (*Record, error) {
	var r Record
	found, err := credstore.GetJSON(s.creds, Key, &r)
	if autherrors.Is(err, autherrors.ErrCorruptRecord) {
		log.Warn().Err(err).Msg("[session Load] ignoring unreadable session record")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[session Load] %w", err)
	}
	if !found || !r.HasTokens() {
		return nil, nil
	}
	return &r, nil
}

// Save overwrites the stored record.
func (s *Store) Save(r Record) error {
	if err := credstore.SetJSON(s.creds, Key, r); err != nil {
		return fmt.Errorf("[session Save] %w", err)
	}
	return nil
}

// Clear deletes the stored record.
func (s *Store) Clear() error {
	if err := s.creds.Delete(Key); err != nil {
		return fmt.Errorf("[session Clear] %w", err)
	}
	return nil
}

// Has reports whether a record with at least one token is stored.
func (s *Store) Has() (bool, error) {
	r, err := s.Load()
	if err != nil {
		return false, err
	}
	return r.HasTokens(), nil
}
