package unlock

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-client/credstore"
	"golang.org/x/crypto/argon2"
)

// PasscodeKey is the credential store key of the passcode hash.
const PasscodeKey = "unlock_passcode_v1"

// MinPasscodeLength is the shortest passcode Set accepts.
const MinPasscodeLength = 4

var (
	ErrPasscodeTooShort = errors.New("passcode too short")
	ErrPasscodeNotSet   = errors.New("no passcode set")
)

type passcodeRecord struct {
	Salt        []byte `json:"salt"`
	Hash        []byte `json:"hash"`
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
}

// Passcodes keeps an argon2id hash of the local fallback passcode.
type Passcodes struct {
	store  credstore.Store
	params credstore.KDFParams
}

func NewPasscodes(store credstore.Store, params credstore.KDFParams) *Passcodes {
	return &Passcodes{store: store, params: params}
}

// Set replaces the stored passcode.
func (p *Passcodes) Set(passcode string) error {
	if len(passcode) < MinPasscodeLength {
		return ErrPasscodeTooShort
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	rec := passcodeRecord{
		Salt:        salt,
		Hash:        p.derive(passcode, salt, p.params),
		Time:        p.params.Time,
		MemoryKiB:   p.params.MemoryKiB,
		Parallelism: p.params.Parallelism,
	}
	return credstore.SetJSON(p.store, PasscodeKey, rec)
}

// IsSet reports whether a passcode has been stored.
func (p *Passcodes) IsSet() (bool, error) {
	var rec passcodeRecord
	return credstore.GetJSON(p.store, PasscodeKey, &rec)
}

// Check compares passcode with the stored hash in constant time.
func (p *Passcodes) Check(passcode string) (bool, error) {
	var rec passcodeRecord
	found, err := credstore.GetJSON(p.store, PasscodeKey, &rec)
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrPasscodeNotSet
	}
	params := credstore.KDFParams{Time: rec.Time, MemoryKiB: rec.MemoryKiB, Parallelism: rec.Parallelism}
	got := p.derive(passcode, rec.Salt, params)
	return subtle.ConstantTimeCompare(got, rec.Hash) == 1, nil
}

// Clear removes the stored passcode.
func (p *Passcodes) Clear() error {
	return p.store.Delete(PasscodeKey)
}

func (p *Passcodes) derive(passcode string, salt []byte, params credstore.KDFParams) []byte {
	return argon2.IDKey([]byte(passcode), salt, params.Time, params.MemoryKiB, params.Parallelism, 32)
}
