package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

const (
	keySize  = 32
	saltSize = 16

	// MetaSalt and MetaCheck are the metadata entries a backend keeps next to
	// its sealed values.
	MetaSalt  = "salt"
	MetaCheck = "check"

	checkPlaintext = "credstore-check-v1"
)

var (
	ErrWrongPassphrase = errors.New("wrong store passphrase")
	ErrEmptyPassphrase = errors.New("empty store passphrase")
)

// KDFParams are the argon2id parameters used to derive the store key.
type KDFParams struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
}

func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
	}
}

// Sealer encrypts values with AES-256-GCM. The key lives in a memguard
// enclave and is only decrypted for the duration of a Seal or Open call.
type Sealer struct {
	key *memguard.Enclave
}

// NewSealer derives the store key from passphrase and salt.
func NewSealer(passphrase string, salt []byte, params KDFParams) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) < saltSize {
		return nil, fmt.Errorf("salt too short: got %d, want %d", len(salt), saltSize)
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Parallelism, keySize)
	return &Sealer{key: memguard.NewEnclave(key)}, nil
}

// Seal encrypts plaintext bound to name, which must be given again to Open.
func (s *Sealer) Seal(name string, plaintext []byte) ([]byte, error) {
	gcm, done, err := s.gcm()
	if err != nil {
		return nil, err
	}
	defer done()

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, []byte(name)), nil
}

// Open decrypts a value produced by Seal for the same name.
func (s *Sealer) Open(name string, sealed []byte) ([]byte, error) {
	gcm, done, err := s.gcm()
	if err != nil {
		return nil, err
	}
	defer done()

	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce size")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	return plaintext, nil
}

func (s *Sealer) gcm() (cipher.AEAD, func(), error) {
	buf, err := s.key.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening key enclave: %w", err)
	}
	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		buf.Destroy()
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		buf.Destroy()
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, buf.Destroy, nil
}

// MetaStore is the unencrypted side table a backend uses for its salt and
// passphrase check value. GetMeta returns nil, nil for an absent entry.
// PutMeta writes every entry in one transaction or none of them.
type MetaStore interface {
	GetMeta(name string) ([]byte, error)
	PutMeta(values map[string][]byte) error
}

// LoadSealer returns a Sealer for the backend behind meta. On first use it
// creates the salt and check value together; afterwards it rejects a
// passphrase that cannot open the check value.
//
// A salt without a check value means initialisation never completed, so no
// value was ever sealed under it and the store is initialised again.
func LoadSealer(meta MetaStore, passphrase string, params KDFParams) (*Sealer, error) {
	salt, err := meta.GetMeta(MetaSalt)
	if err != nil {
		return nil, fmt.Errorf("reading salt: %w", err)
	}
	var check []byte
	if salt != nil {
		if check, err = meta.GetMeta(MetaCheck); err != nil {
			return nil, fmt.Errorf("reading check value: %w", err)
		}
	}
	if salt == nil || check == nil {
		return initSealer(meta, passphrase, params)
	}

	sealer, err := NewSealer(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	plain, err := sealer.Open(MetaCheck, check)
	if err != nil || subtle.ConstantTimeCompare(plain, []byte(checkPlaintext)) != 1 {
		return nil, ErrWrongPassphrase
	}
	return sealer, nil
}

func initSealer(meta MetaStore, passphrase string, params KDFParams) (*Sealer, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	sealer, err := NewSealer(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	check, err := sealer.Seal(MetaCheck, []byte(checkPlaintext))
	if err != nil {
		return nil, err
	}
	if err := meta.PutMeta(map[string][]byte{MetaSalt: salt, MetaCheck: check}); err != nil {
		return nil, fmt.Errorf("writing salt and check value: %w", err)
	}
	return sealer, nil
}
