package credstore_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-client/credstore"
	"github.com/stretchr/testify/require"
)

var testKDF = credstore.KDFParams{Time: 1, MemoryKiB: 1024, Parallelism: 1}

// memMeta applies a PutMeta batch whole, or not at all when failPut is set.
type memMeta struct {
	values  map[string][]byte
	failPut error
}

func newMemMeta() *memMeta {
	return &memMeta{values: map[string][]byte{}}
}

func (m *memMeta) GetMeta(name string) ([]byte, error) {
	return m.values[name], nil
}

func (m *memMeta) PutMeta(values map[string][]byte) error {
	if m.failPut != nil {
		return m.failPut
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func TestLoadSealerReopen(t *testing.T) {
	meta := newMemMeta()
	first, err := credstore.LoadSealer(meta, "correct horse", testKDF)
	require.NoError(t, err)
	require.NotNil(t, meta.values[credstore.MetaSalt])
	require.NotNil(t, meta.values[credstore.MetaCheck])

	sealed, err := first.Seal("k", []byte("v"))
	require.NoError(t, err)

	again, err := credstore.LoadSealer(meta, "correct horse", testKDF)
	require.NoError(t, err)
	plain, err := again.Open("k", sealed)
	require.NoError(t, err)
	require.Equal(t, "v", string(plain))

	_, err = credstore.LoadSealer(meta, "battery staple", testKDF)
	require.ErrorIs(t, err, credstore.ErrWrongPassphrase)
}

func TestLoadSealerFailedInitWritesNothing(t *testing.T) {
	meta := newMemMeta()
	meta.failPut = errors.New("disk full")

	_, err := credstore.LoadSealer(meta, "correct horse", testKDF)
	require.ErrorIs(t, err, meta.failPut)
	require.Empty(t, meta.values)

	meta.failPut = nil
	_, err = credstore.LoadSealer(meta, "correct horse", testKDF)
	require.NoError(t, err)
	_, err = credstore.LoadSealer(meta, "correct horse", testKDF)
	require.NoError(t, err)
}

func TestLoadSealerSaltWithoutCheckIsReinitialised(t *testing.T) {
	meta := newMemMeta()
	meta.values[credstore.MetaSalt] = []byte("0123456789abcdef")

	_, err := credstore.LoadSealer(meta, "correct horse", testKDF)
	require.NoError(t, err)
	require.NotNil(t, meta.values[credstore.MetaCheck])

	_, err = credstore.LoadSealer(meta, "correct horse", testKDF)
	require.NoError(t, err)
	_, err = credstore.LoadSealer(meta, "battery staple", testKDF)
	require.ErrorIs(t, err, credstore.ErrWrongPassphrase)
}
