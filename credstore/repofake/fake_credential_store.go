package repofake

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-client/credstore"
)

var _ credstore.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credstore.Store. The Fail* fields inject errors
// for a given key; an empty key in the map matches every key.
type FakeStore struct {
	values map[string]string
	lock   sync.RWMutex

	FailSet    map[string]error
	FailGet    map[string]error
	FailDelete map[string]error

	Sets    int
	Gets    int
	Deletes int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values:     make(map[string]string),
		FailSet:    make(map[string]error),
		FailGet:    make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

func injected(m map[string]error, key string) error {
	if err, ok := m[key]; ok {
		return err
	}
	return m[""]
}

func (fs *FakeStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.Sets++
	if err := injected(fs.FailSet, key); err != nil {
		return err
	}
	fs.values[key] = value
	return nil
}

func (fs *FakeStore) Get(key string) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.Gets++
	if err := injected(fs.FailGet, key); err != nil {
		return "", err
	}
	v, ok := fs.values[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, credstore.ErrNotFound)
	}
	return v, nil
}

func (fs *FakeStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.Deletes++
	if err := injected(fs.FailDelete, key); err != nil {
		return err
	}
	delete(fs.values, key)
	return nil
}

// Has reports whether a value is stored under key, bypassing fault injection.
func (fs *FakeStore) Has(key string) bool {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	_, ok := fs.values[key]
	return ok
}

// Raw returns the stored value, bypassing fault injection.
func (fs *FakeStore) Raw(key string) string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.values[key]
}

// Snapshot copies the stored values.
func (fs *FakeStore) Snapshot() map[string]string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	out := make(map[string]string, len(fs.values))
	for k, v := range fs.values {
		out[k] = v
	}
	return out
}
