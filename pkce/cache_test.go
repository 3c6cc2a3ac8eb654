package pkce_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/credstore/repofake"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setup(t *testing.T) (*pkce.Cache, *repofake.FakeStore, *fakeClock) {
	t.Helper()
	store := repofake.NewFakeStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return pkce.NewCache(store, pkce.WithClock(clock.Now)), store, clock
}

func TestLoadWithinWindow(t *testing.T) {
	cache, _, clock := setup(t)
	require.NoError(t, cache.Save("verifier-1"))

	clock.Advance(9*time.Minute + 59*time.Second)
	v, ok, err := cache.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "verifier-1", v)
}

func TestLoadAtExactWindowEdge(t *testing.T) {
	cache, _, clock := setup(t)
	require.NoError(t, cache.Save("verifier-1"))

	clock.Advance(pkce.TTL)
	_, ok, err := cache.Load()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWithTTL(t *testing.T) {
	store := repofake.NewFakeStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := pkce.NewCache(store, pkce.WithClock(clock.Now), pkce.WithTTL(time.Minute))
	require.NoError(t, cache.Save("verifier-1"))

	clock.Advance(time.Minute)
	_, ok, err := cache.Load()
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(time.Second)
	_, ok, err = cache.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, store.Has(pkce.Key))
}

func TestExpiredEntryIsPurged(t *testing.T) {
	cache, store, clock := setup(t)
	require.NoError(t, cache.Save("verifier-1"))

	clock.Advance(10*time.Minute + time.Second)
	_, ok, err := cache.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, store.Has(pkce.Key), "expired entry must be deleted, not just ignored")

	clock.now = clock.now.Add(-time.Hour)
	_, ok, err = cache.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveOverwritesSlot(t *testing.T) {
	cache, _, _ := setup(t)
	require.NoError(t, cache.SaveEntry("first", "state-1"))
	require.NoError(t, cache.SaveEntry("second", "state-2"))

	e, err := cache.LoadEntry()
	require.NoError(t, err)
	require.Equal(t, "second", e.CodeVerifier)
	require.Equal(t, "state-2", e.State)
}

func TestPersistedLayout(t *testing.T) {
	cache, store, clock := setup(t)
	require.NoError(t, cache.Save("verifier-1"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(store.Raw(pkce.Key)), &raw))
	require.Equal(t, "verifier-1", raw["codeVerifier"])
	require.EqualValues(t, clock.now.UnixMilli(), raw["createdAt"])
}

func TestClear(t *testing.T) {
	cache, store, _ := setup(t)
	require.NoError(t, cache.Save("verifier-1"))
	require.NoError(t, cache.Clear())
	require.False(t, store.Has(pkce.Key))
	require.NoError(t, cache.Clear())
}

func TestCorruptEntryIsPurged(t *testing.T) {
	cache, store, _ := setup(t)
	require.NoError(t, store.Set(pkce.Key, "not-json"))

	_, ok, err := cache.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, store.Has(pkce.Key))
}

func TestEmptyVerifierRejected(t *testing.T) {
	cache, _, _ := setup(t)
	require.Error(t, cache.Save(""))
}

func TestStoreFailureSurfaces(t *testing.T) {
	cache, store, _ := setup(t)
	boom := errors.New("disk full")
	store.FailSet[pkce.Key] = boom
	require.ErrorIs(t, cache.Save("v"), boom)

	store.FailGet[pkce.Key] = boom
	_, _, err := cache.Load()
	require.ErrorIs(t, err, boom)
}

func TestRecordFailedExchange(t *testing.T) {
	cache, store, _ := setup(t)
	require.NoError(t, cache.Save("verifier-1"))

	exhausted, err := cache.RecordFailedExchange()
	require.NoError(t, err)
	require.False(t, exhausted)
	v, ok, err := cache.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "verifier-1", v)

	exhausted, err = cache.RecordFailedExchange()
	require.NoError(t, err)
	require.True(t, exhausted)
	require.False(t, store.Has(pkce.Key))
}

func TestNewVerifier(t *testing.T) {
	a, b := pkce.NewVerifier(), pkce.NewVerifier()
	require.NotEqual(t, a, b)
	require.GreaterOrEqual(t, len(a), 43)
}
