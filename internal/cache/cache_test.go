package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, making TTL expiry deterministic.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestTTL_GetSet(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[bool](time.Hour, clock.Now)

	_, ok := c.Get("acme.com")
	assert.False(t, ok)

	c.Set("acme.com", true)
	v, ok := c.Get("acme.com")
	require.True(t, ok)
	assert.True(t, v)
}

func TestTTL_FreshWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[string](time.Hour, clock.Now)

	c.Set("k", "v")
	clock.Advance(59 * time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTTL_ExpiredEntryIsAbsent(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[bool](time.Hour, clock.Now)

	c.Set("acme.com", true)
	clock.Advance(time.Hour)

	_, ok := c.Get("acme.com")
	assert.False(t, ok, "entry at exactly TTL age must be treated as absent")
}

func TestTTL_RecomputedEntryIsFreshAgain(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[int](time.Hour, clock.Now)

	c.Set("k", 1)
	clock.Advance(2 * time.Hour)
	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", 2)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_LastWriterWins(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[string](time.Hour, clock.Now)

	c.Set("k", "first")
	c.Set("k", "second")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestTTL_DefaultsForZeroValues(t *testing.T) {
	c := NewTTL[bool](0, nil)
	c.Set("k", true)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.True(t, v)
	assert.Equal(t, 1, c.Len())
}
