package validate

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver serves canned MX answers and counts lookups per domain.
type fakeResolver struct {
	mu      sync.Mutex
	mx      map[string][]*net.MX
	lookups map[string]int
}

func newFakeResolver(domains ...string) *fakeResolver {
	f := &fakeResolver{mx: make(map[string][]*net.MX), lookups: make(map[string]int)}
	for _, d := range domains {
		f.mx[d] = []*net.MX{{Host: "mx." + d + ".", Pref: 10}}
	}
	return f
}

func (f *fakeResolver) LookupMX(_ context.Context, domain string) ([]*net.MX, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[domain]++
	records, ok := f.mx[domain]
	if !ok {
		return nil, errors.New("no such host")
	}
	return records, nil
}

func (f *fakeResolver) count(domain string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[domain]
}

func TestValidate_KeepsMXBackedDomains(t *testing.T) {
	resolver := newFakeResolver("acme.io")
	v := New(WithResolver(resolver))

	got := v.Validate(context.Background(), []string{"info@acme.io", "sales@nomx.io"})
	assert.Equal(t, []string{"info@acme.io"}, got)
}

func TestValidate_OneLookupPerDomain(t *testing.T) {
	resolver := newFakeResolver("acme.io")
	v := New(WithResolver(resolver))

	got := v.Validate(context.Background(), []string{"a@acme.io", "b@acme.io", "c@acme.io"})
	assert.Len(t, got, 3)
	assert.Equal(t, 1, resolver.count("acme.io"), "MX cost is amortized across sibling addresses")
}

func TestValidate_CachedAcrossCalls(t *testing.T) {
	resolver := newFakeResolver("acme.io")
	v := New(WithResolver(resolver))

	v.Validate(context.Background(), []string{"a@acme.io"})
	v.Validate(context.Background(), []string{"b@acme.io"})
	assert.Equal(t, 1, resolver.count("acme.io"))
}

func TestValidate_CacheExpiryForcesRecompute(t *testing.T) {
	resolver := newFakeResolver("acme.io")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := New(WithResolver(resolver), WithClock(func() time.Time { return now }))

	v.Validate(context.Background(), []string{"a@acme.io"})
	now = now.Add(2 * time.Hour)
	v.Validate(context.Background(), []string{"b@acme.io"})

	assert.Equal(t, 2, resolver.count("acme.io"), "expired entries are recomputed, never served stale")
}

func TestValidate_DropsDisposable(t *testing.T) {
	resolver := newFakeResolver("mailinator.com")
	v := New(WithResolver(resolver))

	got := v.Validate(context.Background(), []string{"x@mailinator.com", "y@mail.mailinator.com"})
	assert.Empty(t, got)
	assert.Equal(t, 0, resolver.count("mailinator.com"), "disposable hit short-circuits DNS")
}

func TestValidate_DropsCommonTypoDomains(t *testing.T) {
	resolver := newFakeResolver("gmai.com")
	v := New(WithResolver(resolver))

	got := v.Validate(context.Background(), []string{"someone@gmai.com"})
	assert.Empty(t, got)
}

func TestValidate_DropsMalformed(t *testing.T) {
	v := New(WithResolver(newFakeResolver()))
	got := v.Validate(context.Background(), []string{"not-an-email", "x@example.com"})
	assert.Empty(t, got)
}

func TestValidate_NormalizesCase(t *testing.T) {
	resolver := newFakeResolver("acme.io")
	v := New(WithResolver(resolver))

	got := v.Validate(context.Background(), []string{"Info@Acme.IO"})
	require.Len(t, got, 1)
	assert.Equal(t, "info@acme.io", got[0])
}
