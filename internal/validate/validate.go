// Package validate filters candidate addresses down to domains that could
// actually receive mail: syntactically valid, non-disposable, and backed by
// an MX record.
package validate

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/technurture/mailsleuth/internal/cache"
	"github.com/technurture/mailsleuth/internal/decode"
)

// lookupTimeout bounds one MX resolution.
const lookupTimeout = 5 * time.Second

// Resolver answers MX queries. The production implementation wraps
// net.Resolver; tests inject fakes.
type Resolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// NetResolver is the default Resolver backed by the system DNS.
type NetResolver struct {
	r net.Resolver
}

// LookupMX resolves the domain's mail exchangers with a bounded timeout.
func (n *NetResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	return n.r.LookupMX(ctx, domain)
}

// Validator groups addresses by domain and performs one cached MX lookup per
// domain, keeping or dropping every sibling address on that single answer.
type Validator struct {
	resolver Resolver
	mxCache  *cache.TTL[bool]
}

// Option configures a Validator.
type Option func(*Validator)

// WithResolver injects a custom DNS resolver.
func WithResolver(r Resolver) Option {
	return func(v *Validator) { v.resolver = r }
}

// WithClock injects the cache clock, for deterministic expiry in tests.
func WithClock(now cache.Clock) Option {
	return func(v *Validator) { v.mxCache = cache.NewTTL[bool](cache.DefaultTTL, now) }
}

// New creates a Validator with a 1-hour MX cache.
func New(opts ...Option) *Validator {
	v := &Validator{
		resolver: &NetResolver{},
		mxCache:  cache.NewTTL[bool](cache.DefaultTTL, nil),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the subset of addresses whose domains are syntactically
// plausible, not disposable, not a known typo of a major provider, and have
// at least one MX record. Input order is preserved.
func (v *Validator) Validate(ctx context.Context, addresses []string) []string {
	domainOK := make(map[string]bool)
	var out []string

	for _, addr := range addresses {
		addr = decode.Normalize(addr)
		if !decode.IsValidEmail(addr) {
			continue
		}
		domain := decode.Domain(addr)
		ok, checked := domainOK[domain]
		if !checked {
			ok = v.domainAcceptsMail(ctx, domain)
			domainOK[domain] = ok
		}
		if ok {
			out = append(out, addr)
		}
	}
	return out
}

// HasMX reports whether a domain has at least one MX record, consulting the
// shared TTL cache first.
func (v *Validator) HasMX(ctx context.Context, domain string) bool {
	if has, ok := v.mxCache.Get(domain); ok {
		return has
	}
	records, err := v.resolver.LookupMX(ctx, domain)
	has := err == nil && len(records) > 0
	if err != nil {
		logrus.Debugf("MX lookup failed for %s: %v", domain, err)
	}
	v.mxCache.Set(domain, has)
	return has
}

func (v *Validator) domainAcceptsMail(ctx context.Context, domain string) bool {
	if isDisposable(domain) {
		return false
	}
	if _, typo := commonTypos[domain]; typo {
		return false
	}
	return v.HasMX(ctx, domain)
}
