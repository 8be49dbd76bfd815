// Package verify probes mailboxes over SMTP without ever sending mail. A
// probe walks the RFC 5321 handshake up to RCPT TO, classifies the reply
// code, and quits. Catch-all domains are detected with a synthetic random
// mailbox so sibling addresses never pay for a second socket.
package verify

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/technurture/mailsleuth/internal/cache"
	"github.com/technurture/mailsleuth/internal/decode"
	"github.com/technurture/mailsleuth/internal/types"
	"github.com/technurture/mailsleuth/internal/validate"
)

const (
	defaultHostTimeout = 8 * time.Second
	defaultBatchBudget = 30 * time.Second
	defaultSender      = "verify@mailsleuth.local"
	defaultHelloDomain = "mailsleuth.local"
	smtpPort           = "25"
)

// Confidence attached to outcomes that carry a fixed score rather than a
// reply-code-derived one.
const (
	confidenceValid    = 85
	confidenceCatchAll = 60
	confidenceUnknown  = 50
	confidenceTimeout  = 45
)

// DialFunc opens the TCP connection to a mail exchanger. Tests substitute a
// dialer pointed at a local listener.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Verifier probes addresses against their domain's mail exchangers. All three
// caches (probe results, catch-all flags, MX host lists) share a 1-hour TTL
// and are safe for concurrent use.
type Verifier struct {
	dial        DialFunc
	resolver    validate.Resolver
	sender      string
	helloDomain string
	hostTimeout time.Duration
	batchBudget time.Duration

	results  *cache.TTL[types.VerificationResult]
	catchAll *cache.TTL[bool]
	mxHosts  *cache.TTL[[]string]
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithDialer injects the TCP dialer used to reach mail exchangers.
func WithDialer(d DialFunc) Option {
	return func(v *Verifier) { v.dial = d }
}

// WithResolver injects the DNS resolver used for MX lookups.
func WithResolver(r validate.Resolver) Option {
	return func(v *Verifier) { v.resolver = r }
}

// WithSender overrides the MAIL FROM address used in probes.
func WithSender(addr string) Option {
	return func(v *Verifier) { v.sender = addr }
}

// WithHelloDomain overrides the domain announced in HELO.
func WithHelloDomain(domain string) Option {
	return func(v *Verifier) { v.helloDomain = domain }
}

// WithHostTimeout overrides the per-exchanger probe deadline.
func WithHostTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.hostTimeout = d }
}

// WithBatchBudget overrides the global ceiling for BatchVerify.
func WithBatchBudget(d time.Duration) Option {
	return func(v *Verifier) { v.batchBudget = d }
}

// WithClock rebuilds the caches on the given clock, for deterministic expiry
// in tests.
func WithClock(now cache.Clock) Option {
	return func(v *Verifier) {
		v.results = cache.NewTTL[types.VerificationResult](cache.DefaultTTL, now)
		v.catchAll = cache.NewTTL[bool](cache.DefaultTTL, now)
		v.mxHosts = cache.NewTTL[[]string](cache.DefaultTTL, now)
	}
}

// New creates a Verifier with production defaults: the system resolver, a
// plain TCP dialer, and 1-hour caches.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
		resolver:    &validate.NetResolver{},
		sender:      defaultSender,
		helloDomain: defaultHelloDomain,
		hostTimeout: defaultHostTimeout,
		batchBudget: defaultBatchBudget,
		results:     cache.NewTTL[types.VerificationResult](cache.DefaultTTL, nil),
		catchAll:    cache.NewTTL[bool](cache.DefaultTTL, nil),
		mxHosts:     cache.NewTTL[[]string](cache.DefaultTTL, nil),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify probes a single address. Results are cached by lowercase address, so
// repeated calls within the TTL never reopen a socket.
func (v *Verifier) Verify(ctx context.Context, address string) types.VerificationResult {
	addr := decode.Normalize(address)
	if cached, ok := v.results.Get(addr); ok {
		return cached
	}
	result := v.verifyUncached(ctx, addr)
	v.results.Set(addr, result)
	return result
}

// BatchVerify probes addresses sequentially under a global time ceiling.
// Addresses that fall outside the ceiling are reported unknown rather than
// dropped, so callers always get one result per input.
func (v *Verifier) BatchVerify(ctx context.Context, addresses []string) []types.VerificationResult {
	bctx, cancel := context.WithTimeout(ctx, v.batchBudget)
	defer cancel()

	// Siblings on one domain share the catch-all probe, so grouping them
	// makes the cache hit before the ceiling can cut the group in half.
	ordered := append([]string(nil), addresses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return decode.Domain(decode.Normalize(ordered[i])) < decode.Domain(decode.Normalize(ordered[j]))
	})

	byAddress := make(map[string]types.VerificationResult, len(ordered))
	for _, addr := range ordered {
		normalized := decode.Normalize(addr)
		if bctx.Err() != nil {
			byAddress[normalized] = types.VerificationResult{
				Address:    normalized,
				Status:     types.StatusUnknown,
				Confidence: confidenceUnknown,
				Reason:     "verification window elapsed before this address was probed",
			}
			continue
		}
		byAddress[normalized] = v.Verify(bctx, addr)
	}

	results := make([]types.VerificationResult, 0, len(addresses))
	for _, addr := range addresses {
		results = append(results, byAddress[decode.Normalize(addr)])
	}
	return results
}

func (v *Verifier) verifyUncached(ctx context.Context, addr string) types.VerificationResult {
	domain := decode.Domain(addr)
	hosts, ok := v.exchangers(ctx, domain)
	if !ok {
		return types.VerificationResult{
			Address:    addr,
			Status:     types.StatusUnknown,
			Confidence: 0,
			Reason:     "no MX records for " + domain,
		}
	}

	if isCatchAll, known := v.catchAll.Get(domain); known && isCatchAll {
		return catchAllResult(addr)
	} else if !known {
		switch v.probeCatchAll(ctx, hosts, domain) {
		case types.StatusValid:
			v.catchAll.Set(domain, true)
			return catchAllResult(addr)
		case types.StatusInvalid:
			v.catchAll.Set(domain, false)
		}
		// Temporary or transport failures leave the flag unset so a later
		// probe can still settle it.
	}

	code, msg, err := v.probe(ctx, hosts, addr)
	if err != nil {
		logrus.Debugf("SMTP probe failed for %s: %v", addr, err)
		return types.VerificationResult{
			Address:    addr,
			IsValid:    true,
			Status:     types.StatusTimeout,
			Confidence: confidenceTimeout,
			Reason:     "every mail exchanger timed out or failed during the probe",
		}
	}
	return classifyReply(addr, code, msg)
}

// probeCatchAll tests a random, certainly-nonexistent mailbox. Acceptance
// means the domain takes anything and a positive answer for the real address
// is non-diagnostic.
func (v *Verifier) probeCatchAll(ctx context.Context, hosts []string, domain string) types.VerificationStatus {
	synthetic := strings.ReplaceAll(uuid.NewString(), "-", "") + "@" + domain
	code, msg, err := v.probe(ctx, hosts, synthetic)
	if err != nil {
		return types.StatusTimeout
	}
	return classifyReply(synthetic, code, msg).Status
}

// probe walks the exchangers in preference order until one completes the
// handshake. Transport and protocol failures fall through to the next host.
func (v *Verifier) probe(ctx context.Context, hosts []string, addr string) (int, string, error) {
	var lastErr error
	for _, host := range hosts {
		code, msg, err := v.probeHost(ctx, host, addr)
		if err != nil {
			logrus.Debugf("SMTP exchanger %s failed for %s: %v", host, addr, err)
			lastErr = err
			continue
		}
		return code, msg, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no exchangers to probe for %s", addr)
	}
	return 0, "", lastErr
}

func (v *Verifier) probeHost(ctx context.Context, host, addr string) (int, string, error) {
	hctx, cancel := context.WithTimeout(ctx, v.hostTimeout)
	defer cancel()

	conn, err := v.dial(hctx, "tcp", net.JoinHostPort(host, smtpPort))
	if err != nil {
		return 0, "", err
	}
	_ = conn.SetDeadline(time.Now().Add(v.hostTimeout))
	tc := textproto.NewConn(conn)
	defer tc.Close()

	if _, _, err := tc.ReadResponse(220); err != nil {
		return 0, "", err
	}
	if err := v.expect(tc, 250, "HELO %s", v.helloDomain); err != nil {
		return 0, "", err
	}
	if err := v.expect(tc, 250, "MAIL FROM:<%s>", v.sender); err != nil {
		return 0, "", err
	}
	if err := tc.PrintfLine("RCPT TO:<%s>", addr); err != nil {
		return 0, "", err
	}
	code, msg, err := tc.ReadResponse(-1)
	if err != nil {
		if protoErr, ok := err.(*textproto.Error); ok {
			code, msg = protoErr.Code, protoErr.Msg
		} else {
			return 0, "", err
		}
	}
	_ = tc.PrintfLine("QUIT")
	return code, msg, nil
}

func (v *Verifier) expect(tc *textproto.Conn, want int, format string, args ...interface{}) error {
	if err := tc.PrintfLine(format, args...); err != nil {
		return err
	}
	_, _, err := tc.ReadResponse(want)
	return err
}

// exchangers resolves and caches the domain's MX hosts sorted by preference.
func (v *Verifier) exchangers(ctx context.Context, domain string) ([]string, bool) {
	if hosts, ok := v.mxHosts.Get(domain); ok {
		return hosts, len(hosts) > 0
	}
	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		logrus.Debugf("MX lookup failed for %s: %v", domain, err)
		v.mxHosts.Set(domain, nil)
		return nil, false
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Pref < records[j].Pref })
	hosts := make([]string, 0, len(records))
	for _, mx := range records {
		hosts = append(hosts, strings.TrimSuffix(mx.Host, "."))
	}
	v.mxHosts.Set(domain, hosts)
	return hosts, len(hosts) > 0
}

func classifyReply(addr string, code int, msg string) types.VerificationResult {
	switch {
	case code == 250 || code == 251:
		return types.VerificationResult{
			Address:    addr,
			IsValid:    true,
			Status:     types.StatusValid,
			Confidence: confidenceValid,
			Reason:     fmt.Sprintf("recipient accepted (%d)", code),
		}
	case code >= 550 && code <= 554:
		return types.VerificationResult{
			Address:    addr,
			Status:     types.StatusInvalid,
			Confidence: 0,
			Reason:     fmt.Sprintf("recipient rejected (%d %s)", code, msg),
		}
	case code >= 450 && code <= 452:
		return types.VerificationResult{
			Address:    addr,
			Status:     types.StatusUnknown,
			Confidence: confidenceUnknown,
			Reason:     fmt.Sprintf("temporary failure (%d %s)", code, msg),
		}
	case code == 421:
		return types.VerificationResult{
			Address:    addr,
			Status:     types.StatusUnknown,
			Confidence: confidenceUnknown,
			Reason:     "server closing transmission channel (421)",
		}
	default:
		return types.VerificationResult{
			Address:    addr,
			Status:     types.StatusUnknown,
			Confidence: confidenceUnknown,
			Reason:     fmt.Sprintf("unrecognized reply (%d %s)", code, msg),
		}
	}
}

func catchAllResult(addr string) types.VerificationResult {
	return types.VerificationResult{
		Address:    addr,
		IsValid:    true,
		Status:     types.StatusCatchAll,
		Confidence: confidenceCatchAll,
		Reason:     "domain accepts any mailbox",
	}
}
