package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technurture/mailsleuth/internal/config"
	"github.com/technurture/mailsleuth/internal/fetch"
	"github.com/technurture/mailsleuth/internal/types"
	"github.com/technurture/mailsleuth/internal/validate"
	"github.com/technurture/mailsleuth/internal/verify"
)

// siteResolver answers MX queries for the domains the fixtures use.
type siteResolver struct {
	domains map[string]bool
}

func (r siteResolver) LookupMX(_ context.Context, domain string) ([]*net.MX, error) {
	if r.domains[domain] {
		return []*net.MX{{Host: "mx." + domain + ".", Pref: 10}}, nil
	}
	return nil, errors.New("no such host")
}

func newTestPipeline(cfg config.Config, opts ...Option) *Pipeline {
	resolver := siteResolver{domains: map[string]bool{"acme.io": true}}
	base := []Option{
		WithValidator(validate.New(validate.WithResolver(resolver))),
	}
	return New(cfg, append(base, opts...)...)
}

func serveSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExtractEmailsFromURL_CrawlsPriorityPagesAndStopsEarly(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/": `<html><body>
			<a href="/contact">Contact</a>
			<a href="/about">About us</a>
			<a href="/products/widget">Widget</a>
			<p>office@acme.io</p>
		</body></html>`,
		"/contact": `<html><body>
			<a href="mailto:sales@acme.io">Email sales</a>
			<p>reach us at info [at] acme [dot] com</p>
		</body></html>`,
		"/about": `<html><body><p>hello@acme.io</p></body></html>`,
	})

	p := newTestPipeline(config.Config{EmailTarget: 3, SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"office@acme.io", "sales@acme.io", "info@acme.com"}, result.Emails)
	assert.Equal(t, types.QualityThorough, result.ScanQuality)
	assert.NotContains(t, result.URLsChecked, server.URL+"/about", "the crawl stops once the email target is met")
	assert.Contains(t, result.Methods, "mailto")
	assert.Contains(t, result.Methods, "obfuscation-pattern")
	assert.NotEqual(t, uuid.Nil, result.ScanID)
}

func TestExtractEmailsFromURL_ContactPageOutranksNoise(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/": `<html><body>
			<a href="/products/widget">Widget</a>
			<a href="/contact">Contact</a>
		</body></html>`,
		"/contact":         `<html><body><a href="mailto:sales@acme.io">write us</a></body></html>`,
		"/products/widget": `<html><body><p>spam@acme.io</p></body></html>`,
	})

	p := newTestPipeline(config.Config{EmailTarget: 1, SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, []string{"sales@acme.io"}, result.Emails)
	assert.NotContains(t, result.URLsChecked, server.URL+"/products/widget", "product paths are noise")
}

func TestExtractEmailsFromURL_UserPathIsScanned(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/":          `<html><body>nothing here</body></html>`,
		"/team/jane": `<html><body><p>jane@acme.io</p></body></html>`,
	})

	p := newTestPipeline(config.Config{EmailTarget: 1, SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL+"/team/jane")
	require.NoError(t, err)

	assert.Contains(t, result.Emails, "jane@acme.io")
	assert.Contains(t, result.URLsChecked, server.URL+"/team/jane")
}

func TestExtractEmailsFromURL_UnreachableRootIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>Access denied, you have been blocked</html>"))
	}))
	defer server.Close()

	p := newTestPipeline(config.Config{SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)

	require.Error(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Error)
	require.NotNil(t, result.ExtractionDetails)
	assert.True(t, result.ExtractionDetails.Blocked)
}

func TestExtractEmailsFromURL_FirstBlockedReasonWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<html><body><a href="/contact">Contact</a><a href="/about">About</a></body></html>`))
		case "/contact":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("<html>slow down</html>"))
		case "/about":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<html>Access denied</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := newTestPipeline(config.Config{SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	require.NotNil(t, result.ExtractionDetails)
	assert.Contains(t, result.ExtractionDetails.BlockedReason, "429", "the first blocked page sets the reason")
}

func TestExtractEmailsFromURL_ValidationDropsDomainsWithoutMX(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/": `<html><body><p>info@acme.io and ghost@nomx.net</p></body></html>`,
	})

	p := newTestPipeline(config.Config{SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, result.Emails, "ghost@nomx.net", "candidates survive in the raw list")
	assert.Equal(t, []string{"info@acme.io"}, result.ValidatedEmails)
}

func TestExtractEmailsFromURL_VerificationOutcomeIsMerged(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/": `<html><body><p>info@acme.io</p></body></html>`,
	})

	resolver := siteResolver{domains: map[string]bool{"acme.io": true}}
	verifier := verify.New(
		verify.WithResolver(resolver),
		verify.WithDialer(func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		}),
	)
	p := newTestPipeline(config.Config{}, WithVerifier(verifier))

	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, result.EmailsWithConfidence, 1)
	entry := result.EmailsWithConfidence[0]
	assert.Equal(t, "info@acme.io", entry.Address)
	assert.Equal(t, types.StatusTimeout, entry.VerificationStatus)
	assert.False(t, entry.Verified)
}

func TestExtractEmailsFromURL_ResultsSortedByConfidence(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/": `<html><body>
			<a href="/contact">Contact</a>
			<script>var cfg = {"contact_email": "buried@elsewhere.net"};</script>
		</body></html>`,
		"/contact": `<html><body><a href="mailto:info@acme.io">info</a></body></html>`,
	})

	p := newTestPipeline(config.Config{SkipVerify: true})
	result, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, result.EmailsWithConfidence, 2)
	assert.Equal(t, "info@acme.io", result.EmailsWithConfidence[0].Address,
		"mailto on a contact page outscores a script-only find")
	assert.Greater(t, result.EmailsWithConfidence[0].Confidence, result.EmailsWithConfidence[1].Confidence)
	assert.Equal(t, result.Emails[0], result.EmailsWithConfidence[0].Address)
}

func TestPatternFallback_SynthesizesRoleAddresses(t *testing.T) {
	p := newTestPipeline(config.Config{SkipVerify: true})
	j, err := newJob("https://acme.io")
	require.NoError(t, err)

	contributed, err := p.patternFallback(context.Background(), j)
	require.NoError(t, err)
	assert.True(t, contributed)
	assert.Contains(t, j.candidates, "info@acme.io")
	assert.Contains(t, j.candidates, "sales@acme.io")
	assert.Equal(t, types.MethodPattern, j.candidates["info@acme.io"].ExtractionMethod)
}

func TestPatternFallback_RequiresMX(t *testing.T) {
	p := newTestPipeline(config.Config{SkipVerify: true})
	j, err := newJob("https://nomx.example")
	require.NoError(t, err)

	contributed, err := p.patternFallback(context.Background(), j)
	require.NoError(t, err)
	assert.False(t, contributed)
	assert.Empty(t, j.candidates)
}

func TestRelatedVariants(t *testing.T) {
	assert.Equal(t, []string{"https://www.acme.co.uk", "https://acme.co.com"}, relatedVariants("https://acme.co.uk"))
	assert.Equal(t, []string{"https://acme.com"}, relatedVariants("https://www.acme.com"))
}

func TestExtractBatch_KeepsInputOrder(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/":  `<html><body>welcome</body></html>`,
		"/a": `<html><body>first@acme.io</body></html>`,
		"/b": `<html><body>second@acme.io</body></html>`,
	})

	p := newTestPipeline(config.Config{EmailTarget: 1, Concurrency: 2, SkipVerify: true})
	results := p.ExtractBatch(context.Background(), []string{server.URL + "/a", server.URL + "/b"})

	require.Len(t, results, 2)
	assert.Equal(t, server.URL+"/a", results[0].URL)
	assert.Contains(t, results[0].Emails, "first@acme.io")
	assert.Equal(t, server.URL+"/b", results[1].URL)
	assert.Contains(t, results[1].Emails, "second@acme.io")
}

func TestExtractEmailsFromURL_RecordSinkIsNotified(t *testing.T) {
	server := serveSite(t, map[string]string{
		"/": `<html><body>info@acme.io</body></html>`,
	})

	var recorded []*types.ExtractionResult
	sink := sinkFunc(func(_ context.Context, r *types.ExtractionResult) error {
		recorded = append(recorded, r)
		return nil
	})
	p := newTestPipeline(config.Config{SkipVerify: true}, WithSink(sink))

	_, err := p.ExtractEmailsFromURL(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Contains(t, recorded[0].Emails, "info@acme.io")
}

type sinkFunc func(ctx context.Context, result *types.ExtractionResult) error

func (f sinkFunc) RecordExtraction(ctx context.Context, result *types.ExtractionResult) error {
	return f(ctx, result)
}

func TestHarvestRender_LabelsFrameAndShadowFinds(t *testing.T) {
	p := newTestPipeline(config.Config{SkipVerify: true})
	j, err := newJob("https://acme.io")
	require.NoError(t, err)

	p.harvestRender(j, &fetch.Result{
		HTML:       `<html><body><p>plain@acme.io</p></body></html>`,
		StatusCode: 200,
		Frames:     []string{`<html><body><p>framed@acme.io</p></body></html>`},
		ShadowHTML: []string{`<div><p>shadowed@acme.io</p></div>`},
	}, "https://acme.io")

	assert.Equal(t, types.MethodFrame, j.candidates["framed@acme.io"].ExtractionMethod)
	assert.Equal(t, types.MethodShadowDOM, j.candidates["shadowed@acme.io"].ExtractionMethod)
	assert.NotEqual(t, types.MethodFrame, j.candidates["plain@acme.io"].ExtractionMethod,
		"the outer document keeps its own decode method")
}

func TestNewJob_NormalizesURL(t *testing.T) {
	j, err := newJob("acme.io/contact")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.io/contact", j.rawURL)
	assert.Equal(t, "https://acme.io", j.baseURL)
	assert.Equal(t, "acme.io", j.siteDomain)

	_, err = newJob("   ")
	assert.Error(t, err)
}
