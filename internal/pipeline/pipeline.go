// Package pipeline orchestrates a full extraction: crawl, decode, validate,
// verify, score. One Pipeline serves many URLs; caches and the shared browser
// persist across calls while per-URL crawl state does not.
package pipeline

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/technurture/mailsleuth/internal/ai"
	"github.com/technurture/mailsleuth/internal/config"
	"github.com/technurture/mailsleuth/internal/fetch"
	"github.com/technurture/mailsleuth/internal/observability"
	"github.com/technurture/mailsleuth/internal/score"
	"github.com/technurture/mailsleuth/internal/types"
	"github.com/technurture/mailsleuth/internal/validate"
	"github.com/technurture/mailsleuth/internal/verify"
)

// patternCeiling caps the pre-verification confidence of synthesized
// fallback addresses.
const patternCeiling = 40

// RecordSink receives finished extraction results. Persisting records and
// usage counters belongs to the caller; the pipeline only notifies.
type RecordSink interface {
	RecordExtraction(ctx context.Context, result *types.ExtractionResult) error
}

// Pipeline wires the extraction stages together.
type Pipeline struct {
	cfg       config.Config
	client    *http.Client
	browser   *fetch.Manager
	validator *validate.Validator
	verifier  *verify.Verifier
	analyzer  ai.Analyzer
	printer   *observability.Printer
	sink      RecordSink

	// render is injectable so crawl logic is testable without Chrome.
	render func(ctx context.Context, rawURL string, opts *fetch.RenderOptions) (*fetch.Result, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient injects the client used for plain fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithValidator injects the domain validator.
func WithValidator(v *validate.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithVerifier injects the SMTP verifier.
func WithVerifier(v *verify.Verifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// WithAnalyzer injects the optional AI fallback. A nil analyzer is skipped.
func WithAnalyzer(a ai.Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithPrinter injects the verbose-mode printer.
func WithPrinter(pr *observability.Printer) Option {
	return func(p *Pipeline) { p.printer = pr }
}

// WithSink injects the extraction record sink.
func WithSink(s RecordSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithBrowser injects the shared browser manager. Without one, or with
// UseBrowser off, pages are never escalated to a rendered fetch.
func WithBrowser(m *fetch.Manager) Option {
	return func(p *Pipeline) { p.browser = m }
}

// New builds a Pipeline from config plus options.
func New(cfg config.Config, opts ...Option) *Pipeline {
	cfg = cfg.ApplyDefaults()
	p := &Pipeline{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout()},
	}
	p.render = func(ctx context.Context, rawURL string, ropts *fetch.RenderOptions) (*fetch.Result, error) {
		return fetch.Rendered(ctx, p.browser, rawURL, ropts)
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.validator == nil {
		p.validator = validate.New()
	}
	if p.verifier == nil {
		p.verifier = verify.New(
			verify.WithSender(cfg.ProbeSender),
			verify.WithHelloDomain(cfg.HelloDomain),
			verify.WithHostTimeout(cfg.SMTPTimeout()),
			verify.WithBatchBudget(cfg.VerifyBudget()),
		)
	}
	return p
}

// Shutdown releases the shared browser, if one was launched.
func (p *Pipeline) Shutdown() {
	if p.browser != nil {
		p.browser.Shutdown()
	}
}

// ExtractEmailsFromURL runs the full strategy chain against one URL. Only a
// completely unreachable root page is a terminal error; everything else
// degrades into the result's quality and blocked metadata.
func (p *Pipeline) ExtractEmailsFromURL(ctx context.Context, rawURL string) (*types.ExtractionResult, error) {
	j, err := newJob(rawURL)
	if err != nil {
		return nil, err
	}

	for _, s := range p.strategies() {
		if s.gated && len(j.candidates) > 0 {
			continue
		}
		contributed, err := s.attempt(ctx, j)
		if err != nil {
			// Only the root strategy is allowed to kill the crawl.
			result := j.result()
			result.Error = err.Error()
			p.record(ctx, result)
			return result, err
		}
		if contributed {
			logrus.Debugf("strategy %s contributed candidates for %s", s.name, j.rawURL)
		}
		if len(j.candidates) >= p.cfg.EmailTarget {
			j.earlyStop = true
			break
		}
	}

	result := p.finish(ctx, j)
	p.record(ctx, result)
	return result, nil
}

// BatchVerifyEmails probes addresses grouped by domain under the global
// verification ceiling.
func (p *Pipeline) BatchVerifyEmails(ctx context.Context, addresses []string) []types.VerificationResult {
	results := p.verifier.BatchVerify(ctx, addresses)
	if p.printer != nil && p.cfg.Verbose {
		p.printer.PrintVerification(results)
	}
	return results
}

// ExtractBatch processes several URLs with bounded concurrency. Results keep
// input order; a failed URL yields a result carrying its error instead of
// aborting the batch.
func (p *Pipeline) ExtractBatch(ctx context.Context, urls []string) []*types.ExtractionResult {
	limit := p.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	results := make([]*types.ExtractionResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			res, err := p.ExtractEmailsFromURL(gctx, u)
			if res == nil {
				res = &types.ExtractionResult{ScanID: uuid.New(), URL: u, ScanQuality: types.QualityPartial}
				if err != nil {
					res.Error = err.Error()
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// finish turns accumulated crawl state into the caller-facing result:
// validation, SMTP verification, scoring, ordering.
func (p *Pipeline) finish(ctx context.Context, j *job) *types.ExtractionResult {
	result := j.result()

	addresses := make([]string, 0, len(j.candidates))
	for addr := range j.candidates {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	result.Emails = addresses

	validated := p.validator.Validate(ctx, addresses)
	result.ValidatedEmails = validated

	verdicts := make(map[string]types.VerificationResult)
	if !p.cfg.SkipVerify && len(validated) > 0 {
		for _, vr := range p.verifier.BatchVerify(ctx, validated) {
			verdicts[vr.Address] = vr
		}
	}

	scored := make([]types.EmailWithConfidence, 0, len(addresses))
	for _, addr := range addresses {
		cand := j.candidates[addr]
		confidence := score.Score(addr, cand.SourceURL, j.siteDomain, score.Context{
			PagePriority:  j.pagePriority(cand.SourceURL),
			FoundInMailto: cand.FoundInMailto,
			FoundInScript: cand.FoundInScript,
		})
		if cand.ExtractionMethod == types.MethodPattern && confidence > patternCeiling {
			// Synthesized addresses were never seen on a page.
			confidence = patternCeiling
		}
		entry := types.EmailWithConfidence{
			Address:    addr,
			Confidence: confidence,
			Source:     string(cand.ExtractionMethod),
		}
		if vr, ok := verdicts[addr]; ok {
			entry.Confidence = score.AdjustForVerification(confidence, vr.Status)
			entry.Verified = vr.Status == types.StatusValid
			entry.VerificationStatus = vr.Status
		}
		scored = append(scored, entry)
	}
	types.SortByConfidence(scored)
	result.EmailsWithConfidence = scored

	ordered := make([]string, len(scored))
	for i, e := range scored {
		ordered[i] = e.Address
	}
	result.Emails = ordered
	return result
}

func (p *Pipeline) record(ctx context.Context, result *types.ExtractionResult) {
	if p.sink == nil {
		return
	}
	if err := p.sink.RecordExtraction(ctx, result); err != nil {
		logrus.Warnf("record sink failed for %s: %v", result.URL, err)
	}
}

// analyzeText runs the AI fallback over visible page text when configured.
func (p *Pipeline) analyzeText(ctx context.Context, j *job, html string) {
	if p.analyzer == nil || html == "" {
		return
	}
	text := visibleText(html)
	if strings.TrimSpace(text) == "" {
		return
	}
	found, err := p.analyzer.Analyze(ctx, text, j.siteDomain)
	if err != nil {
		logrus.Debugf("AI analysis failed for %s: %v", j.rawURL, err)
		return
	}
	for _, addr := range found {
		j.addCandidate(types.CandidateEmail{
			Address:          addr,
			SourceURL:        j.baseURL,
			ExtractionMethod: types.MethodAI,
		})
	}
}
