package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/technurture/mailsleuth/internal/plan"
	"github.com/technurture/mailsleuth/internal/types"
)

// strategy is one stage of the extraction chain. Gated strategies are
// fallbacks: they run only while the crawl has produced zero candidates.
type strategy struct {
	name    string
	gated   bool
	attempt func(ctx context.Context, j *job) (bool, error)
}

func (p *Pipeline) strategies() []strategy {
	return []strategy{
		{name: "root-scan", attempt: p.rootScan},
		{name: "user-path-scan", attempt: p.userPathScan},
		{name: "priority-crawl", attempt: p.priorityCrawl},
		{name: "ai-analysis", gated: true, attempt: p.aiScan},
		{name: "related-domains", gated: true, attempt: p.relatedDomains},
		{name: "pattern-fallback", gated: true, attempt: p.patternFallback},
	}
}

// rootScan fetches the site root and seeds the crawl queue from its links
// and the sitemap. An unreachable root is the one terminal failure: with no
// document at all there is nothing to crawl, decode, or fall back on.
func (p *Pipeline) rootScan(ctx context.Context, j *job) (bool, error) {
	j.visited[j.baseURL] = true
	j.priorities[j.baseURL] = types.PriorityOther
	j.urlsChecked = append(j.urlsChecked, j.baseURL)
	j.pagesAttempted++
	before := len(j.candidates)

	html, ok := p.fetchSimple(ctx, j, j.baseURL)
	if ok {
		j.pagesScanned++
		p.harvestPage(j, html, j.baseURL)
	}
	if p.shouldRender(j, html, ok, before) {
		page := types.PriorityPage{URL: j.baseURL, Priority: types.PriorityOther, Source: types.SourceKnownPath}
		if renderedHTML, renderedOK := p.renderPasses(ctx, j, page, html, before); renderedOK {
			html, ok = renderedHTML, true
		}
	}
	if !ok {
		j.pagesFailed++
		return false, fmt.Errorf("could not fetch root page %s", j.baseURL)
	}

	j.rootHTML = html
	p.planFromRoot(ctx, j, html)
	return len(j.candidates) > before, nil
}

// userPathScan visits the exact URL the caller supplied when it is deeper
// than the root.
func (p *Pipeline) userPathScan(ctx context.Context, j *job) (bool, error) {
	if j.rawURL == j.baseURL || j.rawURL == j.baseURL+"/" {
		return false, nil
	}
	before := len(j.candidates)
	p.visit(ctx, j, types.PriorityPage{
		URL:      strings.TrimSuffix(j.rawURL, "/"),
		Priority: plan.Classify(j.rawURL, ""),
		Source:   types.SourceLink,
	})
	return len(j.candidates) > before, nil
}

// priorityCrawl walks the planned queue in priority order, stopping early
// once enough unique addresses are found or the page budget runs out.
func (p *Pipeline) priorityCrawl(ctx context.Context, j *job) (bool, error) {
	before := len(j.candidates)
	for _, page := range j.queue {
		if ctx.Err() != nil {
			break
		}
		if len(j.candidates) >= p.cfg.EmailTarget {
			j.earlyStop = true
			break
		}
		if j.pagesScanned >= p.cfg.PageBudget {
			j.budgetExhausted = true
			break
		}
		p.visit(ctx, j, page)
	}
	return len(j.candidates) > before, nil
}

// aiScan hands the root page text to the configured analyzer.
func (p *Pipeline) aiScan(ctx context.Context, j *job) (bool, error) {
	if p.analyzer == nil {
		return false, nil
	}
	before := len(j.candidates)
	p.analyzeText(ctx, j, j.rootHTML)
	return len(j.candidates) > before, nil
}

// relatedDomains retries the scan on close sibling hosts: the www/bare
// variant and the .com twin of a country-code domain.
func (p *Pipeline) relatedDomains(ctx context.Context, j *job) (bool, error) {
	before := len(j.candidates)
	for _, alt := range relatedVariants(j.baseURL) {
		if len(j.candidates) > before {
			break
		}
		p.visit(ctx, j, types.PriorityPage{URL: alt, Priority: types.PriorityOther, Source: types.SourceKnownPath})
	}
	return len(j.candidates) > before, nil
}

func relatedVariants(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	host := u.Hostname()
	var variants []string
	if strings.HasPrefix(host, "www.") {
		variants = append(variants, u.Scheme+"://"+strings.TrimPrefix(host, "www."))
	} else {
		variants = append(variants, u.Scheme+"://www."+host)
	}
	if !strings.HasSuffix(host, ".com") {
		if i := strings.LastIndex(host, "."); i > 0 {
			variants = append(variants, u.Scheme+"://"+host[:i]+".com")
		}
	}
	return variants
}

// fallbackLocals are the role mailboxes small businesses overwhelmingly use.
var fallbackLocals = []string{"info", "contact", "support", "sales", "hello"}

// patternFallback synthesizes role addresses at the site domain when the
// crawl found nothing at all. The domain must at least accept mail; the
// SMTP verifier then sorts real mailboxes from guesses.
func (p *Pipeline) patternFallback(ctx context.Context, j *job) (bool, error) {
	if j.siteDomain == "" || !p.validator.HasMX(ctx, j.siteDomain) {
		return false, nil
	}
	before := len(j.candidates)
	for _, local := range fallbackLocals {
		j.addCandidate(types.CandidateEmail{
			Address:          local + "@" + j.siteDomain,
			SourceURL:        j.baseURL,
			ExtractionMethod: types.MethodPattern,
		})
	}
	return len(j.candidates) > before, nil
}
