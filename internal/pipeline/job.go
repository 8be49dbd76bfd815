package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/technurture/mailsleuth/internal/decode"
	"github.com/technurture/mailsleuth/internal/fetch"
	"github.com/technurture/mailsleuth/internal/plan"
	"github.com/technurture/mailsleuth/internal/types"
)

// job is the per-URL crawl state. It lives for exactly one extraction and is
// never shared between goroutines.
type job struct {
	scanID     uuid.UUID
	rawURL     string
	baseURL    string
	siteDomain string

	queue      []types.PriorityPage
	visited    map[string]bool
	candidates map[string]types.CandidateEmail
	priorities map[string]types.PagePriority // page URL -> priority it was crawled at

	rootHTML     string
	pagesScanned int
	urlsChecked  []string
	methods      map[string]bool
	blocked      *types.BlockedStatus

	pagesAttempted  int
	pagesFailed     int
	pagesBlocked    int
	budgetExhausted bool
	earlyStop       bool
}

func newJob(rawURL string) (*job, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}
	return &job{
		scanID:     uuid.New(),
		rawURL:     trimmed,
		baseURL:    parsed.Scheme + "://" + parsed.Host,
		siteDomain: strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www."),
		visited:    make(map[string]bool),
		candidates: make(map[string]types.CandidateEmail),
		priorities: make(map[string]types.PagePriority),
		methods:    make(map[string]bool),
	}, nil
}

// addCandidate merges one decoded address into the crawl set. The first
// sighting fixes the source URL and method; the context flags accumulate so
// an address is script-only just when no page ever showed it outside a
// script.
func (j *job) addCandidate(c types.CandidateEmail) {
	j.methods[string(c.ExtractionMethod)] = true
	existing, seen := j.candidates[c.Address]
	if !seen {
		j.candidates[c.Address] = c
		return
	}
	existing.FoundInMailto = existing.FoundInMailto || c.FoundInMailto
	existing.FoundInScript = existing.FoundInScript && c.FoundInScript
	j.candidates[c.Address] = existing
}

// recordBlocked keeps the first blocked status seen for the whole crawl.
func (j *job) recordBlocked(status types.BlockedStatus) {
	j.pagesBlocked++
	if j.blocked == nil {
		j.blocked = &status
	}
}

func (j *job) pagePriority(pageURL string) types.PagePriority {
	if p, ok := j.priorities[pageURL]; ok {
		return p
	}
	return types.PriorityOther
}

func (j *job) quality() types.ScanQuality {
	if j.pagesAttempted == 0 {
		return types.QualityPartial
	}
	if j.pagesBlocked*2 > j.pagesAttempted {
		return types.QualityBlocked
	}
	if j.earlyStop {
		return types.QualityThorough
	}
	if j.budgetExhausted {
		return types.QualityPartial
	}
	reachable := j.pagesAttempted - j.pagesFailed
	if reachable*2 < j.pagesAttempted {
		return types.QualityPartial
	}
	return types.QualityThorough
}

// result builds the outer shell of the extraction result. Scoring and
// verification fill in the rest.
func (j *job) result() *types.ExtractionResult {
	res := &types.ExtractionResult{
		ScanID:       j.scanID,
		URL:          j.rawURL,
		Emails:       []string{},
		PagesScanned: j.pagesScanned,
		URLsChecked:  j.urlsChecked,
		ScanQuality:  j.quality(),
	}
	for m := range j.methods {
		res.Methods = append(res.Methods, m)
	}
	sort.Strings(res.Methods)
	if j.blocked != nil {
		res.ExtractionDetails = &types.ExtractionDetails{
			Blocked:         true,
			BlockedReason:   j.blocked.Reason,
			SuggestedAction: j.blocked.Suggestion,
		}
	}
	return res
}

// visit fetches one page, escalating from a plain GET to rendered and mobile
// passes when the cheap path yields nothing. Candidates are merged into the
// job; returns how many new unique addresses the page contributed.
func (p *Pipeline) visit(ctx context.Context, j *job, page types.PriorityPage) int {
	if j.visited[page.URL] {
		return 0
	}
	j.visited[page.URL] = true
	j.priorities[page.URL] = page.Priority
	j.urlsChecked = append(j.urlsChecked, page.URL)
	j.pagesAttempted++

	before := len(j.candidates)

	html, ok := p.fetchSimple(ctx, j, page.URL)
	if ok {
		j.pagesScanned++
		p.harvestPage(j, html, page.URL)
	}

	if p.shouldRender(j, html, ok, before) {
		_, renderedOK := p.renderPasses(ctx, j, page, html, before)
		ok = ok || renderedOK
	}
	if !ok {
		j.pagesFailed++
	}

	found := len(j.candidates) - before
	if p.printer != nil && p.cfg.Verbose {
		p.printer.PrintPageVisit(page.URL, page.Priority, found)
	}
	return found
}

// fetchSimple runs the plain GET and blocked detection. The HTML comes back
// even on failure so render escalation can reuse it.
func (p *Pipeline) fetchSimple(ctx context.Context, j *job, pageURL string) (string, bool) {
	result, err := fetch.Simple(ctx, pageURL, &fetch.Options{
		Timeout:   p.cfg.FetchTimeout(),
		UserAgent: fetch.DesktopUserAgent,
		Client:    p.client,
	})
	if result != nil {
		if status := fetch.DetectBlocked(result.HTML, result.StatusCode); status.IsBlocked {
			j.recordBlocked(status)
		}
	}
	if err != nil {
		logrus.Debugf("simple fetch failed for %s: %v", pageURL, err)
		if result != nil {
			return result.HTML, false
		}
		return "", false
	}
	return result.HTML, true
}

// shouldRender decides whether a page earns a browser pass: the plain fetch
// failed, found nothing new, or served a JavaScript shell.
func (p *Pipeline) shouldRender(j *job, html string, fetched bool, before int) bool {
	if !p.browserEnabled() {
		return false
	}
	if !fetched {
		return true
	}
	if len(j.candidates) == before {
		return true
	}
	return isJSShell(html)
}

// renderPasses escalates desktop render, then a long-settle retry on
// storefront platforms, then a mobile emulation pass. Returns the first
// rendered document and whether any pass succeeded.
func (p *Pipeline) renderPasses(ctx context.Context, j *job, page types.PriorityPage, simpleHTML string, before int) (string, bool) {
	scrollFull := page.Priority == types.PriorityLegal

	rendered, err := p.render(ctx, page.URL, &fetch.RenderOptions{
		Device:     fetch.DeviceDesktop,
		ScrollFull: scrollFull,
	})
	if err != nil {
		logrus.Debugf("rendered fetch failed for %s: %v", page.URL, err)
		return "", false
	}
	j.pagesScanned++
	p.harvestRender(j, rendered, page.URL)

	platform := fetch.DetectPlatform(rendered.HTML)
	if platform == fetch.PlatformUnknown {
		platform = fetch.DetectPlatform(simpleHTML)
	}
	if len(j.candidates) == before && fetch.IsStorefront(platform) {
		if again, err := p.render(ctx, page.URL, &fetch.RenderOptions{
			Device:     fetch.DeviceDesktop,
			LongSettle: true,
			ScrollFull: scrollFull,
		}); err == nil {
			p.harvestRender(j, again, page.URL)
		}
	}
	if len(j.candidates) == before {
		if mobile, err := p.render(ctx, page.URL, &fetch.RenderOptions{Device: fetch.DeviceMobile}); err == nil {
			p.harvestRender(j, mobile, page.URL)
		}
	}
	return rendered.HTML, true
}

func (p *Pipeline) harvestPage(j *job, html, pageURL string) {
	for _, cand := range decode.Decode(html, pageURL) {
		j.addCandidate(cand)
	}
}

func (p *Pipeline) harvestRender(j *job, result *fetch.Result, pageURL string) {
	if status := fetch.DetectBlocked(result.HTML, result.StatusCode); status.IsBlocked {
		j.recordBlocked(status)
	}
	p.harvestPage(j, result.HTML, pageURL)
	for _, frame := range result.Frames {
		for _, cand := range decode.Decode(frame, pageURL) {
			cand.ExtractionMethod = types.MethodFrame
			j.addCandidate(cand)
		}
	}
	for _, root := range result.ShadowHTML {
		for _, cand := range decode.Decode(root, pageURL) {
			cand.ExtractionMethod = types.MethodShadowDOM
			j.addCandidate(cand)
		}
	}
}

func (p *Pipeline) browserEnabled() bool {
	return p.cfg.UseBrowser && p.browser != nil
}

// planFromRoot seeds the crawl queue from the root page's links plus the
// site's sitemap, deduplicated with the highest priority winning.
func (p *Pipeline) planFromRoot(ctx context.Context, j *job, rootHTML string) {
	linked, err := plan.Plan(rootHTML, j.baseURL)
	if err != nil {
		logrus.Debugf("link planning failed for %s: %v", j.baseURL, err)
	}
	mapped := plan.DiscoverSitemapPages(ctx, j.baseURL, func(ctx context.Context, u string) (string, error) {
		result, err := fetch.Simple(ctx, u, &fetch.Options{
			Timeout:   p.cfg.FetchTimeout(),
			UserAgent: fetch.DesktopUserAgent,
			Client:    p.client,
		})
		if err != nil {
			return "", err
		}
		return result.HTML, nil
	})
	j.queue = plan.Merge(linked, mapped)
}

// isJSShell recognizes server responses that are only a mount point for a
// client-side app.
func isJSShell(html string) bool {
	if html == "" {
		return false
	}
	if len(visibleText(html)) > 200 {
		return false
	}
	lower := strings.ToLower(html)
	for _, marker := range []string{`id="root"`, `id="app"`, `id="__next"`, "data-reactroot", "data-server-rendered", "ng-version"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// visibleText strips markup down to the text a reader would see.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Find("body").Text())
}
