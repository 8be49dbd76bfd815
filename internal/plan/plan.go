package plan

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/technurture/mailsleuth/internal/types"
)

// maxPlannedPages caps the queue handed to the orchestrator; its own page
// budget is smaller still.
const maxPlannedPages = 40

// knownPaths are well-known contact, legal, and e-commerce paths appended to
// every plan when the page itself does not link to them.
var knownPaths = []struct {
	path     string
	priority types.PagePriority
}{
	{"/contact", types.PriorityContact},
	{"/contact-us", types.PriorityContact},
	{"/contactus", types.PriorityContact},
	{"/pages/contact", types.PriorityContact},
	{"/pages/contact-us", types.PriorityContact},
	{"/about", types.PriorityAbout},
	{"/about-us", types.PriorityAbout},
	{"/pages/about-us", types.PriorityAbout},
	{"/impressum", types.PriorityLegal},
	{"/privacy", types.PriorityLegal},
	{"/privacy-policy", types.PriorityLegal},
	{"/terms", types.PriorityLegal},
	{"/pages/privacy-policy", types.PriorityLegal},
	{"/support", types.PriorityFooter},
	{"/help", types.PriorityFooter},
	{"/customer-service", types.PriorityFooter},
}

// Error represents a planning failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plan error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("plan error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Plan extracts same-origin links from one page, classifies them, appends
// the well-known paths not already discovered, and returns the queue in
// priority order. Deduplication is by origin+path with query and fragment
// stripped.
func Plan(htmlContent, baseURL string) ([]types.PriorityPage, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &Error{Message: fmt.Sprintf("invalid base URL %q", baseURL), Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &Error{Message: "failed to parse HTML", Cause: err}
	}

	seen := make(map[string]bool)
	var pages []types.PriorityPage

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		normalized, ok := normalizeLink(base, href)
		if !ok || seen[normalized] || IsNoise(normalized) {
			return
		}
		seen[normalized] = true

		priority := Classify(normalized, sel.Text())
		// Unclassified links that live in the footer still rank above
		// arbitrary pages: footers are where contact details hide.
		if priority == types.PriorityOther && inFooter(sel) {
			priority = types.PriorityFooter
		}
		pages = append(pages, types.PriorityPage{
			URL:      normalized,
			Priority: priority,
			Source:   types.SourceLink,
		})
	})

	for _, kp := range knownPaths {
		u := base.Scheme + "://" + base.Host + kp.path
		if seen[u] {
			continue
		}
		seen[u] = true
		pages = append(pages, types.PriorityPage{
			URL:      u,
			Priority: kp.priority,
			Source:   types.SourceKnownPath,
		})
	}

	SortPages(pages)
	if len(pages) > maxPlannedPages {
		pages = pages[:maxPlannedPages]
	}
	return pages, nil
}

// Merge combines queues from several sources (page links, sitemap),
// deduplicating by URL and keeping the highest priority recorded for each.
func Merge(queues ...[]types.PriorityPage) []types.PriorityPage {
	best := make(map[string]types.PriorityPage)
	var order []string
	for _, queue := range queues {
		for _, p := range queue {
			existing, ok := best[p.URL]
			if !ok {
				best[p.URL] = p
				order = append(order, p.URL)
				continue
			}
			if p.Priority < existing.Priority {
				best[p.URL] = p
			}
		}
	}
	merged := make([]types.PriorityPage, 0, len(order))
	for _, u := range order {
		merged = append(merged, best[u])
	}
	SortPages(merged)
	return merged
}

// SortPages orders a queue by ascending priority value, preserving discovery
// order within a class.
func SortPages(pages []types.PriorityPage) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Priority < pages[j].Priority
	})
}

// normalizeLink resolves href against base and returns origin+path with
// query and fragment stripped, or ok=false for cross-origin and non-HTTP
// links.
func normalizeLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(strings.ToLower(href), "mailto:") ||
		strings.HasPrefix(strings.ToLower(href), "tel:") ||
		strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	linkURL, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(linkURL)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if !sameOrigin(resolved.Host, base.Host) {
		return "", false
	}
	path := strings.TrimSuffix(resolved.Path, "/")
	return resolved.Scheme + "://" + resolved.Host + path, true
}

// sameOrigin treats www and bare hosts as the same site.
func sameOrigin(a, b string) bool {
	trim := func(h string) string {
		return strings.TrimPrefix(strings.ToLower(h), "www.")
	}
	return trim(a) == trim(b)
}

func inFooter(sel *goquery.Selection) bool {
	return sel.Closest(`footer, [class*="footer"], [id*="footer"]`).Length() > 0
}
