package plan

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/technurture/mailsleuth/internal/types"
)

const (
	// maxSitemapDepth bounds recursion through sitemap-index files.
	maxSitemapDepth = 2
	// maxNestedSitemaps bounds how many child sitemaps one index may fan
	// out to.
	maxNestedSitemaps = 5
	// maxSitemapPages caps what one sitemap contributes to the plan.
	maxSitemapPages = 20
)

// FetchFunc retrieves the body of a URL. The planner takes it as a parameter
// so sitemap discovery stays testable without a network.
type FetchFunc func(ctx context.Context, url string) (string, error)

type sitemapIndex struct {
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	URLs []sitemapRef `xml:"url>loc"`
}

// DiscoverSitemapPages fetches /sitemap.xml, follows index files up to
// maxSitemapDepth, and returns the contained URLs that classify as
// contact-like (contact, about, legal, support). Arbitrary sitemap URLs are
// dropped; they would flood the queue with product pages.
func DiscoverSitemapPages(ctx context.Context, baseURL string, fetch FetchFunc) []types.PriorityPage {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil
	}
	root := base.Scheme + "://" + base.Host + "/sitemap.xml"
	pages := collectSitemap(ctx, root, base, fetch, 0)
	SortPages(pages)
	if len(pages) > maxSitemapPages {
		pages = pages[:maxSitemapPages]
	}
	return pages
}

func collectSitemap(ctx context.Context, sitemapURL string, base *url.URL, fetch FetchFunc, depth int) []types.PriorityPage {
	if depth > maxSitemapDepth {
		return nil
	}
	body, err := fetch(ctx, sitemapURL)
	if err != nil {
		logrus.Debugf("sitemap fetch failed for %s: %v", sitemapURL, err)
		return nil
	}

	var pages []types.PriorityPage

	// A sitemapindex points at nested sitemaps rather than pages.
	if strings.Contains(body, "<sitemapindex") {
		var index sitemapIndex
		if err := xml.Unmarshal([]byte(body), &index); err != nil {
			return nil
		}
		nested := index.Sitemaps
		if len(nested) > maxNestedSitemaps {
			// Contact-like child sitemaps jump the queue before the cap.
			sortRefsByContactKeywords(nested)
			nested = nested[:maxNestedSitemaps]
		}
		for _, ref := range nested {
			pages = append(pages, collectSitemap(ctx, strings.TrimSpace(ref.Loc), base, fetch, depth+1)...)
		}
		return pages
	}

	var set urlSet
	if err := xml.Unmarshal([]byte(body), &set); err != nil {
		return nil
	}
	for _, ref := range set.URLs {
		loc := strings.TrimSpace(ref.Loc)
		u, err := url.Parse(loc)
		if err != nil || !sameOrigin(u.Host, base.Host) {
			continue
		}
		priority := Classify(loc, "")
		if priority == types.PriorityOther {
			continue
		}
		pages = append(pages, types.PriorityPage{
			URL:      u.Scheme + "://" + u.Host + strings.TrimSuffix(u.Path, "/"),
			Priority: priority,
			Source:   types.SourceSitemap,
		})
	}
	return pages
}

func sortRefsByContactKeywords(refs []sitemapRef) {
	score := func(loc string) int {
		lower := strings.ToLower(loc)
		if strings.Contains(lower, "page") || strings.Contains(lower, "contact") {
			return 0
		}
		return 1
	}
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && score(refs[j].Loc) < score(refs[j-1].Loc); j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
}
