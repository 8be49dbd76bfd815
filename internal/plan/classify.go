// Package plan classifies links and builds the priority-ordered crawl queue
// for a site: contact pages first, then about, legal, footer-tier support
// pages, then everything else.
package plan

import (
	"net/url"
	"strings"

	"github.com/technurture/mailsleuth/internal/types"
)

// keywordFamily binds one priority class to the path/anchor keywords that
// select it. Families are tested in order; first match wins.
type keywordFamily struct {
	priority types.PagePriority
	keywords []string
}

// keywordFamilies is the classification table. Kept as data so families can
// be extended and tested independently of the classification logic.
var keywordFamilies = []keywordFamily{
	{
		priority: types.PriorityContact,
		keywords: []string{
			"contact", "kontakt", "contacto", "contatti",
			"get-in-touch", "getintouch", "reach-us", "reach-out",
			"write-to-us", "talk-to-us", "enquiry", "inquiry",
		},
	},
	{
		priority: types.PriorityAbout,
		keywords: []string{
			"about", "team", "our-story", "our-team", "who-we-are",
			"company", "meet-the-team", "people", "staff",
		},
	},
	{
		priority: types.PriorityLegal,
		keywords: []string{
			"impressum", "imprint", "privacy", "terms", "legal",
			"policy", "policies", "datenschutz", "mentions-legales",
		},
	},
	{
		priority: types.PriorityFooter,
		keywords: []string{
			"support", "help", "faq", "customer-service",
			"customer-care", "service", "feedback",
		},
	},
}

// noiseKeywords mark paths that almost never carry contact details and only
// burn crawl budget: product grids, carts, auth walls, media assets.
var noiseKeywords = []string{
	"/product", "/products/", "/collection", "/category", "/categories",
	"/cart", "/checkout", "/basket", "/account", "/login", "/signin",
	"/signup", "/register", "/wishlist", "/search", "/tag/", "/feed",
	"/wp-content", "/wp-json", "/assets", "/static", "/media", "/img",
	"/cdn-cgi/", "/reviews", "/compare",
}

// noiseExtensions are binary or asset suffixes excluded outright.
var noiseExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico", ".css",
	".js", ".pdf", ".zip", ".mp4", ".webm", ".woff", ".woff2", ".xml",
	".json", ".rss",
}

// Classify assigns a priority class to a link from its path and anchor text.
// Families are checked in priority order, so a "contact" hit beats a "legal"
// hit on the same link.
func Classify(rawURL, anchorText string) types.PagePriority {
	haystack := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		haystack = strings.ToLower(u.Path)
	}
	// Anchor text is matched with spaces collapsed to hyphens so "Get in
	// touch" hits the get-in-touch keyword.
	anchor := strings.ToLower(strings.TrimSpace(anchorText))
	anchor = strings.ReplaceAll(anchor, " ", "-")

	for _, family := range keywordFamilies {
		for _, kw := range family.keywords {
			if strings.Contains(haystack, kw) || strings.Contains(anchor, kw) {
				return family.priority
			}
		}
	}
	return types.PriorityOther
}

// IsNoise reports whether a path is a product/cart/asset URL the crawler
// should never spend budget on.
func IsNoise(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range noiseExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	for _, kw := range noiseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
