package fetch

import "strings"

// Platform identifies the storefront or site builder a page was served by.
type Platform string

const (
	PlatformUnknown     Platform = ""
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformWix         Platform = "wix"
	PlatformSquarespace Platform = "squarespace"
	PlatformBigCommerce Platform = "bigcommerce"
)

// platformFingerprints maps HTML markers to platforms. Checked in order so
// the more specific storefront markers win over generic builder ones.
var platformFingerprints = []struct {
	platform Platform
	markers  []string
}{
	{PlatformShopify, []string{"cdn.shopify.com", "shopify.theme", "myshopify.com", "shopify-section"}},
	{PlatformWooCommerce, []string{"woocommerce", "wp-content/plugins/woocommerce"}},
	{PlatformBigCommerce, []string{"cdn11.bigcommerce.com", "bigcommerce.com/s-"}},
	{PlatformWix, []string{"wix.com", "wixstatic.com", "x-wix-"}},
	{PlatformSquarespace, []string{"squarespace.com", "static1.squarespace.com", "squarespace-cdn"}},
}

// DetectPlatform fingerprints the serving platform from raw HTML. Storefront
// platforms inject contact widgets late, so a match is the trigger for a
// second render with a longer settle.
func DetectPlatform(html string) Platform {
	lower := strings.ToLower(html)
	for _, fp := range platformFingerprints {
		for _, marker := range fp.markers {
			if strings.Contains(lower, marker) {
				return fp.platform
			}
		}
	}
	return PlatformUnknown
}

// IsStorefront reports whether the platform is an e-commerce storefront.
func IsStorefront(p Platform) bool {
	switch p {
	case PlatformShopify, PlatformWooCommerce, PlatformBigCommerce:
		return true
	}
	return false
}
