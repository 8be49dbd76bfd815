package decode

import "regexp"

// emailRe is the direct-match pattern. The domain section permits multi-label
// TLDs (e.g. .co.ng) because each label is matched separately.
var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)+\b`)

// obfuscationPattern reconstructs local@domain from one obfuscated spelling.
// Group 1 is the local part, group 2 the obfuscated domain; the domain is
// passed through deobfuscateDomain before joining.
type obfuscationPattern struct {
	name string
	re   *regexp.Regexp
}

// obfuscationPatterns is the fixed library of obfuscated spellings the
// decoder understands. Kept as data so new spellings can be added and tested
// without touching control flow.
var obfuscationPatterns = []obfuscationPattern{
	{
		// info [at] acme [dot] com, info (AT) acme (DOT) co (dot) ng
		name: "bracketed",
		re:   regexp.MustCompile(`(?i)\b([a-z0-9._%+-]+)\s*[\[({]\s*at\s*[\])}]\s*((?:[a-z0-9-]+\s*[\[({]\s*dot\s*[\])}]\s*)+[a-z]{2,})`),
	},
	{
		// info AT acme DOT com (spaced words)
		name: "spaced",
		re:   regexp.MustCompile(`(?i)\b([a-z0-9._%+-]+)\s+at\s+((?:[a-z0-9-]+\s+dot\s+)+[a-z]{2,})\b`),
	},
	{
		// info/at/acme/dot/com (slash separated)
		name: "slashed",
		re:   regexp.MustCompile(`(?i)\b([a-z0-9._%+-]+)\s*/\s*at\s*/\s*((?:[a-z0-9-]+\s*/\s*dot\s*/\s*)+[a-z]{2,})\b`),
	},
	{
		// info[@]acme[.]com, info(@)acme(.)com
		name: "bracketed-symbols",
		re:   regexp.MustCompile(`(?i)\b([a-z0-9._%+-]+)\s*[\[({]\s*@\s*[\])}]\s*((?:[a-z0-9-]+\s*[\[({]\s*\.\s*[\])}]\s*)+[a-z]{2,})`),
	},
}

// dotTokenRe rewrites any surviving dot spelling inside a reconstructed
// domain to a literal dot.
var dotTokenRe = regexp.MustCompile(`(?i)\s*(?:[\[({]\s*(?:dot|\.)\s*[\])}]|/\s*dot\s*/|\s+dot\s+)\s*`)

// reversedRe matches text written back to front, anchored on a reversed
// common TLD or country code ("moc." for ".com" and so on).
var reversedRe = regexp.MustCompile(`\b(?:moc|gro|ten|ude|vog|ofni|zib|ppa|oc|ac|ed|rf|ur|ua|ln|oi|su|ku\.oc|gn\.oc)\.[A-Za-z0-9.-]+@[A-Za-z0-9._%+-]+\b`)

// base64AttrRe matches attributes whose name suggests an encoded address.
var base64AttrRe = regexp.MustCompile(`(?i)\b[a-z-]*(?:email|mail|contact)[a-z-]*\s*=\s*["']([A-Za-z0-9+/]{8,}={0,2})["']`)

// base64TokenRe matches standalone base64-shaped tokens long enough to hold
// an address.
var base64TokenRe = regexp.MustCompile(`\b[A-Za-z0-9+/]{20,}={0,2}\b`)

// cfemailAttrRe matches Cloudflare email-protection hex payloads in either
// the data attribute or the interstitial link form.
var (
	cfemailAttrRe = regexp.MustCompile(`data-cfemail="([a-fA-F0-9]{4,})"`)
	cfemailLinkRe = regexp.MustCompile(`/cdn-cgi/l/email-protection#([a-fA-F0-9]{4,})`)
)

// scriptKeyRe matches platform configuration keys embedded in inline JS/JSON
// (Shopify shop_email, theme owner_email, generic email keys).
var scriptKeyRe = regexp.MustCompile(`(?i)["']?(?:contact_email|shop_email|owner_email|customer_email|support_email|email)["']?\s*[:=]\s*["']([^"'\s]+@[^"'\s]+?)["']`)

// mailtoRe catches mailto hrefs even when goquery parsing fails.
var mailtoRe = regexp.MustCompile(`(?i)mailto:([^"'?\s>]+)`)

// scriptBlockRe captures inline script bodies for script-context detection.
var scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)

// commentRe and anyTagRe turn markup into plain text for the text-level
// strategies.
var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	anyTagRe  = regexp.MustCompile(`<[^>]+>`)
)

// unicodeEscapeRe matches JS unicode escapes hiding '@' and '.'.
var unicodeEscapeRe = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// fullWidthReplacer maps full-width Unicode '@' and '.' to ASCII before the
// direct pattern runs.
var fullWidthReplacer = map[rune]rune{
	'＠': '@',
	'．': '.',
	'。': '.',
}
