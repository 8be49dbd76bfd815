// Package decode extracts candidate email addresses from a single HTML
// document. Every strategy is a pure function of the document; none perform
// I/O. Results are unioned, normalized to lowercase, and filtered through
// IsValidEmail.
package decode

import (
	"encoding/base64"
	"html"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/technurture/mailsleuth/internal/types"
)

// document is the pre-processed view of one HTML page shared by all
// strategies, so entity decoding and parsing happen once. Script bodies are
// held separately from the markup so the pipeline can tell a script-only
// sighting from one a human would see.
type document struct {
	raw      string   // original HTML
	noScript string   // original HTML with inline script bodies removed
	clean    string   // noScript after entity, percent, and escape decoding
	scripts  []string // inline script bodies
	doc      *goquery.Document
}

// strategy extracts raw candidates from a document. inScript marks
// candidates that only exist inside script contexts.
type strategy struct {
	method   types.ExtractionMethod
	inScript bool
	fn       func(d *document) []string
}

// strategies run in a fixed order; earlier strategies win method attribution
// for an address found by several.
var strategies = []strategy{
	{method: types.MethodMailto, fn: fromMailto},
	{method: types.MethodRegex, fn: fromText},
	{method: types.MethodCloudflare, fn: fromCloudflare},
	{method: types.MethodObfuscated, fn: fromObfuscation},
	{method: types.MethodReversed, fn: fromReversed},
	{method: types.MethodBase64, fn: fromBase64},
	{method: types.MethodJSONLD, inScript: true, fn: fromJSONLD},
	{method: types.MethodScriptKey, inScript: true, fn: fromScriptKeys},
	{method: types.MethodJSHref, inScript: true, fn: fromJavaScriptHrefs},
	{method: types.MethodScriptKey, inScript: true, fn: fromScriptText},
	{method: types.MethodStructural, fn: fromStructural},
	{method: types.MethodRot, fn: fromRot},
}

// Decode runs every strategy over the HTML and returns the deduplicated,
// validated candidate set. Output is sorted by address, so identical input
// always yields an identical slice.
func Decode(htmlStr, sourceURL string) []types.CandidateEmail {
	d := newDocument(htmlStr)

	found := make(map[string]*types.CandidateEmail)
	seenOutsideScript := make(map[string]bool)

	for _, s := range strategies {
		for _, raw := range s.fn(d) {
			addr := Normalize(raw)
			if !IsValidEmail(addr) {
				continue
			}
			c, ok := found[addr]
			if !ok {
				c = &types.CandidateEmail{
					Address:          addr,
					SourceURL:        sourceURL,
					ExtractionMethod: s.method,
					FoundInScript:    s.inScript,
				}
				found[addr] = c
			}
			if s.method == types.MethodMailto {
				c.FoundInMailto = true
			}
			if !s.inScript {
				seenOutsideScript[addr] = true
			}
		}
	}

	out := make([]types.CandidateEmail, 0, len(found))
	for addr, c := range found {
		// An address also seen in plain content is not script-only.
		c.FoundInScript = c.FoundInScript && !seenOutsideScript[addr]
		out = append(out, *c)
	}
	sortCandidates(out)
	return out
}

func sortCandidates(cs []types.CandidateEmail) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].Address < cs[j-1].Address; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func newDocument(htmlStr string) *document {
	d := &document{raw: htmlStr}

	for _, m := range scriptBlockRe.FindAllStringSubmatch(htmlStr, -1) {
		d.scripts = append(d.scripts, m[1])
	}
	d.noScript = scriptBlockRe.ReplaceAllString(htmlStr, " ")
	d.clean = normalize(d.noScript)

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr)); err == nil {
		d.doc = doc
	}
	return d
}

// normalize applies the decoding layers many sites stack on top of
// addresses: HTML entities (named, numeric, hex), percent encoding, JS
// unicode escapes, and full-width Unicode punctuation. It runs before every
// strategy that scans text.
func normalize(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		s = decoded
	}
	s = html.UnescapeString(s)
	s = unicodeEscapeRe.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseInt(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
	return strings.Map(func(r rune) rune {
		if repl, ok := fullWidthReplacer[r]; ok {
			return repl
		}
		return r
	}, s)
}

// fromText is the direct regex sweep over the decoded document, covering
// visible text, meta tags, attributes, comments, and noscript blocks alike.
func fromText(d *document) []string {
	out := emailRe.FindAllString(d.clean, -1)
	return append(out, emailRe.FindAllString(d.noScript, -1)...)
}

// fromMailto decodes mailto hrefs, URL-decoding the address and stripping
// any query string (subject, body).
func fromMailto(d *document) []string {
	var out []string
	add := func(href string) {
		addr := strings.TrimPrefix(strings.TrimSpace(href), "mailto:")
		addr = strings.TrimPrefix(addr, "MAILTO:")
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		if decoded, err := url.QueryUnescape(addr); err == nil {
			addr = decoded
		}
		// A single mailto may list several comma-separated recipients.
		for _, part := range strings.Split(addr, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	if d.doc != nil {
		d.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if strings.HasPrefix(strings.ToLower(href), "mailto:") {
				add(href)
			}
		})
	}
	for _, m := range mailtoRe.FindAllStringSubmatch(d.clean, -1) {
		add("mailto:" + m[1])
	}
	return out
}

// fromObfuscation reconstructs addresses written with [at]/[dot] spellings
// and their bracket, spacing, and slash variants.
func fromObfuscation(d *document) []string {
	text := stripTags(d.clean)
	var out []string
	for _, p := range obfuscationPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			local := m[1]
			domain := deobfuscateDomain(m[2])
			out = append(out, local+"@"+domain)
		}
	}
	return out
}

func deobfuscateDomain(domain string) string {
	domain = dotTokenRe.ReplaceAllString(domain, ".")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, domain)
}

// fromReversed detects back-to-front addresses anchored on a reversed TLD.
func fromReversed(d *document) []string {
	text := stripTags(d.clean)
	var out []string
	for _, m := range reversedRe.FindAllString(text, -1) {
		out = append(out, reverseString(m))
	}
	return out
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// fromBase64 decodes email-ish attributes and long standalone base64 tokens,
// then re-scans the plaintext for addresses.
func fromBase64(d *document) []string {
	var out []string
	scan := func(token string) {
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			if decoded, err = base64.RawStdEncoding.DecodeString(token); err != nil {
				return
			}
		}
		if !isMostlyPrintable(decoded) {
			return
		}
		out = append(out, emailRe.FindAllString(string(decoded), -1)...)
	}

	for _, m := range base64AttrRe.FindAllStringSubmatch(d.raw, -1) {
		scan(m[1])
	}
	for _, token := range base64TokenRe.FindAllString(d.raw, -1) {
		scan(token)
	}
	return out
}

func isMostlyPrintable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	printable := 0
	for _, c := range b {
		if c >= 0x20 && c < 0x7f {
			printable++
		}
	}
	return printable*10 >= len(b)*9
}

// fromCloudflare decodes data-cfemail payloads: hex bytes XORed with the
// first byte as key.
func fromCloudflare(d *document) []string {
	var out []string
	for _, m := range cfemailAttrRe.FindAllStringSubmatch(d.raw, -1) {
		if addr := decodeCFEmail(m[1]); addr != "" {
			out = append(out, addr)
		}
	}
	for _, m := range cfemailLinkRe.FindAllStringSubmatch(d.raw, -1) {
		if addr := decodeCFEmail(m[1]); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// fromScriptKeys matches platform configuration keys (shop_email,
// contact_email, generic email) inside inline scripts.
func fromScriptKeys(d *document) []string {
	var out []string
	for _, script := range d.scripts {
		for _, m := range scriptKeyRe.FindAllStringSubmatch(script, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

// fromScriptText sweeps the decoded bodies of inline scripts with the direct
// pattern, catching addresses assembled into template strings.
func fromScriptText(d *document) []string {
	var out []string
	for _, script := range d.scripts {
		out = append(out, emailRe.FindAllString(normalize(script), -1)...)
	}
	return out
}

// fromRot runs a bounded ROT sweep over short text fragments that contain an
// '@' but no address, catching Caesar-shifted spellings.
func fromRot(d *document) []string {
	text := stripTags(d.clean)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || len(line) > 120 || !strings.Contains(line, "@") {
			continue
		}
		if hasValidAddress(line) {
			continue
		}
		out = append(out, rotCandidates(line)...)
	}
	return out
}

func hasValidAddress(line string) bool {
	for _, m := range emailRe.FindAllString(line, -1) {
		if IsValidEmail(m) {
			return true
		}
	}
	return false
}

func rotCandidates(line string) []string {
	var out []string
	for shift := 1; shift < 26; shift++ {
		rotated := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return 'a' + (r-'a'+rune(shift))%26
			case r >= 'A' && r <= 'Z':
				return 'A' + (r-'A'+rune(shift))%26
			default:
				return r
			}
		}, line)
		for _, m := range emailRe.FindAllString(rotated, -1) {
			if IsValidEmail(m) {
				out = append(out, m)
			}
		}
	}
	return out
}

// stripTags removes comments and markup so text patterns see what a reader
// sees, with tag boundaries turned into newlines.
func stripTags(s string) string {
	s = commentRe.ReplaceAllString(s, " ")
	s = anyTagRe.ReplaceAllString(s, "\n")
	return s
}
