package decode

import (
	"strconv"
	"strings"

	"github.com/badoux/checkmail"
	tld "github.com/lawzava/go-tld"
)

const (
	maxAddressLength = 254
	maxLocalLength   = 64
	minTLDLength     = 2
)

// placeholderDomains are documentation/template domains that never belong to
// a real mailbox. Matching is by exact domain or any subdomain of it.
var placeholderDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"domain.com",
	"email.com",
	"yourdomain.com",
	"yourcompany.com",
	"yourstore.com",
	"mysite.com",
	"mystore.com",
	"company.com",
	"site.com",
	"sentry.io",
	"wixpress.com",
}

// Normalize lowercases and trims an address for deduplication and caching.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Domain returns the domain part of an address, or "" if it has none.
func Domain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// IsValidEmail reports whether a decoded candidate is a plausible real-world
// address: syntactically well formed, carrying an existing TLD, and not a
// documentation placeholder. Validation is idempotent; re-validating the
// decoder's output set is a no-op.
func IsValidEmail(address string) bool {
	address = Normalize(address)
	if len(address) < 6 || len(address) > maxAddressLength {
		return false
	}
	if err := checkmail.ValidateFormat(address); err != nil {
		return false
	}

	at := strings.LastIndex(address, "@")
	local, domain := address[:at], address[at+1:]
	if len(local) > maxLocalLength || len(local) == 0 {
		return false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	ending := labels[len(labels)-1]
	if len(ending) < minTLDLength {
		return false
	}
	// Numeric endings are version strings or IPs, not mail domains.
	if _, err := strconv.Atoi(ending); err == nil {
		return false
	}
	// The TLD must actually exist; this discards image names and JS noise
	// like "bundle.min.js" that survive the regex.
	if !tld.IsValid(ending) {
		return false
	}

	return !isPlaceholderDomain(domain)
}

func isPlaceholderDomain(domain string) bool {
	for _, p := range placeholderDomains {
		if domain == p || strings.HasSuffix(domain, "."+p) {
			return true
		}
	}
	return false
}
