// Package score turns extraction context and SMTP outcomes into a single
// 0-100 confidence figure.
package score

import (
	"strings"

	"github.com/technurture/mailsleuth/internal/decode"
	"github.com/technurture/mailsleuth/internal/plan"
	"github.com/technurture/mailsleuth/internal/types"
)

const (
	baseScore          = 50
	bonusDomainMatch   = 20
	bonusContactPage   = 15
	bonusMailto        = 10
	bonusRolePrefix    = 10
	penaltyScriptOnly  = 20
	penaltyPlaceholder = 30
	adjustValid        = 25
	adjustInvalid      = 40
	adjustCatchAll     = 10
)

// rolePrefixes are local parts businesses publish on purpose. An address like
// info@ or sales@ is far more likely to be a real, monitored inbox than a
// scraped personal one.
var rolePrefixes = map[string]bool{
	"info":    true,
	"contact": true,
	"support": true,
	"sales":   true,
	"hello":   true,
	"help":    true,
	"office":  true,
	"admin":   true,
	"team":    true,
	"mail":    true,
	"enquiry": true,
	"inquiry": true,
	"service": true,
	"orders":  true,
	"shop":    true,
}

// placeholderLocals are local parts that show up in templates and test
// fixtures rather than real contact pages.
var placeholderLocals = map[string]bool{
	"test":      true,
	"example":   true,
	"demo":      true,
	"sample":    true,
	"fake":      true,
	"dummy":     true,
	"user":      true,
	"username":  true,
	"email":     true,
	"youremail": true,
	"yourname":  true,
}

// Context carries the extraction signals that feed the score.
type Context struct {
	PagePriority  types.PagePriority
	FoundInMailto bool
	FoundInScript bool
}

// Score rates one address against the site it was found on. The result is
// deterministic and clamped to [0,100].
func Score(address, sourceURL, siteDomain string, ctx Context) int {
	addr := decode.Normalize(address)
	addrDomain := decode.Domain(addr)
	local := localPart(addr)

	s := baseScore
	if matchesSite(addrDomain, siteDomain) {
		s += bonusDomainMatch
	}
	if onContactLikePage(sourceURL, ctx.PagePriority) {
		s += bonusContactPage
	}
	if ctx.FoundInMailto {
		s += bonusMailto
	}
	if rolePrefixes[local] {
		s += bonusRolePrefix
	}
	if ctx.FoundInScript && !ctx.FoundInMailto {
		s -= penaltyScriptOnly
	}
	if isPlaceholderLocal(local) {
		s -= penaltyPlaceholder
	}
	return clamp(s)
}

// AdjustForVerification folds an SMTP outcome into an existing score. The
// clamp makes repeated application idempotent at the bounds.
func AdjustForVerification(confidence int, status types.VerificationStatus) int {
	switch status {
	case types.StatusValid:
		confidence += adjustValid
	case types.StatusInvalid:
		confidence -= adjustInvalid
	case types.StatusCatchAll:
		confidence += adjustCatchAll
	}
	return clamp(confidence)
}

// matchesSite reports whether the address domain is the site domain or any
// subdomain of it, ignoring a www prefix on the site side.
func matchesSite(addrDomain, siteDomain string) bool {
	site := strings.TrimPrefix(strings.ToLower(siteDomain), "www.")
	if site == "" || addrDomain == "" {
		return false
	}
	return addrDomain == site || strings.HasSuffix(addrDomain, "."+site)
}

func onContactLikePage(sourceURL string, priority types.PagePriority) bool {
	if priority == types.PriorityContact || priority == types.PriorityAbout {
		return true
	}
	// The page may have been reached outside the planned crawl, so the URL
	// itself is classified as a fallback signal.
	return plan.Classify(sourceURL, "") <= types.PriorityAbout
}

func isPlaceholderLocal(local string) bool {
	if placeholderLocals[local] {
		return true
	}
	return strings.HasPrefix(local, "test") && len(local) <= 8
}

func localPart(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return addr
	}
	return addr[:at]
}

func clamp(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
