package fetch

import (
	"strings"

	"github.com/technurture/mailsleuth/internal/types"
)

// blockSignal pairs an HTML fingerprint with the advisory we hand back to
// the caller. Signals are checked in order; first hit wins.
type blockSignal struct {
	markers    []string
	reason     string
	suggestion string
}

var blockSignals = []blockSignal{
	{
		markers:    []string{"cf-challenge", "cf_chl_opt", "challenge-platform", "checking your browser before accessing", "just a moment..."},
		reason:     "Cloudflare challenge page",
		suggestion: "retry later or scan a different entry page on the same domain",
	},
	{
		markers:    []string{"g-recaptcha", "grecaptcha", "recaptcha/api.js"},
		reason:     "reCAPTCHA interstitial",
		suggestion: "the site requires human verification, try a cached or alternate page",
	},
	{
		markers:    []string{"h-captcha", "hcaptcha.com/1/api.js"},
		reason:     "hCaptcha interstitial",
		suggestion: "the site requires human verification, try a cached or alternate page",
	},
	{
		markers:    []string{"access denied", "you have been blocked", "request blocked", "bot detection"},
		reason:     "access denied by the site's bot protection",
		suggestion: "reduce scan frequency for this domain",
	},
	{
		markers:    []string{"please log in to continue", "sign in to view", "login-required", "authwall"},
		reason:     "content behind a login wall",
		suggestion: "contact details are not publicly reachable on this page",
	},
}

// DetectBlocked inspects a response for anti-bot interstitials and rate
// limiting. Blocking is advisory metadata, not an error: extraction keeps
// whatever it already gathered.
func DetectBlocked(html string, statusCode int) types.BlockedStatus {
	switch statusCode {
	case 403:
		return types.BlockedStatus{
			IsBlocked:  true,
			Reason:     "server returned 403 Forbidden",
			Suggestion: "the site refuses automated access, try again later",
		}
	case 429:
		return types.BlockedStatus{
			IsBlocked:  true,
			Reason:     "server returned 429 Too Many Requests",
			Suggestion: "rate limited, retry after a cooldown",
		}
	case 503:
		// 503 with a challenge fingerprint is a block; without one it is
		// plain maintenance and falls through to the marker scan.
	}

	lower := strings.ToLower(html)
	for _, sig := range blockSignals {
		for _, marker := range sig.markers {
			if strings.Contains(lower, marker) {
				return types.BlockedStatus{IsBlocked: true, Reason: sig.reason, Suggestion: sig.suggestion}
			}
		}
	}

	if statusCode == 503 {
		return types.BlockedStatus{
			IsBlocked:  true,
			Reason:     "server returned 503 Service Unavailable",
			Suggestion: "the site may be rate limiting or under maintenance, retry later",
		}
	}
	return types.BlockedStatus{}
}
