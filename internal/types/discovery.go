// Package types provides type definitions for structured data exchanged
// between the discovery pipeline stages.
package types

// PagePriority ranks a crawl candidate by how likely it is to contain
// contact information. Lower values sort first.
type PagePriority int

// Priority classes, in descending likelihood of contact information.
const (
	PriorityContact PagePriority = iota
	PriorityAbout
	PriorityLegal
	PriorityFooter
	PriorityOther
)

// String returns the human-readable name of the priority class.
func (p PagePriority) String() string {
	switch p {
	case PriorityContact:
		return "contact"
	case PriorityAbout:
		return "about"
	case PriorityLegal:
		return "legal"
	case PriorityFooter:
		return "footer"
	default:
		return "other"
	}
}

// PageSource records how a priority page was discovered.
type PageSource string

const (
	// SourceLink means the page was found via an anchor on a scanned page.
	SourceLink PageSource = "link"
	// SourceSitemap means the page came from the site's sitemap.
	SourceSitemap PageSource = "sitemap"
	// SourceKnownPath means the page is a well-known contact/legal path.
	SourceKnownPath PageSource = "known-path"
)

// PriorityPage is a same-origin URL queued for crawling. Instances are
// created by the planner and never mutated afterwards.
type PriorityPage struct {
	URL      string       `json:"url"`
	Priority PagePriority `json:"priority"`
	Source   PageSource   `json:"source"`
}

// ExtractionMethod identifies the decoding strategy that produced a candidate.
type ExtractionMethod string

// Known extraction methods.
const (
	MethodRegex      ExtractionMethod = "regex"
	MethodMailto     ExtractionMethod = "mailto"
	MethodObfuscated ExtractionMethod = "obfuscation-pattern"
	MethodBase64     ExtractionMethod = "base64"
	MethodReversed   ExtractionMethod = "reversed"
	MethodCloudflare ExtractionMethod = "cloudflare-xor"
	MethodJSONLD     ExtractionMethod = "json-ld"
	MethodScriptKey  ExtractionMethod = "script-key"
	MethodJSHref     ExtractionMethod = "javascript-href"
	MethodRot        ExtractionMethod = "rot-cipher"
	MethodStructural ExtractionMethod = "structural"
	MethodFrame      ExtractionMethod = "iframe"
	MethodShadowDOM  ExtractionMethod = "shadow-dom"
	MethodAI         ExtractionMethod = "ai-analysis"
	MethodPattern    ExtractionMethod = "pattern-generation"
)

// CandidateEmail is one decoded address together with its extraction context.
// Addresses are stored lowercase; the candidate set for a crawl is
// deduplicated by exact address across all scanned pages.
type CandidateEmail struct {
	Address          string           `json:"address"`
	SourceURL        string           `json:"source_url"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	FoundInMailto    bool             `json:"found_in_mailto"`
	FoundInScript    bool             `json:"found_in_script"`
}

// BlockedStatus describes a detected anti-automation condition. It is
// attached to a crawl result, never to an individual candidate.
type BlockedStatus struct {
	IsBlocked  bool   `json:"is_blocked"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
