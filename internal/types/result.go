package types

import (
	"sort"

	"github.com/google/uuid"
)

// ScanQuality summarizes how complete a crawl was.
type ScanQuality string

const (
	// QualityThorough means the crawl ran its full plan (or stopped early
	// because enough emails were found).
	QualityThorough ScanQuality = "thorough"
	// QualityPartial means the budget ran out early or fewer than half the
	// planned pages were reachable.
	QualityPartial ScanQuality = "partial"
	// QualityBlocked means most attempted pages returned a blocked status.
	QualityBlocked ScanQuality = "blocked"
)

// EmailWithConfidence is the terminal entity returned to callers, sorted
// descending by confidence.
type EmailWithConfidence struct {
	Address            string             `json:"address"`
	Confidence         int                `json:"confidence"`
	Source             string             `json:"source"`
	Verified           bool               `json:"verified,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
}

// ExtractionDetails carries advisory blocked metadata for the caller.
type ExtractionDetails struct {
	Blocked         bool   `json:"blocked"`
	BlockedReason   string `json:"blocked_reason,omitempty"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// ExtractionResult is the full outcome of one URL extraction. Its lifecycle
// ends at the boundary to the external caller; persisting it is the caller's
// responsibility.
type ExtractionResult struct {
	ScanID               uuid.UUID             `json:"scan_id"`
	URL                  string                `json:"url"`
	Emails               []string              `json:"emails"`
	ValidatedEmails      []string              `json:"validated_emails,omitempty"`
	EmailsWithConfidence []EmailWithConfidence `json:"emails_with_confidence,omitempty"`
	PagesScanned         int                   `json:"pages_scanned"`
	URLsChecked          []string              `json:"urls_checked"`
	ScanQuality          ScanQuality           `json:"scan_quality"`
	Methods              []string              `json:"methods"`
	ExtractionDetails    *ExtractionDetails    `json:"extraction_details,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// SortByConfidence orders emails descending by confidence, breaking ties by
// address for deterministic output.
func SortByConfidence(emails []EmailWithConfidence) {
	sort.SliceStable(emails, func(i, j int) bool {
		if emails[i].Confidence != emails[j].Confidence {
			return emails[i].Confidence > emails[j].Confidence
		}
		return emails[i].Address < emails[j].Address
	})
}
