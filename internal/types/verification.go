package types

// VerificationStatus is the outcome class of an SMTP mailbox probe.
type VerificationStatus string

const (
	// StatusValid means the mail exchanger accepted the recipient.
	StatusValid VerificationStatus = "valid"
	// StatusInvalid means the mail exchanger rejected the mailbox permanently.
	StatusInvalid VerificationStatus = "invalid"
	// StatusUnknown means the response was temporary or ambiguous.
	StatusUnknown VerificationStatus = "unknown"
	// StatusCatchAll means the domain accepts any local part, so a positive
	// response is non-diagnostic.
	StatusCatchAll VerificationStatus = "catch_all"
	// StatusTimeout means every attempted exchanger timed out or failed at
	// the transport level.
	StatusTimeout VerificationStatus = "timeout"
)

// VerificationResult is the outcome of probing one address. Timed-out probes
// keep IsValid true so slow mail servers do not silently drop extractions.
type VerificationResult struct {
	Address    string             `json:"address"`
	IsValid    bool               `json:"is_valid"`
	Status     VerificationStatus `json:"status"`
	Confidence int                `json:"confidence"`
	Reason     string             `json:"reason,omitempty"`
}
