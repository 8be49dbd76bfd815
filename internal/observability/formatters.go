// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/technurture/mailsleuth/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScanResult outputs a human-readable summary of one extraction run.
func (p *Printer) PrintScanResult(result *types.ExtractionResult) {
	if result == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("URL:      %s\n", result.URL))
	sb.WriteString(fmt.Sprintf("Quality:  %s\n", result.ScanQuality))
	sb.WriteString(fmt.Sprintf("Pages:    %d scanned\n", result.PagesScanned))
	if len(result.Methods) > 0 {
		sb.WriteString(fmt.Sprintf("Methods:  %s\n", strings.Join(result.Methods, ", ")))
	}
	sb.WriteString("\n")

	if len(result.EmailsWithConfidence) > 0 {
		sb.WriteString("Emails:\n")
		count := min(len(result.EmailsWithConfidence), maxItemsToShow)
		for i := 0; i < count; i++ {
			e := result.EmailsWithConfidence[i]
			sb.WriteString(fmt.Sprintf("  %3d  %s", e.Confidence, e.Address))
			if e.VerificationStatus != "" {
				sb.WriteString(fmt.Sprintf(" [%s]", e.VerificationStatus))
			}
			sb.WriteString("\n")
		}
		if len(result.EmailsWithConfidence) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.EmailsWithConfidence)-maxItemsToShow))
		}
	} else {
		sb.WriteString("No emails found.\n")
	}

	if result.ExtractionDetails != nil && result.ExtractionDetails.Blocked {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Blocked:  %s\n", result.ExtractionDetails.BlockedReason))
		if result.ExtractionDetails.SuggestedAction != "" {
			sb.WriteString(fmt.Sprintf("Hint:     %s\n", result.ExtractionDetails.SuggestedAction))
		}
	}

	p.printBox("EXTRACTION RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVerification outputs SMTP verification outcomes.
func (p *Printer) PrintVerification(results []types.VerificationResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		mark := "✗"
		if r.IsValid {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("%s %-9s %s", mark, r.Status, r.Address))
		if r.Reason != "" {
			reason := r.Reason
			if len(reason) > 30 {
				reason = reason[:27] + "..."
			}
			sb.WriteString(fmt.Sprintf("  (%s)", reason))
		}
		sb.WriteString("\n")
	}

	p.printBox("SMTP VERIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPageVisit logs one crawled page in verbose mode, outside a box so the
// running crawl reads as a stream.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintPageVisit(url string, priority types.PagePriority, found int) {
	fmt.Fprintf(p.out, "  → [%s] %s (%d found)\n", priority, url, found)
}
