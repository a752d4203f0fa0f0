package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/timeguard/timeguard/internal/ledger"
)

// Exit codes of the verify command.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitTampered = 10
)

// LedgerVerifier replays the audit ledger.
type LedgerVerifier interface {
	Verify(ctx context.Context) (ledger.Report, error)
}

// VerifyOptions configures the verify command.
type VerifyOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// VerifyCommand runs a verification and prints the report. It returns
// ExitTampered when the ledger is not intact.
func VerifyCommand(ctx context.Context, verifier LedgerVerifier, opts VerifyOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	report, err := verifier.Verify(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "verify: %v\n", err)
		return ExitError
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "verify: encode json: %v\n", err)
			return ExitError
		}
	} else {
		renderReportHuman(opts.Stdout, report)
	}
	if !report.Intact() {
		return ExitTampered
	}
	return ExitOK
}

func renderReportHuman(out io.Writer, report ledger.Report) {
	_, _ = fmt.Fprintf(out, "Audit ledger verification %s\n", report.RunID)
	_, _ = fmt.Fprintf(out, "  Entries:      %d\n", report.Total)
	_, _ = fmt.Fprintf(out, "  Valid:        %d\n", report.ValidCount)
	_, _ = fmt.Fprintf(out, "  Chain broken: %t\n", report.ChainBroken)
	if report.Intact() {
		_, _ = fmt.Fprintln(out, "Ledger intact.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d problem(s):\n", len(report.Invalid))
	for _, p := range report.Invalid {
		_, _ = fmt.Fprintf(out, "  #%d  %-16s expected=%s actual=%s\n", p.ID, p.Reason, p.Expected, p.Actual)
	}
}
