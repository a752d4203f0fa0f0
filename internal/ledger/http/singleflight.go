package ledgerhttp

import (
	"context"

	"github.com/timeguard/timeguard/internal/ledger"
)

const verifyFlightKey = "verify"

// verifyShared joins an in-flight verification or starts one. The walk runs
// detached from the first caller's context so a disconnect does not fail the
// requests sharing it.
func (h *Handler) verifyShared(ctx context.Context) (ledger.Report, bool, error) {
	ch := h.flights.DoChan(verifyFlightKey, func() (interface{}, error) {
		return h.verifier.Verify(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ledger.Report{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ledger.Report{}, res.Shared, res.Err
		}
		return res.Val.(ledger.Report), res.Shared, nil
	}
}
