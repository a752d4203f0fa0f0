// Package ledgerhttp exposes ledger verification and export over HTTP.
package ledgerhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/timeguard/timeguard/internal/ledger"
	"github.com/timeguard/timeguard/internal/platform/httpx"
)

const (
	dateLayout       = "2006-01-02"
	defaultDateRange = 7 * 24 * time.Hour
)

// Verifier checks ledger integrity. *ledger.Verifier implements it.
type Verifier interface {
	Verify(ctx context.Context) (ledger.Report, error)
}

// Exporter reads ledger ranges. *ledger.Ledger implements it.
type Exporter interface {
	Export(ctx context.Context, filter ledger.ExportFilter) ([]ledger.Entry, error)
}

// Handler serves the audit endpoints.
type Handler struct {
	logger   *slog.Logger
	verifier Verifier
	exporter Exporter
	maxRange time.Duration
	flights  singleflight.Group
	now      func() time.Time
}

// NewHandler constructs the audit handler. A zero maxRange disables the
// export range cap.
func NewHandler(logger *slog.Logger, verifier Verifier, exporter Exporter, maxRange time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		verifier: verifier,
		exporter: exporter,
		maxRange: maxRange,
		now:      time.Now,
	}
}

type exportResponse struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	Table   string         `json:"table,omitempty"`
	Count   int            `json:"count"`
	Entries []ledger.Entry `json:"entries"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	report, shared, err := h.verifyShared(r.Context())
	if err != nil {
		h.handleServerError(w, "verify audit ledger", err)
		return
	}
	if shared {
		w.Header().Set("X-Verify-Shared", "true")
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	filter, entries, ok := h.export(w, r)
	if !ok {
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	httpx.JSON(w, http.StatusOK, exportResponse{
		From:    filter.From.Format(dateLayout),
		To:      filter.To.Format(dateLayout),
		Table:   filter.Table,
		Count:   len(entries),
		Entries: entries,
	})
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, entries, ok := h.export(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-ledger-"+filter.From.Format(dateLayout)+"-"+filter.To.Format(dateLayout)+".csv\"")
	if err := writeLedgerCSV(w, filter, entries); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) (ledger.ExportFilter, []ledger.Entry, bool) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.handleFilterError(w, err)
		return ledger.ExportFilter{}, nil, false
	}
	entries, err := h.exporter.Export(r.Context(), filter)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidRange) {
			h.handleFilterError(w, validationError{field: "range"})
			return ledger.ExportFilter{}, nil, false
		}
		h.handleServerError(w, "export audit ledger", err)
		return ledger.ExportFilter{}, nil, false
	}
	return filter, entries, true
}

func (h *Handler) parseFilter(r *http.Request) (ledger.ExportFilter, error) {
	q := r.URL.Query()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = h.now().UTC().Format(dateLayout)
	}
	toTime, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return ledger.ExportFilter{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format(dateLayout)
	}
	fromTime, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return ledger.ExportFilter{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) {
		return ledger.ExportFilter{}, validationError{field: "range"}
	}
	if h.maxRange > 0 && toTime.Sub(fromTime) > h.maxRange {
		return ledger.ExportFilter{}, validationError{field: "range"}
	}
	return ledger.ExportFilter{
		From:  fromTime,
		To:    toTime,
		Table: strings.TrimSpace(q.Get("table")),
	}, nil
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "invalid "+v.field)
		return
	}
	h.handleServerError(w, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
