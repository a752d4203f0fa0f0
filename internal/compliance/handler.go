package compliance

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/timeguard/timeguard/internal/platform/httpx"
	"github.com/timeguard/timeguard/internal/shared"
	"github.com/timeguard/timeguard/internal/timeentries"
)

// Validator is the contract the HTTP handler needs from Service.
type Validator interface {
	ValidateTimeEntry(ctx context.Context, req Request) (ValidationResult, error)
	ReloadRules(ctx context.Context) (int, error)
}

// Handler exposes validation and rule reload endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Validator
	validator *validator.Validate
}

// NewHandler constructs the compliance handler.
func NewHandler(logger *slog.Logger, service Validator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers the compliance endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/time-entries/validate", h.handleValidate)
	r.Post("/compliance/break-rules/reload", h.handleReload)
}

type validateForm struct {
	EmployeeID     int64  `json:"employee_id" validate:"required,gt=0"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Start          string `json:"start" validate:"required"`
	End            string `json:"end" validate:"required"`
	BreakMinutes   int    `json:"break_minutes" validate:"gte=0"`
	ExcludeEntryID *int64 `json:"exclude_entry_id,omitempty" validate:"omitempty,gt=0"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var form validateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "request body must be a JSON object")
		return
	}
	if fields := httpx.FieldErrors(h.validator.Struct(form)); fields != nil {
		httpx.FieldProblem(w, fields)
		return
	}
	date, err := timeentries.ParseDate(form.Date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.ValidateTimeEntry(r.Context(), Request{
		EmployeeID:     form.EmployeeID,
		Date:           date,
		Start:          strings.TrimSpace(form.Start),
		End:            strings.TrimSpace(form.End),
		BreakMinutes:   form.BreakMinutes,
		ExcludeEntryID: form.ExcludeEntryID,
		ActorID:        actor.ID,
		SourceIP:       actor.SourceIP,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if _, err := shared.RequireActor(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}
	n, err := h.service.ReloadRules(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"active_rules": n})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if !httpx.RespondError(w, err,
		httpx.Map(timeentries.ErrInvalidInput, http.StatusBadRequest, "Invalid Time Entry"),
		httpx.Map(shared.ErrActorRequired, http.StatusUnauthorized, "Unauthorized"),
	) {
		h.logger.Error("compliance request failed", slog.Any("error", err))
	}
}
