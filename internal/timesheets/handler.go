package timesheets

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/timeguard/timeguard/internal/platform/httpx"
	"github.com/timeguard/timeguard/internal/shared"
	"github.com/timeguard/timeguard/internal/timeentries"
)

// Mutator is the contract the HTTP handler needs from Service.
type Mutator interface {
	Create(ctx context.Context, actor shared.Actor, in Input) (Result, error)
	Update(ctx context.Context, actor shared.Actor, id int64, in Input) (Result, error)
	Delete(ctx context.Context, actor shared.Actor, id int64) error
}

// Handler serves the time-entry CRUD endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Mutator
	validator *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service Mutator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers the time-entry endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/time-entries", h.handleCreate)
	r.Put("/time-entries/{id}", h.handleUpdate)
	r.Delete("/time-entries/{id}", h.handleDelete)
}

type entryForm struct {
	EmployeeID   int64  `json:"employee_id" validate:"required,gt=0"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Start        string `json:"start" validate:"required"`
	End          string `json:"end" validate:"required"`
	BreakMinutes int    `json:"break_minutes" validate:"gte=0"`
	Note         string `json:"note" validate:"max=500"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, in, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	actor, in, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	actor, err := shared.RequireActor(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (shared.Actor, Input, bool) {
	actor, err := shared.RequireActor(r.Context())
	if err != nil {
		h.respondError(w, err)
		return shared.Actor{}, Input{}, false
	}
	var form entryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "request body must be a JSON object")
		return shared.Actor{}, Input{}, false
	}
	if fields := httpx.FieldErrors(h.validator.Struct(form)); fields != nil {
		httpx.FieldProblem(w, fields)
		return shared.Actor{}, Input{}, false
	}
	date, err := timeentries.ParseDate(form.Date)
	if err != nil {
		h.respondError(w, err)
		return shared.Actor{}, Input{}, false
	}
	return actor, Input{
		EmployeeID:   form.EmployeeID,
		Date:         date,
		Start:        form.Start,
		End:          form.End,
		BreakMinutes: form.BreakMinutes,
		Note:         form.Note,
	}, true
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Time Entry", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if !httpx.RespondError(w, err,
		httpx.Map(timeentries.ErrInvalidInput, http.StatusBadRequest, "Invalid Time Entry"),
		httpx.Map(timeentries.ErrNotFound, http.StatusNotFound, "Not Found"),
		httpx.Map(shared.ErrActorRequired, http.StatusUnauthorized, "Unauthorized"),
	) {
		h.logger.Error("time entry request failed", slog.Any("error", err))
	}
}
