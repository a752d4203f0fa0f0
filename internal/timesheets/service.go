// Package timesheets is the CRUD layer for time entries. Every mutation is
// validated, persisted and written to the audit ledger.
package timesheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/timeguard/timeguard/internal/compliance"
	"github.com/timeguard/timeguard/internal/ledger"
	"github.com/timeguard/timeguard/internal/shared"
	"github.com/timeguard/timeguard/internal/timeentries"
)

// Store persists time-entry rows. *timeentries.Repository implements it.
type Store interface {
	Get(ctx context.Context, id int64) (timeentries.Entry, error)
	Create(ctx context.Context, e timeentries.Entry) (timeentries.Entry, error)
	Update(ctx context.Context, id int64, e timeentries.Entry) (timeentries.Entry, error)
	Delete(ctx context.Context, id int64) error
}

// Validator evaluates and records compliance findings.
// *compliance.Service implements it.
type Validator interface {
	Evaluate(ctx context.Context, c timeentries.Candidate) (compliance.ValidationResult, error)
	Record(ctx context.Context, ev compliance.Event, result compliance.ValidationResult) (bool, error)
}

// Input is the writable part of a time entry.
type Input struct {
	EmployeeID   int64
	Date         time.Time
	Start        string
	End          string
	BreakMinutes int
	Note         string
}

func (in Input) entry() timeentries.Entry {
	return timeentries.Entry{
		EmployeeID:   in.EmployeeID,
		Date:         timeentries.Day(in.Date),
		Start:        normalizeClock(in.Start),
		End:          normalizeClock(in.End),
		BreakMinutes: in.BreakMinutes,
		Note:         strings.TrimSpace(in.Note),
	}
}

// normalizeClock stores valid times zero padded. Invalid values are kept as
// given so validation can report them.
func normalizeClock(value string) string {
	value = strings.TrimSpace(value)
	minutes, err := timeentries.ParseClock(value)
	if err != nil {
		return value
	}
	return timeentries.FormatClock(minutes)
}

// Result pairs the saved row with its compliance outcome. Findings never
// block a save.
type Result struct {
	Entry      timeentries.Entry           `json:"entry"`
	Validation compliance.ValidationResult `json:"validation"`
}

// Service coordinates time-entry mutations.
type Service struct {
	store     Store
	validator Validator
	ledger    compliance.Appender
	logger    *slog.Logger
}

// NewService constructs the time-entry service.
func NewService(store Store, validator Validator, appender compliance.Appender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validator: validator, ledger: appender, logger: logger}
}

// Create validates and stores a new entry.
func (s *Service) Create(ctx context.Context, actor shared.Actor, in Input) (Result, error) {
	draft := in.entry()
	validation, err := s.validator.Evaluate(ctx, draft.Candidate())
	if err != nil {
		return Result{}, err
	}
	created, err := s.store.Create(ctx, draft)
	if err != nil {
		return Result{}, fmt.Errorf("timesheets: create: %w", err)
	}
	if err := s.audit(ctx, actor, ledger.ActionCreate, created.ID, nil, &created); err != nil {
		return Result{}, err
	}
	if err := s.record(ctx, actor, created.ID, validation); err != nil {
		return Result{}, err
	}
	s.logger.Info("time entry created", slog.Int64("entry_id", created.ID), slog.Int64("employee_id", created.EmployeeID), slog.Bool("valid", validation.Valid))
	return Result{Entry: created, Validation: validation}, nil
}

// Update validates and replaces entry id. The entry's own previous minutes
// are excluded from the totals.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, in Input) (Result, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("timesheets: update: %w", err)
	}
	draft := in.entry()
	candidate := draft.Candidate()
	candidate.ExcludeID = &id
	validation, err := s.validator.Evaluate(ctx, candidate)
	if err != nil {
		return Result{}, err
	}
	after, err := s.store.Update(ctx, id, draft)
	if err != nil {
		return Result{}, fmt.Errorf("timesheets: update: %w", err)
	}
	if err := s.audit(ctx, actor, ledger.ActionUpdate, id, &before, &after); err != nil {
		return Result{}, err
	}
	if err := s.record(ctx, actor, id, validation); err != nil {
		return Result{}, err
	}
	s.logger.Info("time entry updated", slog.Int64("entry_id", id), slog.Bool("valid", validation.Valid))
	return Result{Entry: after, Validation: validation}, nil
}

// Delete removes entry id.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("timesheets: delete: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("timesheets: delete: %w", err)
	}
	if err := s.audit(ctx, actor, ledger.ActionDelete, id, &before, nil); err != nil {
		return err
	}
	s.logger.Info("time entry deleted", slog.Int64("entry_id", id))
	return nil
}

func (s *Service) audit(ctx context.Context, actor shared.Actor, action string, id int64, before, after *timeentries.Entry) error {
	fields := ledger.Fields{
		ActorID:  actor.ID,
		Action:   action,
		Table:    compliance.TableTimeEntries,
		RecordID: ledger.Int64(id),
		SourceIP: ledger.String(actor.SourceIP),
	}
	var err error
	if before != nil {
		if fields.OldValues, err = ledger.EncodePayload(before.Snapshot()); err != nil {
			return fmt.Errorf("timesheets: audit %s: %w", action, err)
		}
	}
	if after != nil {
		if fields.NewValues, err = ledger.EncodePayload(after.Snapshot()); err != nil {
			return fmt.Errorf("timesheets: audit %s: %w", action, err)
		}
	}
	if _, err := s.ledger.Append(ctx, fields); err != nil {
		s.logger.Error("time entry audit append failed", slog.String("action", action), slog.Int64("entry_id", id), slog.Any("error", err))
		return fmt.Errorf("timesheets: audit %s: %w", action, err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, id int64, validation compliance.ValidationResult) error {
	_, err := s.validator.Record(ctx, compliance.Event{ActorID: actor.ID, EntryID: ledger.Int64(id), SourceIP: actor.SourceIP}, validation)
	if err != nil {
		return fmt.Errorf("timesheets: record findings: %w", err)
	}
	return nil
}
