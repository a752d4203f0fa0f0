package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/timeguard/timeguard/internal/timeentries"
)

// Rules supplies the rule set currently in effect.
type Rules interface {
	Snapshot(ctx context.Context) (RuleSet, error)
	Reload(ctx context.Context) (RuleSet, error)
}

// Request describes one validateTimeEntry call.
type Request struct {
	EmployeeID     int64
	Date           time.Time
	Start          string
	End            string
	BreakMinutes   int
	ExcludeEntryID *int64
	ActorID        int64
	SourceIP       string
}

func (r Request) candidate() timeentries.Candidate {
	return timeentries.Candidate{
		EmployeeID:   r.EmployeeID,
		Date:         r.Date,
		Start:        r.Start,
		End:          r.End,
		BreakMinutes: r.BreakMinutes,
		ExcludeID:    r.ExcludeEntryID,
	}
}

// Service composes the rule snapshot, the engine and the recorder.
type Service struct {
	rules    Rules
	engine   *Engine
	recorder *Recorder
	logger   *slog.Logger
}

// NewService constructs the compliance service.
func NewService(rules Rules, engine *Engine, recorder *Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rules: rules, engine: engine, recorder: recorder, logger: logger}
}

// Evaluate classifies c against the current rule set without recording.
func (s *Service) Evaluate(ctx context.Context, c timeentries.Candidate) (ValidationResult, error) {
	set, err := s.rules.Snapshot(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	return s.engine.Validate(ctx, c, set)
}

// Record writes the findings of result to the ledger.
func (s *Service) Record(ctx context.Context, ev Event, result ValidationResult) (bool, error) {
	recorded, err := s.recorder.Record(ctx, ev, result)
	if err != nil {
		return false, err
	}
	if recorded {
		attrs := []any{
			slog.Int("warnings", len(result.Warnings)),
			slog.Int("violations", len(result.Violations)),
		}
		if ev.EntryID != nil {
			attrs = append(attrs, slog.Int64("entry_id", *ev.EntryID))
		}
		s.logger.Info("compliance findings recorded", attrs...)
	}
	return recorded, nil
}

// ValidateTimeEntry evaluates req and records any findings against the
// entry named by ExcludeEntryID.
func (s *Service) ValidateTimeEntry(ctx context.Context, req Request) (ValidationResult, error) {
	result, err := s.Evaluate(ctx, req.candidate())
	if err != nil {
		return ValidationResult{}, err
	}
	if _, err := s.Record(ctx, Event{ActorID: req.ActorID, EntryID: req.ExcludeEntryID, SourceIP: req.SourceIP}, result); err != nil {
		return ValidationResult{}, err
	}
	return result, nil
}

// ReloadRules swaps in a freshly loaded rule set.
func (s *Service) ReloadRules(ctx context.Context) (int, error) {
	set, err := s.rules.Reload(ctx)
	if err != nil {
		return 0, fmt.Errorf("compliance: reload rules: %w", err)
	}
	return set.Len(), nil
}
