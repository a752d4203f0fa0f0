package compliance

import (
	"context"
	"fmt"

	"github.com/timeguard/timeguard/internal/ledger"
)

// TableTimeEntries is the ledger table name for time-entry events.
const TableTimeEntries = "time_entries"

// Appender writes ledger entries. *ledger.Ledger implements it.
type Appender interface {
	Append(ctx context.Context, fields ledger.Fields) (ledger.Entry, error)
}

// Event carries the context of one validation.
type Event struct {
	ActorID  int64
	EntryID  *int64
	SourceIP string
}

type findingsPayload struct {
	Warnings   []Finding `json:"warnings"`
	Violations []Finding `json:"violations"`
	DayTotal   int       `json:"day_total"`
	WeekTotal  int       `json:"week_total"`
}

// Recorder persists validation outcomes that carry findings.
type Recorder struct {
	appender Appender
}

// NewRecorder constructs a recorder.
func NewRecorder(appender Appender) *Recorder {
	return &Recorder{appender: appender}
}

// Record appends a VALIDATION entry when result has findings. It reports
// whether an entry was written.
func (r *Recorder) Record(ctx context.Context, ev Event, result ValidationResult) (bool, error) {
	if !result.HasFindings() {
		return false, nil
	}
	payload, err := ledger.EncodePayload(findingsPayload{
		Warnings:   nonNil(result.Warnings),
		Violations: nonNil(result.Violations),
		DayTotal:   result.DayTotal,
		WeekTotal:  result.WeekTotal,
	})
	if err != nil {
		return false, fmt.Errorf("compliance: record: %w", err)
	}
	if _, err := r.appender.Append(ctx, ledger.Fields{
		ActorID:   ev.ActorID,
		Action:    ledger.ActionValidation,
		Table:     TableTimeEntries,
		RecordID:  ev.EntryID,
		NewValues: payload,
		SourceIP:  ledger.String(ev.SourceIP),
	}); err != nil {
		return false, fmt.Errorf("compliance: record: %w", err)
	}
	return true, nil
}

func nonNil(findings []Finding) []Finding {
	if findings == nil {
		return []Finding{}
	}
	return findings
}
