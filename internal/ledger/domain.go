// Package ledger implements the hash-chained, append-only audit ledger and its
// integrity verifier.
package ledger

import (
	"errors"
	"strings"
	"time"
)

// Genesis is the previous-hash sentinel of the first ledger entry.
const Genesis = "GENESIS"

// Action codes written by the surrounding system.
const (
	ActionCreate     = "CREATE"
	ActionUpdate     = "UPDATE"
	ActionDelete     = "DELETE"
	ActionValidation = "VALIDATION"
)

var (
	// ErrInvalidFields indicates an append request without action or table.
	ErrInvalidFields = errors.New("ledger: action and table are required")
	// ErrInvalidRange indicates an export range whose start lies after its end.
	ErrInvalidRange = errors.New("ledger: invalid export range")
	// ErrConflict indicates that another writer committed the same sequence id
	// or previous hash first.
	ErrConflict = errors.New("ledger: concurrent append conflict")
	// ErrNotConfigured indicates a ledger without a repository.
	ErrNotConfigured = errors.New("ledger: repository not configured")
)

// Fields carries the caller supplied part of a ledger entry.
type Fields struct {
	ActorID   int64
	Action    string
	Table     string
	RecordID  *int64
	OldValues Payload
	NewValues Payload
	SourceIP  *string
}

func (f Fields) validate() error {
	if strings.TrimSpace(f.Action) == "" || strings.TrimSpace(f.Table) == "" {
		return ErrInvalidFields
	}
	return nil
}

// Entry is one committed, immutable ledger record.
type Entry struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ActorID      int64     `json:"actor_id"`
	Action       string    `json:"action"`
	Table        string    `json:"table"`
	RecordID     *int64    `json:"record_id"`
	OldValues    Payload   `json:"old_values"`
	NewValues    Payload   `json:"new_values"`
	SourceIP     *string   `json:"source_ip"`
	PreviousHash string    `json:"previous_hash"`
	EntryHash    string    `json:"entry_hash"`
}

// ExportFilter selects a date range of the ledger. From and To are calendar
// days, both inclusive; zero values leave the bound open.
type ExportFilter struct {
	From  time.Time
	To    time.Time
	Table string
}

// Bounds returns the half-open timestamp interval [start, end) covered by the
// filter. Zero times mean unbounded.
func (f ExportFilter) Bounds() (time.Time, time.Time, error) {
	var start, end time.Time
	if !f.From.IsZero() {
		start = truncateDay(f.From)
	}
	if !f.To.IsZero() {
		end = truncateDay(f.To).AddDate(0, 0, 1)
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Int64 returns a pointer to v, for optional record ids.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to v, or nil when v is blank.
func String(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
