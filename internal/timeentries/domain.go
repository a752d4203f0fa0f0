// Package timeentries computes worked minutes for time entries and sums
// them per employee day and ISO week.
package timeentries

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks structurally invalid time-entry input. It is a
	// precondition failure, never a compliance finding.
	ErrInvalidInput = errors.New("timeentries: invalid input")
	// ErrNotFound indicates a missing time entry.
	ErrNotFound = errors.New("timeentries: entry not found")
)

// DateLayout is the wire and storage format of work dates.
const DateLayout = "2006-01-02"

// Candidate is a time entry submitted for validation. It is never persisted
// itself.
type Candidate struct {
	EmployeeID   int64
	Date         time.Time
	Start        string
	End          string
	BreakMinutes int
	// ExcludeID skips an already persisted entry when totals are summed,
	// used when an existing entry is being edited.
	ExcludeID *int64
}

// Entry is a persisted time-entry row.
type Entry struct {
	ID           int64     `json:"id"`
	EmployeeID   int64     `json:"employee_id"`
	Date         time.Time `json:"-"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	BreakMinutes int       `json:"break_minutes"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarshalJSON renders Date as a YYYY-MM-DD work date.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain: plain(e), Date: e.Date.Format(DateLayout)})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		e.Date = time.Time{}
		return nil
	}
	date, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return fmt.Errorf("timeentries: entry date %q: %w", aux.Date, err)
	}
	e.Date = date
	return nil
}

// Candidate returns the validation view of a persisted entry.
func (e Entry) Candidate() Candidate {
	return Candidate{
		EmployeeID:   e.EmployeeID,
		Date:         e.Date,
		Start:        e.Start,
		End:          e.End,
		BreakMinutes: e.BreakMinutes,
	}
}

// Snapshot is the ledger representation of an entry row.
func (e Entry) Snapshot() map[string]any {
	return map[string]any{
		"id":            e.ID,
		"employee_id":   e.EmployeeID,
		"date":          e.Date.Format(DateLayout),
		"start":         e.Start,
		"end":           e.End,
		"break_minutes": e.BreakMinutes,
		"note":          e.Note,
	}
}

// WeekBucket identifies an ISO-8601 week. Every weekly total in the system
// is grouped by this scheme.
type WeekBucket struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// WeekOf returns the ISO-8601 week containing date.
func WeekOf(date time.Time) WeekBucket {
	year, week := date.ISOWeek()
	return WeekBucket{Year: year, Week: week}
}

// Day normalises t to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD work date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, invalidf("date %q is not YYYY-MM-DD", value)
	}
	return t, nil
}
