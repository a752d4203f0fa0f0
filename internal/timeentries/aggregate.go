package timeentries

import (
	"context"
	"fmt"
	"time"
)

// Reader loads persisted entries for aggregation.
type Reader interface {
	ListByDay(ctx context.Context, employeeID int64, date time.Time) ([]Entry, error)
	ListByWeek(ctx context.Context, employeeID int64, week WeekBucket) ([]Entry, error)
}

// Aggregator sums worked minutes over persisted entries.
type Aggregator struct {
	reader Reader
}

// NewAggregator constructs an aggregator reading through reader.
func NewAggregator(reader Reader) *Aggregator {
	return &Aggregator{reader: reader}
}

// DailyTotal sums net minutes of the employee's entries on date, skipping
// excludeID when set.
func (a *Aggregator) DailyTotal(ctx context.Context, employeeID int64, date time.Time, excludeID *int64) (int, error) {
	entries, err := a.reader.ListByDay(ctx, employeeID, Day(date))
	if err != nil {
		return 0, fmt.Errorf("timeentries: daily total: %w", err)
	}
	return sumNet(entries, excludeID)
}

// WeeklyTotal sums net minutes of the employee's entries in week, skipping
// excludeID when set.
func (a *Aggregator) WeeklyTotal(ctx context.Context, employeeID int64, week WeekBucket, excludeID *int64) (int, error) {
	entries, err := a.reader.ListByWeek(ctx, employeeID, week)
	if err != nil {
		return 0, fmt.Errorf("timeentries: weekly total: %w", err)
	}
	return sumNet(entries, excludeID)
}

func sumNet(entries []Entry, excludeID *int64) (int, error) {
	total := 0
	for _, e := range entries {
		if excludeID != nil && e.ID == *excludeID {
			continue
		}
		net, err := NetMinutes(e.Candidate())
		if err != nil {
			return 0, fmt.Errorf("timeentries: stored entry %d: %w", e.ID, err)
		}
		total += net
	}
	return total, nil
}
