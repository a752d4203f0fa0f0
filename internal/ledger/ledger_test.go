package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func newTestLedger(repo *memoryRepo) *Ledger {
	l := NewLedger(repo, nil, nil)
	l.now = fixedClock(testStart)
	return l
}

func appendN(t *testing.T, l *Ledger, n int) []Entry {
	t.Helper()
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := l.Append(context.Background(), Fields{
			ActorID:   int64(i + 1),
			Action:    ActionCreate,
			Table:     "time_entries",
			RecordID:  Int64(int64(100 + i)),
			NewValues: MustPayload(map[string]int{"break_minutes": i}),
			SourceIP:  String("127.0.0.1"),
		})
		require.NoError(t, err)
		entries = append(entries, e)
	}
	return entries
}

type countingObserver struct {
	mu       sync.Mutex
	ok, fail int
}

func (o *countingObserver) ObserveAppend(action string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.fail++
		return
	}
	o.ok++
}

func TestAppendLinksEntries(t *testing.T) {
	repo := &memoryRepo{}
	entries := appendN(t, newTestLedger(repo), 3)

	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, Genesis, entries[0].PreviousHash)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, int64(i+1), entries[i].ID)
		assert.Equal(t, entries[i-1].EntryHash, entries[i].PreviousHash)
	}
	for _, e := range entries {
		assert.Regexp(t, `^[0-9a-f]{64}$`, e.EntryHash)
		assert.Equal(t, ComputeHash(e), e.EntryHash)
		assert.Zero(t, e.Timestamp.Nanosecond())
	}
	assert.Equal(t, 3, repo.len())
}

func TestAppendRejectsMissingFields(t *testing.T) {
	repo := &memoryRepo{}
	l := newTestLedger(repo)
	_, err := l.Append(context.Background(), Fields{Action: ActionCreate})
	assert.ErrorIs(t, err, ErrInvalidFields)
	_, err = l.Append(context.Background(), Fields{Table: "time_entries"})
	assert.ErrorIs(t, err, ErrInvalidFields)
	assert.Zero(t, repo.len())
}

func TestAppendFailureLeavesLedgerUnchanged(t *testing.T) {
	repo := &memoryRepo{}
	observer := &countingObserver{}
	l := newTestLedger(repo)
	l.observer = observer
	first := appendN(t, l, 1)[0]

	storageDown := errors.New("connection refused")
	repo.insertErr = storageDown
	_, err := l.Append(context.Background(), Fields{ActorID: 1, Action: ActionUpdate, Table: "time_entries"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storageDown)
	assert.Equal(t, 1, repo.len())

	repo.insertErr = nil
	next, err := l.Append(context.Background(), Fields{ActorID: 1, Action: ActionUpdate, Table: "time_entries"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
	assert.Equal(t, first.EntryHash, next.PreviousHash)
	assert.Equal(t, 2, observer.ok)
	assert.Equal(t, 1, observer.fail)
}

func TestAppendConcurrentCallersKeepChainLinear(t *testing.T) {
	repo := &memoryRepo{}
	l := newTestLedger(repo)

	const writers = 25
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Append(context.Background(), Fields{
				ActorID:   int64(i),
				Action:    ActionValidation,
				Table:     "time_entries",
				NewValues: MustPayload(map[string]string{"writer": fmt.Sprint(i)}),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	report, err := NewVerifier(repo, nil).Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, writers, report.Total)
	assert.Equal(t, writers, report.ValidCount)
	assert.False(t, report.ChainBroken)
	assert.Empty(t, report.Invalid)
}

func TestExportFiltersByRangeAndTable(t *testing.T) {
	repo := &memoryRepo{}
	l := NewLedger(repo, nil, nil)
	days := []time.Time{
		time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}
	tables := []string{"time_entries", "employees", "time_entries", "time_entries"}
	for i, day := range days {
		day := day
		l.now = func() time.Time { return day }
		_, err := l.Append(context.Background(), Fields{ActorID: 1, Action: ActionCreate, Table: tables[i]})
		require.NoError(t, err)
	}

	filter := ExportFilter{
		From: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	}
	got, err := l.Export(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	filter.Table = "time_entries"
	got, err = l.Export(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)

	all, err := l.Export(context.Background(), ExportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExportRejectsInvertedRange(t *testing.T) {
	l := NewLedger(&memoryRepo{}, nil, nil)
	_, err := l.Export(context.Background(), ExportFilter{
		From: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNilLedgerNotConfigured(t *testing.T) {
	var l *Ledger
	_, err := l.Append(context.Background(), Fields{Action: ActionCreate, Table: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
