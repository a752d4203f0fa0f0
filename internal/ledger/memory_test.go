package ledger

import (
	"context"
	"sync"
	"time"
)

// memoryRepo is an in-process Repository used by the package tests.
type memoryRepo struct {
	mu        sync.Mutex
	entries   []Entry
	insertErr error
	walkErr   error
}

func (m *memoryRepo) WithAppendLock(ctx context.Context, fn func(context.Context, AppendTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{repo: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.entries = append(m.entries, tx.pending...)
	return nil
}

func (m *memoryRepo) Range(ctx context.Context, filter ExportFilter) ([]Entry, error) {
	start, end, err := filter.Bounds()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Entry{}
	for _, e := range m.entries {
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !e.Timestamp.Before(end) {
			continue
		}
		if filter.Table != "" && e.Table != filter.Table {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) Walk(ctx context.Context, fn func(Entry) error) error {
	if m.walkErr != nil {
		return m.walkErr
	}
	m.mu.Lock()
	snapshot := append([]Entry(nil), m.entries...)
	m.mu.Unlock()
	for _, e := range snapshot {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// mutate edits the stored entry at index i, bypassing the append path.
func (m *memoryRepo) mutate(i int, fn func(*Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.entries[i])
}

func (m *memoryRepo) remove(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
}

func (m *memoryRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memoryTx struct {
	repo    *memoryRepo
	pending []Entry
}

func (t *memoryTx) Last(ctx context.Context) (Entry, bool, error) {
	if len(t.repo.entries) == 0 {
		return Entry{}, false, nil
	}
	return t.repo.entries[len(t.repo.entries)-1], true, nil
}

func (t *memoryTx) Insert(ctx context.Context, entry Entry) error {
	if t.repo.insertErr != nil {
		return t.repo.insertErr
	}
	t.pending = append(t.pending, entry)
	return nil
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(time.Second)
		return t
	}
}
