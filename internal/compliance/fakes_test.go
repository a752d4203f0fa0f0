package compliance

import (
	"context"
	"errors"
	"sync"

	"github.com/timeguard/timeguard/internal/ledger"
)

type fakeAppender struct {
	mu      sync.Mutex
	entries []ledger.Fields
	err     error
}

func (f *fakeAppender) Append(ctx context.Context, fields ledger.Fields) (ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.Entry{}, f.err
	}
	f.entries = append(f.entries, fields)
	return ledger.Entry{ID: int64(len(f.entries)), Action: fields.Action, Table: fields.Table}, nil
}

func (f *fakeAppender) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type stubLoader struct {
	rules []BreakRule
	err   error
	calls int
}

func (s *stubLoader) ActiveRules(ctx context.Context) ([]BreakRule, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]BreakRule(nil), s.rules...), nil
}

var errStorage = errors.New("storage unavailable")
