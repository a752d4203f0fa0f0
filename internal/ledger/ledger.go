package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Repository persists ledger entries.
type Repository interface {
	// WithAppendLock runs fn inside a transaction holding the ledger-wide
	// writer lock. Nothing fn wrote survives when it returns an error.
	WithAppendLock(ctx context.Context, fn func(context.Context, AppendTx) error) error
	// Range returns the entries matching filter ordered by id ascending.
	Range(ctx context.Context, filter ExportFilter) ([]Entry, error)
	// Walk streams every entry ordered by id ascending from one consistent
	// snapshot.
	Walk(ctx context.Context, fn func(Entry) error) error
}

// AppendTx exposes the operations available while the writer lock is held.
type AppendTx interface {
	// Last returns the entry with the highest id; ok is false for an empty ledger.
	Last(ctx context.Context) (entry Entry, ok bool, err error)
	Insert(ctx context.Context, entry Entry) error
}

// Observer receives append outcomes, typically for metrics.
type Observer interface {
	ObserveAppend(action string, err error)
}

// Ledger is the single owner of the chain head. All appends in the process
// route through one Ledger value.
type Ledger struct {
	repo     Repository
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu sync.Mutex
}

// NewLedger constructs a ledger on top of repo.
func NewLedger(repo Repository, logger *slog.Logger, observer Observer) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		repo:     repo,
		logger:   logger,
		observer: observer,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Append links fields to the current chain head and commits the new entry.
func (l *Ledger) Append(ctx context.Context, fields Fields) (Entry, error) {
	if l == nil || l.repo == nil {
		return Entry{}, ErrNotConfigured
	}
	if err := fields.validate(); err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var committed Entry
	err := l.repo.WithAppendLock(ctx, func(ctx context.Context, tx AppendTx) error {
		last, ok, err := tx.Last(ctx)
		if err != nil {
			return fmt.Errorf("read chain head: %w", err)
		}
		entry := Entry{
			ID:           1,
			Timestamp:    l.now().UTC().Truncate(time.Second),
			ActorID:      fields.ActorID,
			Action:       fields.Action,
			Table:        fields.Table,
			RecordID:     fields.RecordID,
			OldValues:    fields.OldValues,
			NewValues:    fields.NewValues,
			SourceIP:     fields.SourceIP,
			PreviousHash: Genesis,
		}
		if ok {
			entry.ID = last.ID + 1
			entry.PreviousHash = last.EntryHash
		}
		entry.EntryHash = ComputeHash(entry)
		if err := tx.Insert(ctx, entry); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		committed = entry
		return nil
	})
	l.observe(fields.Action, err)
	if err != nil {
		l.logger.Error("ledger append failed",
			slog.String("action", fields.Action),
			slog.String("table", fields.Table),
			slog.Any("error", err),
		)
		return Entry{}, fmt.Errorf("ledger: append: %w", err)
	}
	l.logger.Debug("ledger entry appended",
		slog.Int64("id", committed.ID),
		slog.String("action", committed.Action),
		slog.String("table", committed.Table),
	)
	return committed, nil
}

// Export returns the entries in the filter range ordered by id ascending.
func (l *Ledger) Export(ctx context.Context, filter ExportFilter) ([]Entry, error) {
	if l == nil || l.repo == nil {
		return nil, ErrNotConfigured
	}
	if _, _, err := filter.Bounds(); err != nil {
		return nil, err
	}
	entries, err := l.repo.Range(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ledger: export: %w", err)
	}
	return entries, nil
}

func (l *Ledger) observe(action string, err error) {
	if l.observer != nil {
		l.observer.ObserveAppend(action, err)
	}
}
