package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/timeguard/timeguard/internal/platform/db"
)

// appendLockKey identifies the ledger writer lock among PostgreSQL advisory locks.
const appendLockKey int64 = 0x54494d454c444752

const selectColumns = `id, occurred_at, actor_id, action, table_name, record_id, old_values, new_values, source_ip, previous_hash, entry_hash`

// PGRepository stores the ledger in the audit_ledger table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithAppendLock serialises writers across processes with a transaction
// scoped advisory lock. READ COMMITTED is required here: it takes a fresh
// snapshot per statement, so the head read after the lock is acquired sees
// the previous writer's commit.
func (r *PGRepository) WithAppendLock(ctx context.Context, fn func(context.Context, AppendTx) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
			return fmt.Errorf("acquire append lock: %w", err)
		}
		return fn(ctx, &pgAppendTx{tx: tx})
	})
}

// Range implements Repository.
func (r *PGRepository) Range(ctx context.Context, filter ExportFilter) ([]Entry, error) {
	start, end, err := filter.Bounds()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + selectColumns + ` FROM audit_ledger WHERE 1=1`
	args := []any{}
	if !start.IsZero() {
		args = append(args, start)
		query += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += ` AND occurred_at < $` + strconv.Itoa(len(args))
	}
	if filter.Table != "" {
		args = append(args, filter.Table)
		query += ` AND table_name = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Walk implements Repository inside a read-only snapshot transaction.
func (r *PGRepository) Walk(ctx context.Context, fn func(Entry) error) error {
	return db.WithReadOnlySnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+selectColumns+` FROM audit_ledger ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

type pgAppendTx struct {
	tx pgx.Tx
}

func (t *pgAppendTx) Last(ctx context.Context) (Entry, bool, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM audit_ledger ORDER BY id DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (t *pgAppendTx) Insert(ctx context.Context, e Entry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO audit_ledger (`+selectColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID,
		e.Timestamp,
		e.ActorID,
		e.Action,
		e.Table,
		toPgInt8(e.RecordID),
		toPgPayload(e.OldValues),
		toPgPayload(e.NewValues),
		toPgText(e.SourceIP),
		e.PreviousHash,
		e.EntryHash,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e        Entry
		recordID pgtype.Int8
		oldVals  pgtype.Text
		newVals  pgtype.Text
		sourceIP pgtype.Text
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &e.ActorID, &e.Action, &e.Table, &recordID, &oldVals, &newVals, &sourceIP, &e.PreviousHash, &e.EntryHash); err != nil {
		return Entry{}, err
	}
	e.Timestamp = e.Timestamp.UTC()
	if recordID.Valid {
		e.RecordID = Int64(recordID.Int64)
	}
	if oldVals.Valid {
		e.OldValues = Payload(oldVals.String)
	}
	if newVals.Valid {
		e.NewValues = Payload(newVals.String)
	}
	if sourceIP.Valid {
		ip := sourceIP.String
		e.SourceIP = &ip
	}
	return e, nil
}

func toPgInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func toPgText(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func toPgPayload(p Payload) pgtype.Text {
	if p.IsNull() {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(p), Valid: true}
}
