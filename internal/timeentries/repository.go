package timeentries

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, employee_id, work_date, start_time, end_time, break_minutes, note, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for time entries.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

// ListByDay implements Reader.
func (r *Repository) ListByDay(ctx context.Context, employeeID int64, date time.Time) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE employee_id=$1 AND work_date=$2 ORDER BY id`, employeeID, Day(date))
}

// ListByWeek implements Reader. Weeks are matched on the stored ISO year and
// week columns, which are computed in Go when a row is written.
func (r *Repository) ListByWeek(ctx context.Context, employeeID int64, week WeekBucket) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE employee_id=$1 AND iso_year=$2 AND iso_week=$3 ORDER BY id`, employeeID, week.Year, week.Week)
}

// Get returns one entry.
func (r *Repository) Get(ctx context.Context, id int64) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id=$1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Create inserts e and returns the stored row.
func (r *Repository) Create(ctx context.Context, e Entry) (Entry, error) {
	week := WeekOf(e.Date)
	now := r.now()
	row := r.pool.QueryRow(ctx, `INSERT INTO time_entries (employee_id, work_date, start_time, end_time, break_minutes, iso_year, iso_week, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING `+entryColumns,
		e.EmployeeID, Day(e.Date), e.Start, e.End, e.BreakMinutes, week.Year, week.Week, e.Note, now)
	return scanEntry(row)
}

// Update overwrites the mutable columns of entry id.
func (r *Repository) Update(ctx context.Context, id int64, e Entry) (Entry, error) {
	week := WeekOf(e.Date)
	row := r.pool.QueryRow(ctx, `UPDATE time_entries
SET employee_id=$2, work_date=$3, start_time=$4, end_time=$5, break_minutes=$6, iso_year=$7, iso_week=$8, note=$9, updated_at=$10
WHERE id=$1
RETURNING `+entryColumns,
		id, e.EmployeeID, Day(e.Date), e.Start, e.End, e.BreakMinutes, week.Year, week.Week, e.Note, r.now())
	updated, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return updated, err
}

// Delete removes entry id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM time_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EmployeeID, &e.Date, &e.Start, &e.End, &e.BreakMinutes, &e.Note, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}
	e.Date = Day(e.Date)
	return e, nil
}
