package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
)

const scheduleColumns = `id, item_id, marketplace, account_id, scheduled_at, status, priority,
	listing_id, error_message, claimed_by, started_at, completed_at, created_at`

type SQLiteScheduleStore struct {
	db *sql.DB
}

func NewSQLiteScheduleStore(db *sql.DB) *SQLiteScheduleStore {
	return &SQLiteScheduleStore{db: db}
}

func (r *SQLiteScheduleStore) BulkInsert(ctx context.Context, entries []types.NewScheduleEntry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin schedule insert: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_entries (item_id, marketplace, account_id, scheduled_at, status, priority, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ItemID, e.Marketplace, e.AccountID, ts(e.ScheduledAt), string(state.StatusScheduled), e.Priority, ts(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("failed to insert schedule entry for item %d: %w", e.ItemID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule insert: %w", err)
	}
	return ids, nil
}

func (r *SQLiteScheduleStore) ItemsWithOpenEntries(ctx context.Context, itemIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool)
	if len(itemIDs) == 0 {
		return result, nil
	}

	in, args := inClause(itemIDs)
	args = append(args, string(state.StatusScheduled), string(state.StatusRunning))
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT item_id
		FROM schedule_entries
		WHERE item_id IN (`+in+`) AND status IN (?, ?)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *SQLiteScheduleStore) FetchDue(ctx context.Context, now time.Time, limit int) ([]types.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedule_entries
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, priority DESC, id ASC
		LIMIT ?
	`, string(state.StatusScheduled), ts(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ScheduleEntry
	for rows.Next() {
		e, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *SQLiteScheduleStore) Claim(ctx context.Context, id int64, claimedBy string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedule_entries
		SET status = ?, started_at = ?, claimed_by = ?
		WHERE id = ? AND status = ?
	`, string(state.StatusRunning), ts(now), claimedBy, id, string(state.StatusScheduled))
	return anyRowAffected(res, err)
}

func (r *SQLiteScheduleStore) MarkCompleted(ctx context.Context, id int64, listingID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedule_entries
		SET status = ?, listing_id = ?, error_message = NULL, completed_at = ?
		WHERE id = ? AND status = ?
	`, string(state.StatusCompleted), listingID, ts(now), id, string(state.StatusRunning))
	return expectOneRow(res, err)
}

func (r *SQLiteScheduleStore) MarkError(ctx context.Context, id int64, errMsg string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedule_entries
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, string(state.StatusError), errMsg, ts(now), id, string(state.StatusRunning))
	return expectOneRow(res, err)
}

func (r *SQLiteScheduleStore) ResetStale(ctx context.Context, olderThan time.Time, to state.ScheduleStatus, errMsg string, now time.Time) (int64, error) {
	var (
		res sql.Result
		err error
	)
	switch to {
	case state.StatusError:
		res, err = r.db.ExecContext(ctx, `
			UPDATE schedule_entries
			SET status = ?, error_message = ?, completed_at = ?
			WHERE status = ? AND started_at < ?
		`, string(state.StatusError), errMsg, ts(now), string(state.StatusRunning), ts(olderThan))
	case state.StatusScheduled:
		res, err = r.db.ExecContext(ctx, `
			UPDATE schedule_entries
			SET status = ?, started_at = NULL, claimed_by = NULL
			WHERE status = ? AND started_at < ?
		`, string(state.StatusScheduled), string(state.StatusRunning), ts(olderThan))
	default:
		return 0, fmt.Errorf("%w: RUNNING to %s", store.ErrInvalidTransition, to)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteScheduleStore) Requeue(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedule_entries
		SET status = ?, error_message = NULL, listing_id = NULL,
		    started_at = NULL, completed_at = NULL, claimed_by = NULL
		WHERE id = ? AND status = ?
	`, string(state.StatusScheduled), id, string(state.StatusError))
	return anyRowAffected(res, err)
}

func (r *SQLiteScheduleStore) FindByID(ctx context.Context, id int64) (*types.ScheduleEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedule_entries WHERE id = ?`, id)
	e, err := scanScheduleEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return e, err
}

func (r *SQLiteScheduleStore) CountGroupedByStatus(ctx context.Context) (map[state.ScheduleStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM schedule_entries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[state.ScheduleStatus]int, len(state.AllStatuses))
	for _, status := range state.AllStatuses {
		result[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[state.ScheduleStatus(status)] = count
	}
	return result, rows.Err()
}

func (r *SQLiteScheduleStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteScheduleStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduleEntry(row rowScanner) (*types.ScheduleEntry, error) {
	var (
		e      types.ScheduleEntry
		status string
	)
	err := row.Scan(
		&e.ID, &e.ItemID, &e.Marketplace, &e.AccountID, timeValue{&e.ScheduledAt}, &status, &e.Priority,
		&e.ListingID, &e.ErrorMessage, &e.ClaimedBy,
		nullTime{&e.StartedAt}, nullTime{&e.CompletedAt}, timeValue{&e.CreatedAt},
	)
	if err != nil {
		return nil, err
	}
	e.Status = state.ScheduleStatus(status)
	return &e, nil
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrInvalidTransition
	}
	return nil
}

// anyRowAffected reports whether a conditional update matched a row.
func anyRowAffected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

var _ store.ScheduleStore = (*SQLiteScheduleStore)(nil)
