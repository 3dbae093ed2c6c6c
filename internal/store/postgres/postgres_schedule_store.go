package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/lib/pq"
)

const scheduleColumns = `id, item_id, marketplace, account_id, scheduled_at, status, priority,
	listing_id, error_message, claimed_by, started_at, completed_at, created_at`

type PostgresScheduleStore struct {
	db *sql.DB
}

func NewPostgresScheduleStore(db *sql.DB) *PostgresScheduleStore {
	return &PostgresScheduleStore{db: db}
}

func (r *PostgresScheduleStore) BulkInsert(ctx context.Context, entries []types.NewScheduleEntry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin schedule insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO listpilot.schedule_entries (item_id, marketplace, account_id, scheduled_at, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		var id int64
		err := tx.QueryRowContext(ctx, query,
			e.ItemID, e.Marketplace, e.AccountID, e.ScheduledAt, state.StatusScheduled, e.Priority,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert schedule entry for item %d: %w", e.ItemID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule insert: %w", err)
	}
	return ids, nil
}

func (r *PostgresScheduleStore) ItemsWithOpenEntries(ctx context.Context, itemIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool)
	if len(itemIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT item_id
		FROM listpilot.schedule_entries
		WHERE item_id = ANY($1) AND status IN ($2, $3)
	`, pq.Array(itemIDs), state.StatusScheduled, state.StatusRunning)
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

func (r *PostgresScheduleStore) FetchDue(ctx context.Context, now time.Time, limit int) ([]types.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM listpilot.schedule_entries
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC, priority DESC, id ASC
		LIMIT $3
	`, state.StatusScheduled, now, limit)
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

func (r *PostgresScheduleStore) Claim(ctx context.Context, id int64, claimedBy string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.schedule_entries
		SET status = $1,
		    started_at = $2,
		    claimed_by = $3
		WHERE id = $4 AND status = $5
	`, state.StatusRunning, now, claimedBy, id, state.StatusScheduled)
	return anyRowAffected(res, err)
}

func (r *PostgresScheduleStore) MarkCompleted(ctx context.Context, id int64, listingID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.schedule_entries
		SET status = $1,
		    listing_id = $2,
		    error_message = NULL,
		    completed_at = $3
		WHERE id = $4 AND status = $5
	`, state.StatusCompleted, listingID, now, id, state.StatusRunning)
	return expectOneRow(res, err)
}

func (r *PostgresScheduleStore) MarkError(ctx context.Context, id int64, errMsg string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.schedule_entries
		SET status = $1,
		    error_message = $2,
		    completed_at = $3
		WHERE id = $4 AND status = $5
	`, state.StatusError, errMsg, now, id, state.StatusRunning)
	return expectOneRow(res, err)
}

func (r *PostgresScheduleStore) ResetStale(ctx context.Context, olderThan time.Time, to state.ScheduleStatus, errMsg string, now time.Time) (int64, error) {
	var (
		res sql.Result
		err error
	)
	switch to {
	case state.StatusError:
		res, err = r.db.ExecContext(ctx, `
			UPDATE listpilot.schedule_entries
			SET status = $1,
			    error_message = $2,
			    completed_at = $3
			WHERE status = $4 AND started_at < $5
		`, state.StatusError, errMsg, now, state.StatusRunning, olderThan)
	case state.StatusScheduled:
		res, err = r.db.ExecContext(ctx, `
			UPDATE listpilot.schedule_entries
			SET status = $1,
			    started_at = NULL,
			    claimed_by = NULL
			WHERE status = $2 AND started_at < $3
		`, state.StatusScheduled, state.StatusRunning, olderThan)
	default:
		return 0, fmt.Errorf("%w: RUNNING to %s", store.ErrInvalidTransition, to)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresScheduleStore) Requeue(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.schedule_entries
		SET status = $1,
		    error_message = NULL,
		    listing_id = NULL,
		    started_at = NULL,
		    completed_at = NULL,
		    claimed_by = NULL
		WHERE id = $2 AND status = $3
	`, state.StatusScheduled, id, state.StatusError)
	return anyRowAffected(res, err)
}

func (r *PostgresScheduleStore) FindByID(ctx context.Context, id int64) (*types.ScheduleEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM listpilot.schedule_entries
		WHERE id = $1
	`, id)
	e, err := scanScheduleEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return e, err
}

func (r *PostgresScheduleStore) CountGroupedByStatus(ctx context.Context) (map[state.ScheduleStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) AS count
		FROM listpilot.schedule_entries
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[state.ScheduleStatus]int)
	for rows.Next() {
		var status state.ScheduleStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}

	for _, status := range state.AllStatuses {
		if _, ok := result[status]; !ok {
			result[status] = 0
		}
	}

	return result, rows.Err()
}

func (r *PostgresScheduleStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresScheduleStore) Close() error {
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
		&e.ID, &e.ItemID, &e.Marketplace, &e.AccountID, &e.ScheduledAt, &status, &e.Priority,
		&e.ListingID, &e.ErrorMessage, &e.ClaimedBy, &e.StartedAt, &e.CompletedAt, &e.CreatedAt,
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

var _ store.ScheduleStore = (*PostgresScheduleStore)(nil)
