package repository

import (
	"context"      // context carries deadlines for DB operations
	"crypto/rand"  // random run keys
	"database/sql" // sql provides generic database operations
	"encoding/hex" // hex encoding of run keys
	"errors"       // errors.Is for driver error checks
	"time"         // timestamps are stored in UTC

	"github.com/go-sql-driver/mysql" // MySQL error codes

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
)

// schema creates the run history tables.  Each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS simulation_runs (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		run_key        CHAR(32)     NOT NULL UNIQUE,
		total_tickets  INT          NOT NULL,
		release_rate   INT          NOT NULL,
		retrieval_rate INT          NOT NULL,
		max_capacity   INT          NOT NULL,
		screens        INT          NOT NULL,
		reason         VARCHAR(32)  NOT NULL,
		remaining      INT          NOT NULL,
		sold           INT          NOT NULL,
		lost           INT          NOT NULL,
		started_at     DATETIME(3)  NOT NULL,
		finished_at    DATETIME(3)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_run_screens (
		run_id     BIGINT UNSIGNED NOT NULL,
		screen     INT             NOT NULL,
		remaining  INT             NOT NULL,
		produced   INT             NOT NULL,
		sold       INT             NOT NULL,
		high_water INT             NOT NULL,
		PRIMARY KEY (run_id, screen),
		FOREIGN KEY (run_id) REFERENCES simulation_runs(id) ON DELETE CASCADE
	)`,
}

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

// RunRepo stores and lists finished simulation runs.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo returns a RunRepo bound to the provided database.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

// EnsureSchema creates the history tables when they do not exist yet.
func (r *RunRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// NewRunKey returns a random 32 character hex key for a run.  The key is
// generated before the run starts so that published events and the stored
// row share it.
func NewRunKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts the run and its screen rows in one transaction and sets
// run.ID.  A duplicate run key yields ErrConflict.
func (r *RunRepo) Create(ctx context.Context, run *model.Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const qRun = `INSERT INTO simulation_runs
		(run_key, total_tickets, release_rate, retrieval_rate, max_capacity, screens,
		 reason, remaining, sold, lost, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qRun,
		run.RunKey, run.TotalTickets, run.TicketReleaseRate, run.CustomerRetrievalRate,
		run.MaxCapacity, run.Screens, run.Reason, run.Remaining, run.Sold, run.Lost,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if len(run.ScreenResults) > 0 {
		query, args := screenInsert(uint64(id), run.ScreenResults)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	run.ID = uint64(id)
	return nil
}

// screenInsert builds one multi-row INSERT for the screen results.
func screenInsert(runID uint64, screens []model.RunScreen) (string, []interface{}) {
	query := `INSERT INTO simulation_run_screens (run_id, screen, remaining, produced, sold, high_water) VALUES `
	args := make([]interface{}, 0, len(screens)*6)
	for i, s := range screens {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, runID, s.Screen, s.Remaining, s.Produced, s.Sold, s.HighWater)
	}
	return query, args
}

const runColumns = `id, run_key, total_tickets, release_rate, retrieval_rate, max_capacity, screens,
	reason, remaining, sold, lost, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*model.Run, error) {
	var run model.Run
	err := s.Scan(&run.ID, &run.RunKey, &run.TotalTickets, &run.TicketReleaseRate,
		&run.CustomerRetrievalRate, &run.MaxCapacity, &run.Screens, &run.Reason,
		&run.Remaining, &run.Sold, &run.Lost, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetByKey fetches a run and its screen rows.  It returns ErrRunNotFound
// when no run has that key.
func (r *RunRepo) GetByKey(ctx context.Context, key string) (*model.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM simulation_runs WHERE run_key = ?`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	const q = `SELECT screen, remaining, produced, sold, high_water
	           FROM simulation_run_screens WHERE run_id = ? ORDER BY screen`
	rows, err := r.db.QueryContext(ctx, q, run.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.RunScreen
		if err := rows.Scan(&s.Screen, &s.Remaining, &s.Produced, &s.Sold, &s.HighWater); err != nil {
			return nil, err
		}
		run.ScreenResults = append(run.ScreenResults, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first, without screen rows.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM simulation_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan removes runs finished before cutoff and returns how
// many were removed.  Screen rows go with them through the foreign key.
func (r *RunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM simulation_runs WHERE finished_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
