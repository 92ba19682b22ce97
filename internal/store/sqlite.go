package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hieund/repostbot/internal/job"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	cookies    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	video_url     TEXT NOT NULL,
	media_path    TEXT,
	caption       TEXT,
	schedule_time TEXT,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	requester     TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	error         TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_requester ON jobs(requester);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and if needed creates) the SQLite database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateJob inserts a new pending job and returns its id.
func (s *SQLiteStore) CreateJob(ctx context.Context, params CreateJobParams) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var schedule any
	if params.ScheduleTime != nil {
		schedule = params.ScheduleTime.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, video_url, media_path, caption, schedule_time, account_id, requester, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, params.VideoURL, nullString(params.MediaPath), nullString(params.Caption),
		schedule, params.AccountID, params.Requester, string(job.StatusPending), now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

// GetJob fetches a single job by id.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_url, media_path, caption, schedule_time, account_id, requester, status, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

// GetDueJobs returns pending jobs due at now, oldest first.
func (s *SQLiteStore) GetDueJobs(ctx context.Context, now time.Time) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_url, media_path, caption, schedule_time, account_id, requester, status, error, created_at, updated_at
		FROM jobs
		WHERE status = ? AND (schedule_time IS NULL OR schedule_time <= ?)
		ORDER BY created_at
	`, string(job.StatusPending), now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// GetJobsByRequester returns the requester's most recent jobs.
func (s *SQLiteStore) GetJobsByRequester(ctx context.Context, requester string, limit int) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_url, media_path, caption, schedule_time, account_id, requester, status, error, created_at, updated_at
		FROM jobs
		WHERE requester = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, requester, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs by requester: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListByStatus returns all jobs in the given state, oldest first.
func (s *SQLiteStore) ListByStatus(ctx context.Context, status job.Status) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_url, media_path, caption, schedule_time, account_id, requester, status, error, created_at, updated_at
		FROM jobs
		WHERE status = ?
		ORDER BY created_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs by status: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// SetStatus updates a job's status, enforcing the lifecycle state machine.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status job.Status, errMsg string) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}

	current, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, string(status), nullString(errMsg), now, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// SetMediaPath records where the downloaded media landed.
func (s *SQLiteStore) SetMediaPath(ctx context.Context, id, path string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET media_path = ?, updated_at = ? WHERE id = ?
	`, path, now, id)
	if err != nil {
		return fmt.Errorf("failed to update media path: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJob removes a pending job. Jobs already picked up or finished are
// kept; cancellation only makes sense before processing starts.
func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ? AND status = ?`, id, string(job.StatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CreateAccount stores a named session-cookie export and returns its id.
func (s *SQLiteStore) CreateAccount(ctx context.Context, name, cookies string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, cookies, created_at) VALUES (?, ?, ?, ?)
	`, id, name, cookies, now)
	if err != nil {
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	return id, nil
}

// GetAccount fetches a single account by id.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*job.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, cookies, created_at FROM accounts WHERE id = ?
	`, id)

	var a job.Account
	var createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.Cookies, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

// ListAccounts returns all accounts, oldest first.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*job.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cookies, created_at FROM accounts ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*job.Account
	for rows.Next() {
		var a job.Account
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.Cookies, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*job.Job, error) {
	var j job.Job
	var mediaPath, caption, schedule, errMsg sql.NullString
	var status, createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.VideoURL, &mediaPath, &caption, &schedule,
		&j.AccountID, &j.Requester, &status, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	j.MediaPath = mediaPath.String
	j.Caption = caption.String
	j.Error = errMsg.String
	j.Status = job.Status(status)
	if schedule.Valid {
		if t, err := time.Parse(time.RFC3339Nano, schedule.String); err == nil {
			j.ScheduleTime = &t
		}
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*job.Job, error) {
	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
