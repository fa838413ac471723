package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/status"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// learningContextSize limits how many recent corrections feed the style hint
const learningContextSize = 10

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// saveJobRetries bounds job number allocation attempts on a concurrent clash
const saveJobRetries = 3

// SaveJob inserts a new job record with a date scoped job number.
// The number continues from the highest one taken on the job's day, both the
// label and the day bucket derive from the same formatted date. Concurrent
// allocations clash on the unique job_number index and the insert is retried
func (db *DB) SaveJob(ctx context.Context, job *persistence.JobRecord) (*persistence.JobRecord, error) {
	res := *job
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.Uploaded.IsZero() {
		res.Uploaded = time.Now()
	}
	if res.Status == "" {
		res.Status = status.Pending.String()
	}
	day := res.Uploaded.Format("20060102")
	for i := 0; i < saveJobRetries; i++ {
		err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
			var last int
			if err := tx.QueryRow(ctx, `SELECT coalesce(max(substring(job_number from 10)::int), 0)
			FROM jobs WHERE job_number LIKE $1`, day+"-%").Scan(&last); err != nil {
				return fmt.Errorf("can't get last job number: %w", err)
			}
			res.JobNumber = makeJobNumber(day, last+1)
			_, err := tx.Exec(ctx, `INSERT INTO jobs(id, job_number, owner_id, owner_name, file_name,
			uploaded, duration_secs, char_count, word_count, status, original_text, final_text)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				res.ID, res.JobNumber, res.OwnerID, res.OwnerName, res.FileName,
				res.Uploaded, res.DurationSecs, res.CharCount, res.WordCount, res.Status,
				res.OriginalText, res.FinalText)
			return err
		})
		if err == nil {
			return &res, nil
		}
		if isUniqueViolation(err) {
			goapp.Log.Warn().Str("job", res.JobNumber).Msg("job number taken, retry")
			continue
		}
		return nil, fmt.Errorf("can't insert job: %w", err)
	}
	return nil, fmt.Errorf("can't allocate job number for %s", day)
}

func makeJobNumber(day string, n int) string {
	return fmt.Sprintf("%s-%03d", day, n)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const jobFields = `id, job_number, owner_id, owner_name, file_name, uploaded,
	duration_secs, char_count, word_count, status, assigned_to, original_text, final_text`

func scanJob(row pgx.Row) (*persistence.JobRecord, error) {
	var res persistence.JobRecord
	err := row.Scan(&res.ID, &res.JobNumber, &res.OwnerID, &res.OwnerName, &res.FileName,
		&res.Uploaded, &res.DurationSecs, &res.CharCount, &res.WordCount, &res.Status,
		&res.AssignedTo, &res.OriginalText, &res.FinalText)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// LoadJob loads one job record
func (db *DB) LoadJob(ctx context.Context, id string) (*persistence.JobRecord, error) {
	res, err := scanJob(db.pool.QueryRow(ctx, `SELECT `+jobFields+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load job: %w", err)
	}
	return res, nil
}

// LoadJobs loads job records, all or by owner, newest first
func (db *DB) LoadJobs(ctx context.Context, ownerID string) ([]*persistence.JobRecord, error) {
	q := `SELECT ` + jobFields + ` FROM jobs ORDER BY uploaded DESC`
	args := []any{}
	if ownerID != "" {
		q = `SELECT ` + jobFields + ` FROM jobs WHERE owner_id = $1 ORDER BY uploaded DESC`
		args = append(args, ownerID)
	}
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't load jobs: %w", err)
	}
	defer rows.Close()
	res := make([]*persistence.JobRecord, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("can't scan job: %w", err)
		}
		res = append(res, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't load jobs: %w", err)
	}
	return res, nil
}

// AssignJob moves a PENDING job to ASSIGNED
func (db *DB) AssignJob(ctx context.Context, id, assignee string) error {
	if assignee == "" {
		return fmt.Errorf("no assignee")
	}
	rows, err := db.pool.Exec(ctx, `UPDATE jobs SET status = $3, assigned_to = $4
	WHERE id = $1 AND status = $2`, id, status.Pending.String(), status.Assigned.String(), assignee)
	if err != nil {
		return fmt.Errorf("can't assign job: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't assign job, no pending record found")
	}
	return nil
}

type finalizeAction int

const (
	finalizeSkip finalizeAction = iota
	finalizeUpdate
	finalizeUpdateAndLearn
)

// decideFinalize maps the job's current state to the finalize outcome:
// a FINALIZED job is frozen, a changed text earns one learning entry
func decideFinalize(jobStatus, originalText, finalText string) finalizeAction {
	if jobStatus == status.Finalized.String() {
		return finalizeSkip
	}
	if finalText != originalText {
		return finalizeUpdateAndLearn
	}
	return finalizeUpdate
}

// FinalizeJob stores the corrected text and moves the job to FINALIZED.
// A repeated call is a no-op. When the text differs from the original,
// exactly one learning entry is recorded
func (db *DB) FinalizeJob(ctx context.Context, id, finalText string) error {
	job, err := db.LoadJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("no job '%s'", id)
	}
	action := decideFinalize(job.Status, job.OriginalText, finalText)
	if action == finalizeSkip {
		goapp.Log.Info().Str("ID", id).Msg("job already finalized")
		return nil
	}
	rows, err := db.pool.Exec(ctx, `UPDATE jobs SET status = $2, final_text = $3
	WHERE id = $1 AND status != $2`, id, status.Finalized.String(), finalText)
	if err != nil {
		return fmt.Errorf("can't finalize job: %w", err)
	}
	if rows.RowsAffected() != 1 {
		// concurrent finalize won the race
		return nil
	}
	if action == finalizeUpdateAndLearn {
		if err := db.insertLearningEntry(ctx, id, job.OriginalText, finalText); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) insertLearningEntry(ctx context.Context, jobID, original, corrected string) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO learning_entries(job_id, original, corrected, created)
	VALUES($1, $2, $3, $4)`, jobID, original, corrected, time.Now())
	if err != nil {
		return fmt.Errorf("can't insert learning entry: %w", err)
	}
	defer rows.Close()
	return nil
}

// LearningContext builds a style hint from the owner's recent corrections
func (db *DB) LearningContext(ctx context.Context, ownerID string) (string, error) {
	rows, err := db.pool.Query(ctx, `SELECT le.original, le.corrected FROM learning_entries le
	JOIN jobs j ON j.id = le.job_id
	WHERE j.owner_id = $1 ORDER BY le.created DESC LIMIT $2`, ownerID, learningContextSize)
	if err != nil {
		return "", fmt.Errorf("can't load learning entries: %w", err)
	}
	defer rows.Close()
	lines := make([]string, 0)
	for rows.Next() {
		var original, corrected string
		if err := rows.Scan(&original, &corrected); err != nil {
			return "", fmt.Errorf("can't scan learning entry: %w", err)
		}
		lines = append(lines, original+" -> "+corrected)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("can't load learning entries: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// LoadPendingInvoiceExtracts loads invoice extracts not yet exported
func (db *DB) LoadPendingInvoiceExtracts(ctx context.Context, ownerID string) ([]*persistence.InvoiceExtract, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, owner_id, fields, status, created FROM invoice_extracts
	WHERE owner_id = $1 AND status = 'PENDING' ORDER BY created`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("can't load invoice extracts: %w", err)
	}
	defer rows.Close()
	res := make([]*persistence.InvoiceExtract, 0)
	for rows.Next() {
		var ie persistence.InvoiceExtract
		if err := rows.Scan(&ie.ID, &ie.OwnerID, &ie.Fields, &ie.Status, &ie.Created); err != nil {
			return nil, fmt.Errorf("can't scan invoice extract: %w", err)
		}
		res = append(res, &ie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't load invoice extracts: %w", err)
	}
	return res, nil
}

// MarkInvoiceExported moves an invoice extract out of the pending set
func (db *DB) MarkInvoiceExported(ctx context.Context, id string) error {
	rows, err := db.pool.Exec(ctx, `UPDATE invoice_extracts SET status = 'EXPORTED' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't mark invoice exported: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't mark invoice exported, no record found")
	}
	return nil
}

// LoadOwnerEmail returns the notification address for an owner
func (db *DB) LoadOwnerEmail(ctx context.Context, ownerID string) (string, error) {
	var res string
	err := db.pool.QueryRow(ctx, `SELECT email FROM owners WHERE id = $1`, ownerID).Scan(&res)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("can't load owner email: %w", err)
	}
	return res, nil
}

// DeleteOldJobs removes finalized jobs older than the given time
func (db *DB) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int, error) {
	cmd, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE status = $1 AND uploaded < $2`,
		status.Finalized.String(), olderThan)
	if err != nil {
		return 0, fmt.Errorf("can't delete jobs: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
