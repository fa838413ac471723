package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner removes all records related to one job
type Cleaner struct {
	pool *pgxpool.Pool
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	res := &Cleaner{pool: pool}
	return res, nil
}

// Clean deletes the job and its learning entries
func (db *Cleaner) Clean(ctx context.Context, id string) error {
	cmd, err := db.pool.Exec(ctx, `DELETE FROM learning_entries WHERE job_id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete learning_entries(%s): %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Str("table", "learning_entries").Int64("rows", cmd.RowsAffected()).Msg("deleted")
	cmd, err = db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete %s: %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Str("table", "jobs").Int64("rows", cmd.RowsAffected()).Msg("deleted")
	return nil
}
