package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/database"
	"github.com/safar/fish-segments/internal/models"
)

// Postgres is the durable Store. Commits run at READ COMMITTED with the
// requested segment rows locked FOR UPDATE; a competing committer blocks on
// the lock and then re-reads the row as sold.
type Postgres struct {
	db         *sql.DB
	maxRetries int
}

var _ allocation.Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB, maxRetries int) *Postgres {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Postgres{db: db, maxRetries: maxRetries}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(tx allocation.Tx) error) error {
	opts := database.DefaultTxOptions()
	opts.MaxRetries = p.maxRetries

	return database.WithRetry(ctx, p.db, opts, func(tx *sql.Tx) error {
		return fn(&postgresTx{tx: tx})
	})
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) LockSegments(ctx context.Context, ids []int64, fishID int64) ([]models.Segment, error) {
	return querySegments(ctx, t.tx, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE id = ANY($1) AND fish_id = $2 AND is_available
		ORDER BY id
		FOR UPDATE`,
		pq.Array(ids), fishID)
}

func (t *postgresTx) InsertOrder(ctx context.Context, o *models.Order) error {
	return insertOrder(ctx, t.tx, o)
}

func (t *postgresTx) MarkSegmentsSold(ctx context.Context, ids []int64, fishID int64) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE segments
		 SET is_available = FALSE,
		     reserved_until = NULL,
		     updated_at = NOW()
		 WHERE id = ANY($1)
		   AND fish_id = $2
		   AND is_available`,
		pq.Array(ids), fishID)
	if err != nil {
		return 0, fmt.Errorf("mark segments sold: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
