package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/money"
)

// PostgresStore stores collections in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a collection store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const collectionColumns = `id, collector_id, account_id, receiver_id, amount, instrument, notes,
    status, settlement, pair_id, verified_by, verified_at,
    flag_reason, flagged_by, flagged_at, response, response_at, created_at, updated_at`

// Create inserts a collection record.
func (s *PostgresStore) Create(ctx context.Context, c Collection) (Collection, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.Exec(ctx, `INSERT INTO collections (`+collectionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		c.ID, c.CollectorID, c.AccountID, c.ReceiverID, c.Amount, string(c.Instrument), c.Notes,
		string(c.Status), c.Settlement, c.PairID, c.VerifiedBy, nullTime(c.VerifiedAt),
		c.FlagReason, c.FlaggedBy, nullTime(c.FlaggedAt), c.Response, nullTime(c.ResponseAt),
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return Collection{}, err
	}
	return c, nil
}

// Get fetches a collection by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Collection, error) {
	row := s.db.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id)
	c, err := scanCollection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collection{}, &errs.NotFoundError{Kind: "collection", ID: id}
	}
	return c, err
}

// List returns collections matching the filter in creation order.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE 1=1`
	var args []any
	if filter.CollectorID != "" {
		args = append(args, filter.CollectorID)
		query += fmt.Sprintf(" AND collector_id = $%d", len(args))
	}
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		query += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.Settlement != nil {
		args = append(args, *filter.Settlement)
		query += fmt.Sprintf(" AND settlement = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	rows, err := s.db.Query(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindSettlement returns the settlement leg paired with a visible entry.
func (s *PostgresStore) FindSettlement(ctx context.Context, pairID string) (Collection, error) {
	row := s.db.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections
        WHERE settlement AND pair_id = $1`, pairID)
	c, err := scanCollection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collection{}, &errs.NotFoundError{Kind: "collection settlement", ID: pairID}
	}
	return c, err
}

// Transition locks the row, verifies the current status, applies the
// mutation, and writes the new state in one transaction.
func (s *PostgresStore) Transition(ctx context.Context, id string, from []Status, to Status, mutate func(*Collection)) (Collection, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Collection{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCollection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collection{}, &errs.NotFoundError{Kind: "collection", ID: id}
	}
	if err != nil {
		return Collection{}, err
	}
	if !statusIn(c.Status, from) {
		return Collection{}, &errs.StateConflictError{Kind: "collection", ID: id, From: string(c.Status), To: string(to)}
	}
	if mutate != nil {
		mutate(&c)
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE collections SET status = $2, receiver_id = $3, verified_by = $4, verified_at = $5,
        flag_reason = $6, flagged_by = $7, flagged_at = $8, response = $9, response_at = $10, updated_at = $11
        WHERE id = $1`,
		c.ID, string(c.Status), c.ReceiverID, c.VerifiedBy, nullTime(c.VerifiedAt),
		c.FlagReason, c.FlaggedBy, nullTime(c.FlaggedAt),
		c.Response, nullTime(c.ResponseAt), c.UpdatedAt); err != nil {
		return Collection{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Collection{}, err
	}
	return c, nil
}

func scanCollection(row pgx.Row) (Collection, error) {
	var c Collection
	var instrument, status string
	var verifiedAt, flaggedAt, responseAt *time.Time
	var createdAt, updatedAt time.Time
	if err := row.Scan(&c.ID, &c.CollectorID, &c.AccountID, &c.ReceiverID, &c.Amount, &instrument, &c.Notes,
		&status, &c.Settlement, &c.PairID, &c.VerifiedBy, &verifiedAt,
		&c.FlagReason, &c.FlaggedBy, &flaggedAt, &c.Response, &responseAt,
		&createdAt, &updatedAt); err != nil {
		return Collection{}, err
	}
	c.Instrument = money.Instrument(instrument)
	c.Status = Status(status)
	c.VerifiedAt = derefTime(verifiedAt)
	c.FlaggedAt = derefTime(flaggedAt)
	c.ResponseAt = derefTime(responseAt)
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = updatedAt.UTC()
	return c, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
