package transfer

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

// PostgresStore stores transfers in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a transfer store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const transferColumns = `id, sender_id, receiver_id, initiated_by, amount, instrument, notes,
    status, approved_by, approved_at, flag_reason, flagged_by, flagged_at,
    response, response_at, auto_pay, system_generated, created_at, updated_at`

// Create inserts a transfer record.
func (s *PostgresStore) Create(ctx context.Context, t Transfer) (Transfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := s.db.Exec(ctx, `INSERT INTO transfers (`+transferColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		t.ID, t.SenderID, t.ReceiverID, t.InitiatedBy, t.Amount, string(t.Instrument), t.Notes,
		string(t.Status), t.ApprovedBy, nullTime(t.ApprovedAt), t.FlagReason, t.FlaggedBy, nullTime(t.FlaggedAt),
		t.Response, nullTime(t.ResponseAt), t.AutoPay, t.SystemGenerated, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Transfer{}, err
	}
	return t, nil
}

// Get fetches a transfer by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Transfer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transfer{}, &errs.NotFoundError{Kind: "transfer", ID: id}
	}
	return t, err
}

// List returns transfers matching the filter in creation order.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE 1=1`
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND (sender_id = $%[1]d OR receiver_id = $%[1]d)", len(args))
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

	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Transition locks the row, verifies the current status, applies the
// mutation, and writes the new state in one transaction.
func (s *PostgresStore) Transition(ctx context.Context, id string, from []Status, to Status, mutate func(*Transfer)) (Transfer, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transfer{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transfer{}, &errs.NotFoundError{Kind: "transfer", ID: id}
	}
	if err != nil {
		return Transfer{}, err
	}
	if !statusIn(t.Status, from) {
		return Transfer{}, &errs.StateConflictError{Kind: "transfer", ID: id, From: string(t.Status), To: string(to)}
	}
	if mutate != nil {
		mutate(&t)
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE transfers SET status = $2, approved_by = $3, approved_at = $4,
        flag_reason = $5, flagged_by = $6, flagged_at = $7, response = $8, response_at = $9, updated_at = $10
        WHERE id = $1`,
		t.ID, string(t.Status), t.ApprovedBy, nullTime(t.ApprovedAt),
		t.FlagReason, t.FlaggedBy, nullTime(t.FlaggedAt),
		t.Response, nullTime(t.ResponseAt), t.UpdatedAt); err != nil {
		return Transfer{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transfer{}, err
	}
	return t, nil
}

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	var instrument, status string
	var approvedAt, flaggedAt, responseAt *time.Time
	var createdAt, updatedAt time.Time
	if err := row.Scan(&t.ID, &t.SenderID, &t.ReceiverID, &t.InitiatedBy, &t.Amount, &instrument, &t.Notes,
		&status, &t.ApprovedBy, &approvedAt, &t.FlagReason, &t.FlaggedBy, &flaggedAt,
		&t.Response, &responseAt, &t.AutoPay, &t.SystemGenerated, &createdAt, &updatedAt); err != nil {
		return Transfer{}, err
	}
	t.Instrument = money.Instrument(instrument)
	t.Status = Status(status)
	t.ApprovedAt = derefTime(approvedAt)
	t.FlaggedAt = derefTime(flaggedAt)
	t.ResponseAt = derefTime(responseAt)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
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
