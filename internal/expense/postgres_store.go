package expense

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

// PostgresStore stores expenses in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds an expense store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const expenseColumns = `id, owner_id, created_by, amount, instrument, category, notes,
    status, approved_by, approved_at, flag_reason, flagged_by, flagged_at,
    response, response_at, created_at, updated_at`

// Create inserts an expense record.
func (s *PostgresStore) Create(ctx context.Context, e Expense) (Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err := s.db.Exec(ctx, `INSERT INTO expenses (`+expenseColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		e.ID, e.OwnerID, e.CreatedBy, e.Amount, string(e.Instrument), e.Category, e.Notes,
		string(e.Status), e.ApprovedBy, nullTime(e.ApprovedAt), e.FlagReason, e.FlaggedBy, nullTime(e.FlaggedAt),
		e.Response, nullTime(e.ResponseAt), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}

// Get fetches an expense by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Expense, error) {
	row := s.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, &errs.NotFoundError{Kind: "expense", ID: id}
	}
	return e, err
}

// List returns expenses matching the filter in creation order.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	var args []any
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
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

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Transition locks the row, verifies the current status, applies the
// mutation, and writes the new state in one transaction.
func (s *PostgresStore) Transition(ctx context.Context, id string, from []Status, to Status, mutate func(*Expense)) (Expense, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Expense{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, &errs.NotFoundError{Kind: "expense", ID: id}
	}
	if err != nil {
		return Expense{}, err
	}
	if !statusIn(e.Status, from) {
		return Expense{}, &errs.StateConflictError{Kind: "expense", ID: id, From: string(e.Status), To: string(to)}
	}
	if mutate != nil {
		mutate(&e)
	}
	e.Status = to
	e.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE expenses SET status = $2, approved_by = $3, approved_at = $4,
        flag_reason = $5, flagged_by = $6, flagged_at = $7, response = $8, response_at = $9, updated_at = $10
        WHERE id = $1`,
		e.ID, string(e.Status), e.ApprovedBy, nullTime(e.ApprovedAt),
		e.FlagReason, e.FlaggedBy, nullTime(e.FlaggedAt),
		e.Response, nullTime(e.ResponseAt), e.UpdatedAt); err != nil {
		return Expense{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var instrument, status string
	var approvedAt, flaggedAt, responseAt *time.Time
	var createdAt, updatedAt time.Time
	if err := row.Scan(&e.ID, &e.OwnerID, &e.CreatedBy, &e.Amount, &instrument, &e.Category, &e.Notes,
		&status, &e.ApprovedBy, &approvedAt, &e.FlagReason, &e.FlaggedBy, &flaggedAt,
		&e.Response, &responseAt, &createdAt, &updatedAt); err != nil {
		return Expense{}, err
	}
	e.Instrument = money.Instrument(instrument)
	e.Status = Status(status)
	e.ApprovedAt = derefTime(approvedAt)
	e.FlaggedAt = derefTime(flaggedAt)
	e.ResponseAt = derefTime(responseAt)
	e.CreatedAt = createdAt.UTC()
	e.UpdatedAt = updatedAt.UTC()
	return e, nil
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
