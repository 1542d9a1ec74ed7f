package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/money"
)

// PostgresStore stores pooled accounts in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds an account store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, mode_name, instrument, auto_pay, receiver_user_id,
    show_in_collection, show_in_expense, show_in_transfer, active,
    cash_balance, upi_balance, bank_balance, cash_in, cash_out, created_at, updated_at`

// Create inserts an account record. A duplicate mode name surfaces as a
// validation error.
func (s *PostgresStore) Create(ctx context.Context, acct Account) (Account, error) {
	if acct.ModeName == "" {
		return Account{}, &errs.ValidationError{Field: "modeName", Reason: "required"}
	}
	if !acct.Instrument.Valid() {
		return Account{}, &errs.ValidationError{Field: "instrument", Reason: "unknown instrument"}
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now
	}
	acct.UpdatedAt = now

	_, err := s.db.Exec(ctx, `INSERT INTO accounts
        (id, mode_name, instrument, auto_pay, receiver_user_id,
         show_in_collection, show_in_expense, show_in_transfer, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		acct.ID, acct.ModeName, string(acct.Instrument), acct.AutoPay, acct.ReceiverUserID,
		acct.ShowInCollection, acct.ShowInExpense, acct.ShowInTransfer, acct.Active,
		acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, &errs.ValidationError{Field: "modeName", Reason: "already in use"}
		}
		return Account{}, err
	}
	return acct, nil
}

// Get fetches an account by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: id}
	}
	return acct, err
}

// GetByName fetches an account by its unique mode name.
func (s *PostgresStore) GetByName(ctx context.Context, modeName string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE mode_name = $1`, modeName)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: modeName}
	}
	return acct, err
}

// List returns all accounts in creation order.
func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// SetActive toggles the account's active flag.
func (s *PostgresStore) SetActive(ctx context.Context, id string, active bool) (Account, error) {
	row := s.db.QueryRow(ctx, `UPDATE accounts SET active = $2, updated_at = $3
        WHERE id = $1 RETURNING `+accountColumns, id, active, time.Now().UTC())
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: id}
	}
	return acct, err
}

// ApplyDelta mutates the account with a single conditional UPDATE.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id string, delta money.Delta) (Account, error) {
	var column string
	switch delta.Instrument {
	case money.Cash:
		column = "cash_balance"
	case money.UPI:
		column = "upi_balance"
	case money.Bank:
		column = "bank_balance"
	default:
		return Account{}, &errs.ValidationError{Field: "instrument", Reason: fmt.Sprintf("unknown instrument %q", delta.Instrument)}
	}

	query := fmt.Sprintf(`UPDATE accounts
        SET %[1]s = %[1]s + $2,
            cash_in = GREATEST(cash_in + $3, 0),
            cash_out = GREATEST(cash_out + $4, 0),
            updated_at = $5
        WHERE id = $1 AND %[1]s + $2 >= 0
        RETURNING `+accountColumns, column)

	row := s.db.QueryRow(ctx, query, id, delta.Amount, delta.CashIn, delta.CashOut, time.Now().UTC())
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Account{}, getErr
		}
		return Account{}, errs.ErrInsufficientFunds
	}
	return acct, err
}

// First returns the earliest-created active collection-visible account.
func (s *PostgresStore) First(ctx context.Context) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE active AND show_in_collection ORDER BY created_at, id LIMIT 1`)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: "disbursement source"}
	}
	return acct, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	var instrument string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&acct.ID, &acct.ModeName, &instrument, &acct.AutoPay, &acct.ReceiverUserID,
		&acct.ShowInCollection, &acct.ShowInExpense, &acct.ShowInTransfer, &acct.Active,
		&acct.Balances.Cash, &acct.Balances.UPI, &acct.Balances.Bank,
		&acct.Balances.CashIn, &acct.Balances.CashOut, &createdAt, &updatedAt); err != nil {
		return Account{}, err
	}
	acct.Instrument = money.Instrument(instrument)
	acct.CreatedAt = createdAt.UTC()
	acct.UpdatedAt = updatedAt.UTC()
	return acct, nil
}

func scanAccounts(rows pgx.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}
