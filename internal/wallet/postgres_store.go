package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/money"
)

// PostgresStore stores wallets in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a wallet store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const walletColumns = `user_id, cash_balance, upi_balance, bank_balance, cash_in, cash_out, created_at, updated_at`

func balanceColumn(instrument money.Instrument) (string, error) {
	switch instrument {
	case money.Cash:
		return "cash_balance", nil
	case money.UPI:
		return "upi_balance", nil
	case money.Bank:
		return "bank_balance", nil
	default:
		return "", &errs.ValidationError{Field: "instrument", Reason: fmt.Sprintf("unknown instrument %q", instrument)}
	}
}

// GetOrCreate returns the wallet, inserting an empty record on first access.
func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (Wallet, error) {
	now := time.Now().UTC()
	if _, err := s.db.Exec(ctx, `INSERT INTO wallets (user_id, created_at, updated_at)
        VALUES ($1, $2, $2) ON CONFLICT (user_id) DO NOTHING`, userID, now); err != nil {
		return Wallet{}, err
	}
	return s.Get(ctx, userID)
}

// Get fetches a wallet by user identifier.
func (s *PostgresStore) Get(ctx context.Context, userID string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, &errs.NotFoundError{Kind: "wallet", ID: userID}
	}
	return w, err
}

// ApplyDelta mutates the wallet with a single conditional UPDATE so the
// non-negative guard and the write are one atomic statement.
func (s *PostgresStore) ApplyDelta(ctx context.Context, userID string, delta money.Delta) (Wallet, error) {
	column, err := balanceColumn(delta.Instrument)
	if err != nil {
		return Wallet{}, err
	}
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return Wallet{}, err
	}

	query := fmt.Sprintf(`UPDATE wallets
        SET %[1]s = %[1]s + $2,
            cash_in = GREATEST(cash_in + $3, 0),
            cash_out = GREATEST(cash_out + $4, 0),
            updated_at = $5
        WHERE user_id = $1 AND %[1]s + $2 >= 0
        RETURNING `+walletColumns, column)

	row := s.db.QueryRow(ctx, query, userID, delta.Amount, delta.CashIn, delta.CashOut, time.Now().UTC())
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, errs.ErrInsufficientFunds
	}
	return w, err
}

// List returns wallets for the given users.
func (s *PostgresStore) List(ctx context.Context, userIDs []string) ([]Wallet, error) {
	rows, err := s.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = ANY($1) ORDER BY user_id`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWallets(rows)
}

// All returns every wallet.
func (s *PostgresStore) All(ctx context.Context) ([]Wallet, error) {
	rows, err := s.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWallets(rows)
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var createdAt, updatedAt time.Time
	if err := row.Scan(&w.UserID, &w.Balances.Cash, &w.Balances.UPI, &w.Balances.Bank,
		&w.Balances.CashIn, &w.Balances.CashOut, &createdAt, &updatedAt); err != nil {
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func scanWallets(rows pgx.Rows) ([]Wallet, error) {
	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}
