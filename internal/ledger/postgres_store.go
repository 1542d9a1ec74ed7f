package ledger

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

// PostgresStore persists ledger entries in PostgreSQL. The table is
// insert-only; no update or delete statements exist.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, owner_kind, owner_id, kind, instrument, amount, direction,
    related_kind, related_id, snap_cash, snap_upi, snap_bank, snap_cash_in, snap_cash_out,
    performed_by, notes, created_at`

// Append inserts one immutable ledger entry.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		entry.ID, string(entry.OwnerKind), entry.OwnerID, string(entry.Kind),
		string(entry.Instrument), entry.Amount, string(entry.Direction),
		string(entry.Related.Kind), entry.Related.ID,
		entry.Snapshot.Cash, entry.Snapshot.UPI, entry.Snapshot.Bank,
		entry.Snapshot.CashIn, entry.Snapshot.CashOut,
		entry.PerformedBy, entry.Notes, entry.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Get fetches a ledger entry by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, &errs.NotFoundError{Kind: "ledger entry", ID: id}
	}
	return e, err
}

// ListByOwner returns an owner's entries in insertion order.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerKind OwnerKind, ownerID string, filter Filter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE owner_kind = $1 AND owner_id = $2`
	args := []any{string(ownerKind), ownerID}
	query, args = applyFilter(query, args, filter)
	rows, err := s.db.Query(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByRelated returns the entries produced by one entity's settlements.
func (s *PostgresStore) ListByRelated(ctx context.Context, related Related) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
        WHERE related_kind = $1 AND related_id = $2 ORDER BY created_at, id`,
		string(related.Kind), related.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// All returns every entry passing the filter in insertion order.
func (s *PostgresStore) All(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE 1=1`
	var args []any
	query, args = applyFilter(query, args, filter)
	rows, err := s.db.Query(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func applyFilter(query string, args []any, filter Filter) (string, []any) {
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		args = append(args, kinds)
		query += fmt.Sprintf(" AND kind = ANY($%d)", len(args))
	}
	return query, args
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var ownerKind, kind, instrument, direction, relatedKind string
	var createdAt time.Time
	if err := row.Scan(&e.ID, &ownerKind, &e.OwnerID, &kind, &instrument, &e.Amount, &direction,
		&relatedKind, &e.Related.ID, &e.Snapshot.Cash, &e.Snapshot.UPI, &e.Snapshot.Bank,
		&e.Snapshot.CashIn, &e.Snapshot.CashOut, &e.PerformedBy, &e.Notes, &createdAt); err != nil {
		return Entry{}, err
	}
	e.OwnerKind = OwnerKind(ownerKind)
	e.Kind = Kind(kind)
	e.Instrument = money.Instrument(instrument)
	e.Direction = money.Direction(direction)
	e.Related.Kind = RelatedKind(relatedKind)
	e.CreatedAt = createdAt.UTC()
	return e, nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
