package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists quote requests.
type Store interface {
	Create(ctx context.Context, q *Quote) error
	GetByReference(ctx context.Context, reference string) (*Quote, error)
	List(ctx context.Context, limit int) ([]Quote, error)
}

// Querier is the subset of pgxpool.Pool the postgres store needs. It lets
// tests substitute a transaction for the pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores quotes in the quote_requests table:
//
//	CREATE TABLE quote_requests (
//	    id               BIGSERIAL PRIMARY KEY,
//	    reference_number TEXT NOT NULL UNIQUE,
//	    name             TEXT NOT NULL,
//	    email            TEXT NOT NULL,
//	    phone            TEXT NOT NULL,
//	    company          TEXT NOT NULL DEFAULT '',
//	    commodity_type   TEXT NOT NULL,
//	    quantity         TEXT NOT NULL,
//	    unit             TEXT NOT NULL,
//	    delivery_timeline TEXT NOT NULL,
//	    notes            TEXT NOT NULL DEFAULT '',
//	    status           TEXT NOT NULL DEFAULT 'new',
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool Querier
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, q *Quote) error {
	const sql = `
		INSERT INTO quote_requests
			(reference_number, name, email, phone, company, commodity_type,
			 quantity, unit, delivery_timeline, notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := s.pool.QueryRow(ctx, sql,
		q.ReferenceNumber, q.Name, q.Email, q.Phone, q.Company, q.CommodityType,
		q.Quantity, q.Unit, q.DeliveryTimeline, q.Notes, q.Status, q.CreatedAt,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("inserting quote request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByReference(ctx context.Context, reference string) (*Quote, error) {
	const sql = `
		SELECT id, reference_number, name, email, phone, company, commodity_type,
		       quantity, unit, delivery_timeline, notes, status, created_at
		FROM quote_requests
		WHERE reference_number = $1`

	var q Quote
	err := s.pool.QueryRow(ctx, sql, reference).Scan(
		&q.ID, &q.ReferenceNumber, &q.Name, &q.Email, &q.Phone, &q.Company,
		&q.CommodityType, &q.Quantity, &q.Unit, &q.DeliveryTimeline, &q.Notes,
		&q.Status, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading quote request %q: %w", reference, err)
	}
	return &q, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Quote, error) {
	const sql = `
		SELECT id, reference_number, name, email, phone, company, commodity_type,
		       quantity, unit, delivery_timeline, notes, status, created_at
		FROM quote_requests
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("listing quote requests: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(
			&q.ID, &q.ReferenceNumber, &q.Name, &q.Email, &q.Phone, &q.Company,
			&q.CommodityType, &q.Quantity, &q.Unit, &q.DeliveryTimeline, &q.Notes,
			&q.Status, &q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning quote request: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// MemoryStore keeps quotes in memory. Used in tests and when no database is
// configured for local development.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	quotes []Quote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Create(_ context.Context, q *Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.nextID
	s.nextID++
	s.quotes = append(s.quotes, *q)
	return nil
}

func (s *MemoryStore) GetByReference(_ context.Context, reference string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.quotes {
		if s.quotes[i].ReferenceNumber == reference {
			q := s.quotes[i]
			return &q, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Quote, 0, len(s.quotes))
	for i := len(s.quotes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.quotes[i])
	}
	return out, nil
}
