// Package sqlite implements the TransactionStore port on a SQLite database
// via database/sql and the modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Checkout-Gate/checkoutgate/internal/domain/transaction"
	"github.com/Checkout-Gate/checkoutgate/internal/port/outbound"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// schema is the append-only transaction table. transaction_id carries a
// UNIQUE constraint: duplicate submissions (e.g. a client retry after a
// timeout) are rejected at the store rather than silently double-recorded.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id TEXT NOT NULL UNIQUE,
	payer_name     TEXT NOT NULL,
	payer_email    TEXT NOT NULL,
	amount         TEXT NOT NULL,
	currency       TEXT NOT NULL DEFAULT '',
	payment_status TEXT NOT NULL DEFAULT '',
	service_type   TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL
);`

const insertQuery = `
INSERT INTO transactions (transaction_id, payer_name, payer_email, amount,
                          currency, payment_status, service_type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

// Store implements outbound.TransactionStore on SQLite.
// The database/sql pool bounds concurrent store connections; acquiring a
// connection may block the calling goroutine until one is free, up to the
// configured write timeout.
type Store struct {
	db           *sql.DB
	writeTimeout time.Duration
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option is a functional option for configuring the Store.
type Option func(*Store)

// WithMaxConns bounds the connection pool. Default is 5.
func WithMaxConns(n int) Option {
	return func(s *Store) {
		s.db.SetMaxOpenConns(n)
		s.db.SetMaxIdleConns(n)
	}
}

// WithWriteTimeout bounds how long a single insert may wait for a pooled
// connection plus execution. Default is 5 seconds. A write that cannot
// complete within the bound fails instead of queuing without limit.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.writeTimeout = d
	}
}

// WithLogger sets the logger for internal store error detail.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects to the SQLite database at dsn, applies connection pragmas,
// and bootstraps the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Store{
		db:           db,
		writeTimeout: 5 * time.Second,
		logger:       slog.Default(),
		tracer:       otel.Tracer("checkoutgate/store"),
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)

	for _, opt := range opts {
		opt(s)
	}

	// WAL allows a writer to proceed alongside readers; busy_timeout makes
	// a second concurrent writer wait instead of failing immediately.
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create transactions table: %w", err)
	}

	return s, nil
}

// Save inserts the seven request fields into the transaction table and
// returns the full inserted row with the store-assigned id and timestamp.
// The insert is a single statement: it either commits whole or not at all,
// so no partial record can exist.
func (s *Store) Save(ctx context.Context, req *transaction.Request) (*transaction.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "store.save",
		trace.WithAttributes(attribute.String("transaction.id", req.TransactionID)))
	defer span.End()

	rec := &transaction.Record{
		TransactionID: req.TransactionID,
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentStatus: req.PaymentStatus,
		ServiceType:   req.ServiceType,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.db.QueryRowContext(ctx, insertQuery,
		rec.TransactionID, rec.PayerName, rec.PayerEmail, rec.Amount,
		rec.Currency, rec.PaymentStatus, rec.ServiceType, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		span.RecordError(err)
		// Detail stays in the internal log; callers surface a generic message.
		s.logger.Error("transaction insert failed",
			"transaction_id", req.TransactionID,
			"error", err)
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	return rec, nil
}

// Ping verifies store connectivity, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of stored transaction records.
// Useful for tests and monitoring.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

// Compile-time interface verification.
var _ outbound.TransactionStore = (*Store)(nil)
