// Package outbound defines the outbound ports of the application core.
package outbound

import (
	"context"

	"github.com/Checkout-Gate/checkoutgate/internal/domain/transaction"
)

// TransactionStore mediates all durable writes to the relational backing
// store. Implementations persist a validated transaction exactly once per
// call and return the stored row including store-assigned fields.
//
// A failed insert must not leave a partial record: a record exists if and
// only if the insert succeeded. Store-level error detail (connectivity,
// constraint violations, timeouts) is for the internal log sink only and
// must never be surfaced to clients.
type TransactionStore interface {
	// Save inserts the request into the append-only transaction table and
	// returns the full inserted row.
	Save(ctx context.Context, req *transaction.Request) (*transaction.Record, error)

	// Ping verifies store connectivity, for health checks.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}
