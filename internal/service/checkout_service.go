// Package service contains the application services that sit between the
// HTTP adapter and the domain/outbound ports.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Checkout-Gate/checkoutgate/internal/domain/catalog"
	"github.com/Checkout-Gate/checkoutgate/internal/domain/transaction"
	"github.com/Checkout-Gate/checkoutgate/internal/port/outbound"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrStoreWrite is returned when the store rejects or cannot complete an
// insert. The message is safe for clients; the underlying store error is
// logged internally and never attached to this sentinel.
var ErrStoreWrite = errors.New("Failed to save transaction")

// CheckoutService implements the transaction intake pipeline:
// validation -> sanitization -> store write, plus catalog lookups for the
// read-only service routes. It holds no request state; all per-request data
// flows through arguments and context.
type CheckoutService struct {
	catalog   *catalog.Catalog
	validator *transaction.Validator
	store     outbound.TransactionStore
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewCheckoutService creates a CheckoutService with the given collaborators.
func NewCheckoutService(cat *catalog.Catalog, store outbound.TransactionStore, logger *slog.Logger) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		catalog:   cat,
		validator: transaction.NewValidator(),
		store:     store,
		logger:    logger,
		tracer:    otel.Tracer("checkoutgate/service"),
	}
}

// Services returns the full static catalog.
func (s *CheckoutService) Services() []catalog.Service {
	return s.catalog.Services()
}

// ValidateService resolves a caller-supplied service name to its canonical
// catalog entry. Matching is exact and case-sensitive; an unknown name
// returns catalog.ErrUnknownService with no price attached.
func (s *CheckoutService) ValidateService(name string) (catalog.Service, error) {
	svc, err := s.catalog.Lookup(name)
	if err != nil {
		s.logger.Debug("service lookup failed", "name", name)
		return catalog.Service{}, err
	}
	return svc, nil
}

// SaveTransaction runs the intake pipeline for one payment transaction.
//
// A record is created if and only if the request passed every validation
// rule and the insert succeeded. On validation failure the returned error is
// a *transaction.ValidationError carrying the itemized field errors and no
// store write occurs. On store failure the returned error is ErrStoreWrite;
// the store-level cause has already been logged and is not propagated.
func (s *CheckoutService) SaveTransaction(ctx context.Context, req *transaction.Request) (*transaction.Record, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.save_transaction")
	defer span.End()

	if err := s.validator.Validate(req); err != nil {
		span.RecordError(err)
		return nil, err
	}

	transaction.Normalize(req)

	rec, err := s.store.Save(ctx, req)
	if err != nil {
		// Detail was logged by the store adapter; clients get the sentinel.
		span.RecordError(err)
		return nil, ErrStoreWrite
	}

	s.logger.Info("transaction saved",
		"transaction_id", rec.TransactionID,
		"amount", rec.Amount,
		"service_type", rec.ServiceType)
	return rec, nil
}
