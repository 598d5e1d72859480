// Package transaction provides the transaction intake domain types and
// validation logic. It gates the /save-transaction route: a payload must pass
// every field rule here before the store gateway is allowed to write.
package transaction

import "time"

// Request is the transient, client-supplied form of a payment transaction.
// It exists only for the duration of one request. Amount is carried as a
// string because the gateway callback delivers it as formatted text; the
// numeric rule is enforced by Validate, not by the JSON decoder.
type Request struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	PayerName     string `json:"payer_name" validate:"required"`
	PayerEmail    string `json:"payer_email" validate:"required,email"`
	Amount        string `json:"amount" validate:"required,numeric"`
	Currency      string `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentStatus string `json:"payment_status,omitempty"`
	ServiceType   string `json:"service_type,omitempty"`
}

// Record is the persisted form of a Request: the seven request fields plus
// the store-assigned identity and timestamp. Records are append-only; nothing
// in this system updates or deletes them after creation.
type Record struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	PayerName     string    `json:"payer_name"`
	PayerEmail    string    `json:"payer_email"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	ServiceType   string    `json:"service_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
