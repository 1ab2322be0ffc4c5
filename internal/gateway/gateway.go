// Package gateway defines the narrow payment-gateway surface the core depends
// on. One provider, fixed capability set: create/capture/cancel/refund payment
// holds. Implementations surface failures as the typed errors below, never as
// provider-specific payloads.
package gateway

import (
	"context"
	"errors"
)

type HoldStatus string

const (
	HoldRequiresCapture HoldStatus = "requires_capture"
	HoldCaptured        HoldStatus = "captured"
	HoldCanceled        HoldStatus = "canceled"
	HoldRefunded        HoldStatus = "refunded"
)

// Hold is an authorized-but-not-necessarily-captured payment reservation.
type Hold struct {
	ID          string     `json:"id"`
	Status      HoldStatus `json:"status"`
	AmountCents int64      `json:"amountCents"`
	CustomerRef string     `json:"customerRef"`
}

var (
	// ErrDeclined means the provider rejected the charge; retrying the same
	// request will not succeed without user action.
	ErrDeclined = errors.New("payment declined")

	// ErrHoldNotFound means the hold id is unknown to the provider.
	ErrHoldNotFound = errors.New("payment hold not found")

	// ErrUnavailable means the provider could not be reached or answered with
	// a server error; the operation is retryable.
	ErrUnavailable = errors.New("payment gateway unavailable")
)

type PaymentGateway interface {
	CreateHold(ctx context.Context, amountCents int64, customerRef string) (*Hold, error)
	CaptureHold(ctx context.Context, holdID string) (*Hold, error)
	CancelHold(ctx context.Context, holdID string) (*Hold, error)
	Refund(ctx context.Context, holdID string) (*Hold, error)
	RetrieveHold(ctx context.Context, holdID string) (*Hold, error)
}
