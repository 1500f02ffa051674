package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrFreeProduct     = errors.New("product is free")
	ErrAlreadyOwned    = errors.New("product already owned")
)

// PaymentFailedError: the provider answered the capture call but the order is
// not in a terminal-success state. Retrying is pointless.
type PaymentFailedError struct {
	ProviderStatus string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment not completed, provider status %q", e.ProviderStatus)
}

// UntrackedCaptureError: the provider claims the order was already captured
// but no local purchase record exists under any user. Funds may have moved
// without a record; this must reach operators, never be shown as success.
type UntrackedCaptureError struct {
	ProviderOrderID string
}

func (e *UntrackedCaptureError) Error() string {
	return fmt.Sprintf("order %s captured on provider but has no local purchase record", e.ProviderOrderID)
}

// PersistenceError: a local datastore operation failed for a reason other
// than the expected uniqueness race. Callers may retry the capture.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
