package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrConcurrentModification = errors.New("concurrent inventory modification")
	ErrInventoryUnavailable   = errors.New("inventory unavailable")
	ErrIllegalState           = errors.New("illegal state")
	ErrSkuNotFound            = errors.New("sku not found")
	ErrOrderItemNotFound      = errors.New("order item not found")
	ErrLocationNotFound       = errors.New("fulfillment location not found")
)

func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InventoryUnavailableError reports skus that could not be satisfied.
// Available maps sku id to the quantity that was in stock; Applied holds the
// entries of the same call that were committed anyway.
type InventoryUnavailableError struct {
	Message   string
	Available map[int64]int
	Applied   SkuQuantities
}

func (e *InventoryUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("inventory is unavailable for %d skus", len(e.Available))
}

func (e *InventoryUnavailableError) Is(target error) bool {
	return target == ErrInventoryUnavailable
}

// ConcurrentModificationError is returned by batch mutations when one or more
// skus lost a version race. Applied holds the entries that were committed.
type ConcurrentModificationError struct {
	SkuIDs  []int64
	Applied SkuQuantities
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s: %d skus changed concurrently", ErrConcurrentModification, len(e.SkuIDs))
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIllegalState, e.Message)
}

func (e *IllegalStateError) Is(target error) bool {
	return target == ErrIllegalState
}

// BatchError is returned when a batch mutation stops on an unexpected
// error. Applied holds the entries committed before it stopped.
type BatchError struct {
	Err     error
	Applied SkuQuantities
}

func (e *BatchError) Error() string {
	return e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// AppliedOf returns what a failed batch mutation committed before failing.
func AppliedOf(err error) SkuQuantities {
	var batch *BatchError
	if errors.As(err, &batch) {
		return batch.Applied
	}
	var unavailable *InventoryUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Applied
	}
	var conflict *ConcurrentModificationError
	if errors.As(err, &conflict) {
		return conflict.Applied
	}
	return nil
}
