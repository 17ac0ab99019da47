package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a request that was rejected before reaching the
// store, such as a mutation carrying no effective changes.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// ErrNoChanges is returned when an update document carries no effective
// changes.
var ErrNoChanges = &ValidationError{Reason: "update document carries no effective changes"}

// StoreOperationError wraps a store-level failure that is not attributable to
// identifiable per-item causes.
type StoreOperationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreOperationError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying store error for errors.Is/As.
func (e *StoreOperationError) Unwrap() error {
	return e.Err
}

// BulkItemError is one failed item inside a bulk write.
type BulkItemError struct {
	Index int
	ID    string
	Err   error
}

// BulkWriteError reports a bulk write where a subset of items failed. When
// every failed item carries an identifiable id, callers may recover the
// successful subset; otherwise the error aborts the whole call.
type BulkWriteError struct {
	Items []BulkItemError
}

// Error implements the error interface.
func (e *BulkWriteError) Error() string {
	ids := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		if it.ID != "" {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) > 0 {
		return fmt.Sprintf("bulk write: %d item(s) failed: %s", len(e.Items), strings.Join(ids, ", "))
	}
	return fmt.Sprintf("bulk write: %d item(s) failed", len(e.Items))
}

// Identifiable reports whether every failed item carries an id, i.e. whether
// the failure can be recovered from by dropping only the failed items.
func (e *BulkWriteError) Identifiable() bool {
	if len(e.Items) == 0 {
		return false
	}
	for _, it := range e.Items {
		if it.ID == "" {
			return false
		}
	}
	return true
}

// FailedIDs returns the ids of the failed items, skipping blanks.
func (e *BulkWriteError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		if it.ID != "" {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// AsBulkWriteError unwraps err into a BulkWriteError when possible.
func AsBulkWriteError(err error) (*BulkWriteError, bool) {
	var bwe *BulkWriteError
	if errors.As(err, &bwe) {
		return bwe, true
	}
	return nil, false
}
