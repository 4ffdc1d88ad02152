package models

import "fmt"

// BatchNotFoundError is returned when a sale references a batch that does
// not exist. Not retriable without client correction.
type BatchNotFoundError struct {
	BatchID string
}

func (e *BatchNotFoundError) Error() string {
	return fmt.Sprintf("batch not found: %s", e.BatchID)
}

// InsufficientStockError is returned when a decrement would take a batch
// quantity below zero. Carries the shortfall so the caller can adjust or
// cancel the sale.
type InsufficientStockError struct {
	BatchID   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for batch %s: requested %d, available %d",
		e.BatchID, e.Requested, e.Available)
}
