package models

// SyncStatus is the per-record result of a reconciliation pass.
type SyncStatus string

const (
	// SyncOutcomeApplied means the sale was committed and stock decremented.
	SyncOutcomeApplied SyncStatus = "applied"
	// SyncOutcomeAlreadySynced means the idempotency key was seen before;
	// the resubmission is a no-op, never a double decrement.
	SyncOutcomeAlreadySynced SyncStatus = "already_synced"
	// SyncOutcomeRejected means the sale could not be applied and remains
	// pending client-side for operator intervention.
	SyncOutcomeRejected SyncStatus = "rejected"
)

// SyncOutcome reports what happened to one queued sale during reconciliation.
type SyncOutcome struct {
	IdempotencyKey string     `json:"idempotencyKey"`
	Status         SyncStatus `json:"status"`
	SaleID         string     `json:"saleId,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}
