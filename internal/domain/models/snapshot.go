package models

import "time"

// Snapshot is a read-only view of current stock plus sales inside a bounded
// trailing window, consumed by the restock advisor and the daily report.
type Snapshot struct {
	Batches    []Batch      `json:"batches"`
	Sales      []SaleRecord `json:"sales"`
	WindowDays int          `json:"windowDays"`
	TakenAt    time.Time    `json:"takenAt"`
}
