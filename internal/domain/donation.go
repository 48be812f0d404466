package domain

import "time"

// Donation is an immutable ledger entry. Amounts are minor units and always
// positive. Eligible marks donations from identity-verified donors; only
// those feed the matching computation.
type Donation struct {
	ID           string
	PoolID       string
	ProjectID    string
	DonorID      string
	Amount       int64
	Eligible     bool
	DonorCountry *string
	CreatedAt    time.Time
}

// Aggregate is the incrementally maintained per-pool-per-project rollup the
// allocation engine reads. It is updated in the same transaction as the
// donation insert, never recomputed by scanning the ledger.
type Aggregate struct {
	PoolID           string
	ProjectID        string
	RawTotal         int64
	EligibleTotal    int64
	ContributorCount int
	UpdatedAt        time.Time
}
