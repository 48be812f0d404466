package domain

import "time"

// PoolStatus is derived from the pool row and the clock, never stored.
type PoolStatus string

const (
	PoolScheduled   PoolStatus = "scheduled"
	PoolActive      PoolStatus = "active"
	PoolEnded       PoolStatus = "ended"
	PoolDistributed PoolStatus = "distributed"
)

// Pool is a sponsor-funded matching pool with a fixed donation window.
// TotalFunds only grows, and only before the pool ends.
type Pool struct {
	ID            string
	Name          string
	SponsorID     string
	TotalFunds    int64
	StartTime     time.Time
	EndTime       time.Time
	EndedEarly    bool
	Distributed   bool
	DistributedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatusAt derives the lifecycle status at the given instant.
func (p Pool) StatusAt(now time.Time) PoolStatus {
	switch {
	case p.Distributed:
		return PoolDistributed
	case p.EndedEarly || !now.Before(p.EndTime):
		return PoolEnded
	case now.Before(p.StartTime):
		return PoolScheduled
	default:
		return PoolActive
	}
}

// AcceptsDonationsAt reports whether a donation may be recorded now.
func (p Pool) AcceptsDonationsAt(now time.Time) bool {
	return p.StatusAt(now) == PoolActive
}

// AcceptsFundingAt reports whether the sponsor may still top up the pool.
// Funding closes when the donation window does.
func (p Pool) AcceptsFundingAt(now time.Time) bool {
	s := p.StatusAt(now)
	return s == PoolScheduled || s == PoolActive
}

// ReadyForDistributionAt reports whether the allocation engine may run.
func (p Pool) ReadyForDistributionAt(now time.Time) bool {
	return p.StatusAt(now) == PoolEnded
}

// Allocation is a pool's matched payout to one project, written exactly once
// during distribution.
type Allocation struct {
	PoolID    string
	ProjectID string
	Amount    int64
	CreatedAt time.Time
}

// CountryDonations is a per-country slice of a pool's donation activity,
// attributed from the donor's resolved country at record time.
type CountryDonations struct {
	Country string
	Count   int
	Total   int64
}

// PoolSummary is the read-only pool projection.
type PoolSummary struct {
	ID               string
	Name             string
	Status           PoolStatus
	TotalFunds       int64
	ProjectCount     int
	ContributorCount int
	RawTotal         int64
	EligibleTotal    int64
	Distributed      bool
	Unallocated      *int64
	Countries        []CountryDonations
}
