package domain

import "time"

// Project mirrors the externally managed charity project record. The core
// reads its funding goal, its custody wallet id and its admin ownership.
type Project struct {
	ID          string
	Name        string
	FundingGoal int64
	WalletID    string
	AdminUserID string
	CreatedAt   time.Time
}

// Milestone is a percentage slice of a project's funding goal. Percentages
// across a project sum to 100.
type Milestone struct {
	ID         string
	ProjectID  string
	Title      string
	Percentage int
	Position   int
	CreatedAt  time.Time
}

// Budget returns the milestone's share of the funding goal in minor units,
// floor division.
func (m Milestone) Budget(fundingGoal int64) int64 {
	return fundingGoal * int64(m.Percentage) / 100
}
