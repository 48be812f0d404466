package domain

import "time"

// Role enumerates the platform roles. Authorization rules are evaluated
// centrally in authz.go, never inline in handlers.
type Role string

const (
	RoleOwner        Role = "owner"
	RolePlatform     Role = "platform"
	RoleCharityAdmin Role = "charity_admin"
	RoleDonor        Role = "donor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RolePlatform, RoleCharityAdmin, RoleDonor:
		return true
	}
	return false
}

// User mirrors the externally managed identity record. Registration and
// identity verification happen outside the core; this row carries the role
// and the verification flag the core reads.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	Verified    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EligibleDonor reports whether donations from this user count toward
// matching. Only identity-verified donors are eligible.
func (u User) EligibleDonor() bool {
	return u.Verified
}
