package domain

// All role and ownership rules live here so every surface evaluates the same
// policy. Handlers and services call these instead of comparing roles inline.

// CanManagePool reports whether u may fund, register projects into, end, or
// distribute the pool. The sponsor owns the pool; platform operators may act
// on any pool.
func CanManagePool(u User, p Pool) bool {
	return u.Role == RolePlatform || u.ID == p.SponsorID
}

// CanCreatePool reports whether u may open a new matching pool.
func CanCreatePool(u User) bool {
	return u.Role == RolePlatform || u.Role == RoleOwner
}

// CanDonate reports whether u may record a donation. Any authenticated user
// may donate; eligibility for matching is a separate property of the donor's
// verification state.
func CanDonate(u User) bool {
	return u.ID != ""
}

// CanProposeFor reports whether u may raise withdrawal proposals for the
// project.
func CanProposeFor(u User, pr Project) bool {
	return u.Role == RoleCharityAdmin && u.ID == pr.AdminUserID
}

// CanVoteOn reports whether u may cast an advisory vote. The proposal's own
// charity admin is excluded.
func CanVoteOn(u User, p Proposal, projectAdminID string) bool {
	return u.ID != "" && u.ID != projectAdminID
}

// CanDecide reports whether u may approve or reject proposals.
func CanDecide(u User) bool {
	return u.Role == RolePlatform
}

// CanExecute reports whether u may trigger proposal payouts.
func CanExecute(u User) bool {
	return u.Role == RolePlatform
}
