package models

// Principal is the authenticated caller of a request, decoded once from the
// bearer token and passed explicitly to services.
type Principal struct {
	Subject       string
	Role          Role
	Authenticated bool
}

// Unauthenticated is the principal of requests without a valid token.
var Unauthenticated = Principal{}

// NewPrincipal builds an authenticated principal.
func NewPrincipal(subject string, role Role) Principal {
	return Principal{Subject: subject, Role: role, Authenticated: true}
}

// HasRole reports whether the principal is authenticated with one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	if !p.Authenticated {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IsSuperAdmin is shorthand for HasRole(RoleSuperAdmin).
func (p Principal) IsSuperAdmin() bool {
	return p.HasRole(RoleSuperAdmin)
}
