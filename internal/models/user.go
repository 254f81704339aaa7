package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStudent    Role = "STUDENT"
)

// ParseRole converts raw input into a Role, rejecting anything outside the set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// IsAdministrative reports whether the role belongs to an admin account.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
