package middleware

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/models"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/response"
)

// PolicyKind classifies how a route is protected.
type PolicyKind string

const (
	PolicyPublic        PolicyKind = "PUBLIC"
	PolicyAuthenticated PolicyKind = "AUTHENTICATED"
	PolicyRoles         PolicyKind = "ROLES"
	// PolicySelf is role restricted; the handler's service also checks that
	// the token subject owns the resource.
	PolicySelf PolicyKind = "SELF"
)

// Policy is the access rule of one route.
type Policy struct {
	Kind        PolicyKind
	Roles       []models.Role
	Description string
}

// Access renders the policy for humans.
func (p Policy) Access() string {
	switch p.Kind {
	case PolicyRoles, PolicySelf:
		roles := make([]string, len(p.Roles))
		for i, r := range p.Roles {
			roles[i] = string(r)
		}
		access := strings.Join(roles, ", ")
		if p.Kind == PolicySelf {
			access += " (self)"
		}
		return access
	case PolicyAuthenticated:
		return "authenticated"
	default:
		return "public"
	}
}

// RouteKey identifies a route by method and registered path.
type RouteKey struct {
	Method string
	Path   string
}

// PolicyTable maps routes to their policy.
type PolicyTable map[RouteKey]Policy

func public(desc string) Policy { return Policy{Kind: PolicyPublic, Description: desc} }

func roles(desc string, rs ...models.Role) Policy {
	return Policy{Kind: PolicyRoles, Roles: rs, Description: desc}
}

// DefaultPolicies is the access table of the API.
func DefaultPolicies() PolicyTable {
	admins := []models.Role{models.RoleAdmin, models.RoleSuperAdmin}
	return PolicyTable{
		{http.MethodPost, "/admins/validate"}:                    public("Authenticate an admin and issue a token"),
		{http.MethodPost, "/admins/add"}:                         roles("Create an admin account", models.RoleSuperAdmin),
		{http.MethodDelete, "/admins/remove"}:                    roles("Remove an admin account (not your own)", models.RoleSuperAdmin),
		{http.MethodGet, "/admins"}:                              public("List admin names and roles"),
		{http.MethodPost, "/admins/contains"}:                    public("Check whether an admin exists"),
		{http.MethodPost, "/admins/updatePassword"}:              roles("Change an admin or student password", admins...),
		{http.MethodPost, "/admins/update-student-password"}:     roles("Reset the password of a managed student", admins...),
		{http.MethodPost, "/students/add"}:                       roles("Create a student or add an enrollment", admins...),
		{http.MethodDelete, "/students/remove"}:                  roles("Remove one enrollment", admins...),
		{http.MethodPost, "/students/validate"}:                  public("Authenticate a student behind the payment gate"),
		{http.MethodGet, "/students/whoami"}:                     {Kind: PolicyAuthenticated, Description: "Echo the caller identity"},
		{http.MethodGet, "/whoami"}:                              {Kind: PolicyAuthenticated, Description: "Echo the caller identity"},
		{http.MethodPost, "/students/activate"}:                  roles("Activate a student account", models.RoleSuperAdmin),
		{http.MethodPost, "/students/approve"}:                   roles("Mark a student paid and active", models.RoleSuperAdmin),
		{http.MethodGet, "/students"}:                            roles("List students with their enrollments", admins...),
		{http.MethodGet, "/grades"}:                              public("List grades"),
		{http.MethodPost, "/grades"}:                             {Kind: PolicySelf, Roles: []models.Role{models.RoleStudent}, Description: "Submit your own assignment grade"},
		{http.MethodGet, "/grades/export"}:                       roles("Export grades as CSV or PDF", admins...),
		{http.MethodPost, "/api/stripe/create-checkout-session"}: public("Create a checkout session for a student"),
		{http.MethodPost, "/api/stripe/webhook"}:                 public("Payment provider webhook (signature verified)"),
		{http.MethodGet, "/roles"}:                               public("Describe endpoint access rules"),
		{http.MethodGet, "/health"}:                              public("Liveness probe"),
		{http.MethodGet, "/ready"}:                               public("Readiness probe"),
		{http.MethodGet, "/metrics"}:                             public("Prometheus metrics"),
		{http.MethodGet, "/docs/*any"}:                           public("API documentation"),
	}
}

// PolicyEntry is one row of a PolicyTable.
type PolicyEntry struct {
	Route  RouteKey
	Policy Policy
}

// Entries lists the table sorted by path then method.
func (t PolicyTable) Entries() []PolicyEntry {
	out := make([]PolicyEntry, 0, len(t))
	for k, p := range t {
		out = append(out, PolicyEntry{Route: k, Policy: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Route.Path != out[j].Route.Path {
			return out[i].Route.Path < out[j].Route.Path
		}
		return out[i].Route.Method < out[j].Route.Method
	})
	return out
}

// Authorize enforces the policy of the matched route. prefix is stripped
// from the registered path before lookup. Routes missing from the table are
// denied.
func Authorize(table PolicyTable, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "" {
			// unmatched route, gin answers 404/405
			c.Next()
			return
		}
		path := strings.TrimPrefix(c.FullPath(), prefix)
		policy, ok := table[RouteKey{Method: c.Request.Method, Path: path}]
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no access policy for route"))
			c.Abort()
			return
		}

		principal := PrincipalFrom(c)
		switch policy.Kind {
		case PolicyPublic:
		case PolicyAuthenticated:
			if !principal.Authenticated {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
				c.Abort()
				return
			}
		default:
			if !principal.HasRole(policy.Roles...) {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
