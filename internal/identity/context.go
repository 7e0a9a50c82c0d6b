// Package identity carries the authenticated caller through request contexts.
package identity

import (
	"context"
	"strings"
)

// Role is the coarse caller role used for authorization.
type Role string

const (
	RolePatient   Role = "patient"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a raw claim to a Role, defaulting to patient.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RolePatient, "":
		return RolePatient, true
	case RoleClinician:
		return RoleClinician, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Principal is the validated caller. UserID is opaque to the rest of the system.
type Principal struct {
	UserID string
	Role   Role
}

// PrincipalContextKey is the request context key for the authenticated principal.
type PrincipalContextKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey{}, p)
}

// PrincipalFromContext returns the principal from context, if set.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(PrincipalContextKey{}).(Principal)
	if !ok || strings.TrimSpace(p.UserID) == "" {
		return Principal{}, false
	}
	return p, true
}

// UserIDFromContext returns only the user id of the principal.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}
	return p.UserID, true
}
