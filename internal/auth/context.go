package auth

import (
	"context"

	"github.com/rowanvale/choreboard/internal/model"
)

type contextKey struct{}

// AuthContext travels with every authenticated request. ActiveMemberID is
// the family member currently driving the device, zero until one is picked.
type AuthContext struct {
	UserID         int64
	HouseholdID    int64
	Role           string
	SessionID      int64
	ActiveMemberID int64
	MemberRole     string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func ActiveMemberID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.ActiveMemberID
}

// IsParent reports whether the active family member holds the parent role.
func IsParent(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.MemberRole == model.RoleParent
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == "admin"
}
