// Package authz issues the capability that admin-only operations require.
package authz

import (
	"encoding/json"
	"strings"

	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
)

// Admin proves the holder passed the admin role check. The zero value
// grants nothing.
type Admin struct {
	userID uint64
	super  bool
	perms  map[string]struct{}
}

// RequireAdmin returns an Admin capability for user, or ErrAdminRequired
// when user lacks the admin role or is frozen.
func RequireAdmin(user *models.User) (Admin, error) {
	if user == nil || user.ID == 0 || !user.IsAdmin() || user.IsFrozen {
		return Admin{}, ledger.ErrAdminRequired
	}
	perms := map[string]struct{}{}
	if len(user.AdminPermissions) > 0 {
		var keys []string
		if errUnmarshal := json.Unmarshal(user.AdminPermissions, &keys); errUnmarshal == nil {
			for _, key := range keys {
				if trimmed := strings.TrimSpace(key); trimmed != "" {
					perms[trimmed] = struct{}{}
				}
			}
		}
	}
	return Admin{userID: user.ID, super: user.IsSuperAdmin, perms: perms}, nil
}

// Check rejects the zero value.
func (a Admin) Check() error {
	if a.userID == 0 {
		return ledger.ErrAdminRequired
	}
	return nil
}

// UserID returns the admin's user id.
func (a Admin) UserID() uint64 { return a.userID }

// IsSuper reports whether the admin bypasses permission checks.
func (a Admin) IsSuper() bool { return a.super }

// Allows reports whether the admin may use the permission key.
func (a Admin) Allows(key string) bool {
	if a.userID == 0 {
		return false
	}
	if a.super {
		return true
	}
	_, ok := a.perms[key]
	return ok
}
