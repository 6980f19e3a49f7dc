package authz

import (
	"errors"
	"testing"

	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"gorm.io/datatypes"
)

func TestRequireAdmin(t *testing.T) {
	if _, err := RequireAdmin(nil); !errors.Is(err, ledger.ErrAdminRequired) {
		t.Fatalf("nil user: %v", err)
	}
	member := &models.User{ID: 1, Role: models.RoleUser}
	if _, err := RequireAdmin(member); !errors.Is(err, ledger.ErrAdminRequired) {
		t.Fatalf("member: %v", err)
	}
	frozen := &models.User{ID: 2, Role: models.RoleAdmin, IsFrozen: true}
	if _, err := RequireAdmin(frozen); !errors.Is(err, ledger.ErrAdminRequired) {
		t.Fatalf("frozen admin: %v", err)
	}

	admin := &models.User{ID: 3, Role: models.RoleAdmin, AdminPermissions: datatypes.JSON(`["GET /v0/admin/users"]`)}
	capability, err := RequireAdmin(admin)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if capability.Check() != nil || capability.UserID() != 3 {
		t.Fatalf("unexpected capability %+v", capability)
	}
	if !capability.Allows("GET /v0/admin/users") || capability.Allows("POST /v0/admin/nft-batches") {
		t.Fatalf("permission checks wrong")
	}
}

func TestZeroAdminGrantsNothing(t *testing.T) {
	var zero Admin
	if !errors.Is(zero.Check(), ledger.ErrAdminRequired) {
		t.Fatalf("zero capability should fail Check")
	}
	if zero.Allows("GET /v0/admin/users") {
		t.Fatalf("zero capability should allow nothing")
	}
}

func TestSuperAdminAllowsEverything(t *testing.T) {
	capability, err := RequireAdmin(&models.User{ID: 9, Role: models.RoleAdmin, IsSuperAdmin: true})
	if err != nil {
		t.Fatalf("super admin: %v", err)
	}
	if !capability.Allows("anything") || !capability.IsSuper() {
		t.Fatalf("super admin should allow everything")
	}
}
