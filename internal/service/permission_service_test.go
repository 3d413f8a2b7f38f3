package service

import (
	"testing"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/model"
	"go-admin-rbac/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// permFixture is a three-level tree with a role and one option on the leaf:
//
//	app -> app.reports -> app.reports.exports (option: export.csv)
type permFixture struct {
	svc        PermissionService
	db         *gorm.DB
	emitter    *audit.Emitter
	role       model.Role
	root       model.Module
	mid        model.Module
	leaf       model.Module
	leafOption model.Option
}

func newPermFixture(t *testing.T) *permFixture {
	t.Helper()
	db := testDB(t)
	emitter := testEmitter(db)
	svc := NewPermissionService(
		db,
		repository.NewPermissionRepo(db),
		repository.NewRoleRepo(db),
		repository.NewModuleRepo(db),
		repository.NewOptionRepo(db),
		emitter,
		testLogger(),
	)

	f := &permFixture{
		svc:     svc,
		db:      db,
		emitter: emitter,
		role:    model.Role{Name: "ANALYST"},
		root:    model.Module{Key: "app", Name: "App"},
	}
	require.NoError(t, db.Create(&f.role).Error)
	require.NoError(t, db.Create(&f.root).Error)
	f.mid = model.Module{Key: "app.reports", Name: "Reports", ParentModuleID: &f.root.ID}
	require.NoError(t, db.Create(&f.mid).Error)
	f.leaf = model.Module{Key: "app.reports.exports", Name: "Exports", ParentModuleID: &f.mid.ID}
	require.NoError(t, db.Create(&f.leaf).Error)
	f.leafOption = model.Option{ModuleID: f.leaf.ID, Key: "export.csv", Name: "Export CSV"}
	require.NoError(t, db.Create(&f.leafOption).Error)
	return f
}

func (f *permFixture) grant(t *testing.T, moduleID uuid.UUID, optionID *uuid.UUID, allowChildren, granted bool) {
	t.Helper()
	_, err := f.svc.Grant(&GrantPermissionRequest{
		RoleID:        f.role.ID,
		ModuleID:      moduleID,
		OptionID:      optionID,
		AllowChildren: allowChildren,
		Granted:       granted,
	}, audit.SystemActor())
	require.NoError(t, err)
}

func TestResolveDefaultDeny(t *testing.T) {
	f := newPermFixture(t)

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = f.svc.Resolve(f.role.ID, f.leaf.ID, &f.leafOption.ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestResolveExactOptionWins(t *testing.T) {
	f := newPermFixture(t)

	// Broad module-level allow, surgically revoked at the option.
	f.grant(t, f.leaf.ID, nil, true, true)
	f.grant(t, f.leaf.ID, &f.leafOption.ID, false, false)

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, &f.leafOption.ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	// The module-level answer is untouched.
	allowed, err = f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestResolveModuleLevelAnswersOptionOnlyWhenInheriting(t *testing.T) {
	f := newPermFixture(t)

	// allow_children=false: the grant covers the module itself, not its options.
	f.grant(t, f.leaf.ID, nil, false, true)

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.svc.Resolve(f.role.ID, f.leaf.ID, &f.leafOption.ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestResolveOptionThroughAllowChildren(t *testing.T) {
	f := newPermFixture(t)

	f.grant(t, f.leaf.ID, nil, true, true)

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, &f.leafOption.ID)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestResolveNearestAncestorWins(t *testing.T) {
	f := newPermFixture(t)

	// Root says yes for the whole subtree, the middle layer says no. The
	// middle grant is closer to the leaf, so it decides.
	f.grant(t, f.root.ID, nil, true, true)
	f.grant(t, f.mid.ID, nil, true, false)

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Without the middle override the root grant reaches the leaf.
	require.NoError(t, f.svc.Revoke(f.role.ID, f.mid.ID, nil, audit.SystemActor()))
	allowed, err = f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestResolveAncestorWithoutAllowChildrenIgnored(t *testing.T) {
	f := newPermFixture(t)

	// A non-inheriting grant on the root never reaches descendants.
	f.grant(t, f.root.ID, nil, false, true)

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGrantUpdatesExistingRow(t *testing.T) {
	f := newPermFixture(t)

	f.grant(t, f.leaf.ID, nil, false, true)
	f.grant(t, f.leaf.ID, nil, true, false)

	var rows []model.RolePermission
	require.NoError(t, f.db.Where("role_id = ? AND module_id = ?", f.role.ID, f.leaf.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].AllowChildren)
	assert.False(t, rows[0].Granted)

	// One CREATE plus one UPDATE in the trail.
	assert.EqualValues(t, 2, auditCount(t, f.db, f.emitter, "RolePermission"))
}

func TestGrantValidatesTargets(t *testing.T) {
	f := newPermFixture(t)

	ghost := uuid.New()
	_, err := f.svc.Grant(&GrantPermissionRequest{RoleID: ghost, ModuleID: f.leaf.ID, Granted: true}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Grant(&GrantPermissionRequest{RoleID: f.role.ID, ModuleID: ghost, Granted: true}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)

	// Option attached to the leaf cannot be granted under another module.
	_, err = f.svc.Grant(&GrantPermissionRequest{
		RoleID:   f.role.ID,
		ModuleID: f.mid.ID,
		OptionID: &f.leafOption.ID,
		Granted:  true,
	}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestRevoke(t *testing.T) {
	f := newPermFixture(t)

	f.grant(t, f.leaf.ID, nil, true, true)
	require.NoError(t, f.svc.Revoke(f.role.ID, f.leaf.ID, nil, audit.SystemActor()))

	allowed, err := f.svc.Resolve(f.role.ID, f.leaf.ID, nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	err = f.svc.Revoke(f.role.ID, f.leaf.ID, nil, audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveByKeys(t *testing.T) {
	f := newPermFixture(t)

	f.grant(t, f.root.ID, nil, true, true)

	allowed, err := f.svc.ResolveByKeys("ANALYST", "app.reports.exports", "export.csv")
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = f.svc.ResolveByKeys("NOBODY", "app", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ResolveByKeys("ANALYST", "app", "export.csv")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestListByRole(t *testing.T) {
	f := newPermFixture(t)

	f.grant(t, f.root.ID, nil, true, true)
	f.grant(t, f.leaf.ID, &f.leafOption.ID, false, false)

	perms, err := f.svc.ListByRole(f.role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 2)

	_, err = f.svc.ListByRole(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
