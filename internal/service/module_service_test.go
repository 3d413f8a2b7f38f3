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

func newModuleService(t *testing.T) (ModuleService, *gorm.DB, *audit.Emitter) {
	t.Helper()
	db := testDB(t)
	emitter := testEmitter(db)
	svc := NewModuleService(db, repository.NewModuleRepo(db), emitter, testLogger())
	return svc, db, emitter
}

func mustCreateModule(t *testing.T, svc ModuleService, key string, parentID *uuid.UUID) *model.Module {
	t.Helper()
	module, err := svc.Create(&CreateModuleRequest{
		Key:            key,
		Name:           key,
		ParentModuleID: parentID,
	}, audit.SystemActor())
	require.NoError(t, err)
	return module
}

func TestModuleCreate(t *testing.T) {
	svc, db, emitter := newModuleService(t)

	module := mustCreateModule(t, svc, "inventory", nil)
	assert.Equal(t, "inventory", module.Key)
	assert.True(t, module.IsActive)
	assert.Nil(t, module.ParentModuleID)

	child := mustCreateModule(t, svc, "inventory.items", &module.ID)
	assert.Equal(t, module.ID, *child.ParentModuleID)

	assert.EqualValues(t, 2, auditCount(t, db, emitter, "Module"))
}

func TestModuleCreateDuplicateKey(t *testing.T) {
	svc, _, _ := newModuleService(t)

	mustCreateModule(t, svc, "inventory", nil)
	_, err := svc.Create(&CreateModuleRequest{Key: "inventory", Name: "Again"}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestModuleCreateMissingParent(t *testing.T) {
	svc, _, _ := newModuleService(t)

	ghost := uuid.New()
	_, err := svc.Create(&CreateModuleRequest{Key: "orphan", Name: "Orphan", ParentModuleID: &ghost}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModuleCreateBadKey(t *testing.T) {
	svc, _, _ := newModuleService(t)

	_, err := svc.Create(&CreateModuleRequest{Key: "Not A Key!", Name: "Bad"}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestModuleReparentCycleRejected(t *testing.T) {
	svc, _, _ := newModuleService(t)

	a := mustCreateModule(t, svc, "a", nil)
	b := mustCreateModule(t, svc, "a.b", &a.ID)
	c := mustCreateModule(t, svc, "a.b.c", &b.ID)

	// Pointing the root at its own grandchild would close a cycle.
	_, err := svc.Update(a.ID, &UpdateModuleRequest{ParentModuleID: &c.ID}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrInvalidOperation)

	// The rejected update must leave the tree untouched.
	reloaded, err := svc.GetByID(a.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ParentModuleID)
}

func TestModuleSelfParentRejected(t *testing.T) {
	svc, _, _ := newModuleService(t)

	a := mustCreateModule(t, svc, "a", nil)
	_, err := svc.Update(a.ID, &UpdateModuleRequest{ParentModuleID: &a.ID}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestModuleReparentAndClearParent(t *testing.T) {
	svc, _, _ := newModuleService(t)

	a := mustCreateModule(t, svc, "a", nil)
	b := mustCreateModule(t, svc, "b", nil)
	c := mustCreateModule(t, svc, "b.c", &b.ID)

	// Valid reparent: c moves under a.
	moved, err := svc.Update(c.ID, &UpdateModuleRequest{ParentModuleID: &a.ID}, audit.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentModuleID)

	// Detach: c becomes a root.
	detached, err := svc.Update(c.ID, &UpdateModuleRequest{ClearParent: true}, audit.SystemActor())
	require.NoError(t, err)
	assert.Nil(t, detached.ParentModuleID)

	roots, err := svc.ListRoots()
	require.NoError(t, err)
	assert.Len(t, roots, 3)
}

func TestModuleDeleteBlockedByChildren(t *testing.T) {
	svc, _, _ := newModuleService(t)

	parent := mustCreateModule(t, svc, "parent", nil)
	mustCreateModule(t, svc, "parent.child", &parent.ID)

	err := svc.Delete(parent.ID, audit.SystemActor())
	assert.ErrorIs(t, err, ErrInvalidOperation)

	// Still there.
	_, err = svc.GetByID(parent.ID)
	assert.NoError(t, err)
}

func TestModuleDeleteCascadesOptionsAndGrants(t *testing.T) {
	svc, db, _ := newModuleService(t)

	leaf := mustCreateModule(t, svc, "leaf", nil)

	option := model.Option{ModuleID: leaf.ID, Key: "leaf.view", Name: "View"}
	require.NoError(t, db.Create(&option).Error)
	role := model.Role{Name: "VIEWER"}
	require.NoError(t, db.Create(&role).Error)
	grant := model.RolePermission{RoleID: role.ID, ModuleID: leaf.ID, Granted: true}
	require.NoError(t, db.Create(&grant).Error)

	require.NoError(t, svc.Delete(leaf.ID, audit.SystemActor()))

	var options, grants int64
	require.NoError(t, db.Model(&model.Option{}).Where("module_id = ?", leaf.ID).Count(&options).Error)
	require.NoError(t, db.Model(&model.RolePermission{}).Where("module_id = ?", leaf.ID).Count(&grants).Error)
	assert.Zero(t, options)
	assert.Zero(t, grants)

	_, err := svc.GetByID(leaf.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModuleDeleteNotFound(t *testing.T) {
	svc, _, _ := newModuleService(t)

	err := svc.Delete(uuid.New(), audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModuleSubtree(t *testing.T) {
	svc, _, _ := newModuleService(t)

	root := mustCreateModule(t, svc, "root", nil)
	left := mustCreateModule(t, svc, "root.left", &root.ID)
	mustCreateModule(t, svc, "root.right", &root.ID)
	mustCreateModule(t, svc, "root.left.deep", &left.ID)

	tree, err := svc.Subtree(root.ID)
	require.NoError(t, err)

	assert.Equal(t, "root", tree.Module.Key)
	require.Len(t, tree.Children, 2)

	var leftNode *model.ModuleTree
	for _, child := range tree.Children {
		if child.Module.Key == "root.left" {
			leftNode = child
		}
	}
	require.NotNil(t, leftNode)
	require.Len(t, leftNode.Children, 1)
	assert.Equal(t, "root.left.deep", leftNode.Children[0].Module.Key)
}

func TestModuleListFilters(t *testing.T) {
	svc, _, _ := newModuleService(t)

	root := mustCreateModule(t, svc, "root", nil)
	mustCreateModule(t, svc, "root.a", &root.ID)
	mustCreateModule(t, svc, "root.b", &root.ID)

	inactive := false
	_, err := svc.Update(root.ID, &UpdateModuleRequest{IsActive: &inactive}, audit.SystemActor())
	require.NoError(t, err)

	children, err := svc.ListChildren(root.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	active := true
	modules, total, err := svc.List(repository.ModuleListFilter{IsActive: &active})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, modules, 2)

	byParent, total, err := svc.List(repository.ModuleListFilter{ParentModuleID: &root.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byParent, 2)
}

func TestModuleGetByKey(t *testing.T) {
	svc, _, _ := newModuleService(t)

	mustCreateModule(t, svc, "lookup", nil)

	module, err := svc.GetByKey("lookup")
	require.NoError(t, err)
	assert.Equal(t, "lookup", module.Key)

	_, err = svc.GetByKey("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
