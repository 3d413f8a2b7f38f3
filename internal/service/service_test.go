package service

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB opens an isolated in-memory database, one per test, migrated to the
// full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Module{},
		&model.Option{},
		&model.Role{},
		&model.RolePermission{},
		&model.User{},
		&model.UserRole{},
		&model.AuditLog{},
	))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testEmitter(db *gorm.DB) *audit.Emitter {
	return audit.NewEmitter(db, testLogger(), nil)
}

// auditCount drains the emitter and counts trail entries for one entity type.
func auditCount(t *testing.T, db *gorm.DB, emitter *audit.Emitter, entityType string) int64 {
	t.Helper()
	emitter.Flush()
	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("entity_type = ?", entityType).Count(&count).Error)
	return count
}
