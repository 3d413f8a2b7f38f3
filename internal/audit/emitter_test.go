package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

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

	require.NoError(t, db.AutoMigrate(&model.AuditLog{}))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// feedRecorder captures broadcast payloads for assertions.
type feedRecorder struct {
	payloads [][]byte
}

func (f *feedRecorder) BroadcastJSON(payload []byte) {
	f.payloads = append(f.payloads, payload)
}

func TestEmitWritesEntry(t *testing.T) {
	db := testDB(t)
	emitter := NewEmitter(db, testLogger(), nil)

	entityID := uuid.New()
	actor := Actor{UserID: uuid.New().String(), IPAddress: "203.0.113.9", UserAgent: "curl/8.0"}
	emitter.Emit(model.AuditActionUpdate, "Module", entityID,
		map[string]interface{}{"name": "Before"},
		map[string]interface{}{"name": "After"},
		actor)
	emitter.Flush()

	var entry model.AuditLog
	require.NoError(t, db.Where("entity_id = ?", entityID).First(&entry).Error)
	assert.Equal(t, model.AuditActionUpdate, entry.Action)
	assert.Equal(t, "Module", entry.EntityType)
	assert.Equal(t, actor.UserID, entry.ActorID)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, "curl/8.0", entry.UserAgent)

	var oldValues map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.OldValues, &oldValues))
	assert.Equal(t, "Before", oldValues["name"])
}

func TestEmitDefaults(t *testing.T) {
	db := testDB(t)
	emitter := NewEmitter(db, testLogger(), nil)

	entityID := uuid.New()
	emitter.Emit(model.AuditActionCreate, "Role", entityID, nil, nil, Actor{})
	emitter.Flush()

	var entry model.AuditLog
	require.NoError(t, db.Where("entity_id = ?", entityID).First(&entry).Error)
	assert.Equal(t, "system", entry.ActorID)
	assert.Equal(t, "unknown", entry.IPAddress)
	assert.Equal(t, "unknown", entry.UserAgent)
	assert.JSONEq(t, "{}", string(entry.OldValues))
	assert.JSONEq(t, "{}", string(entry.NewValues))
}

func TestEmitBroadcastsAfterWrite(t *testing.T) {
	db := testDB(t)
	feed := &feedRecorder{}
	emitter := NewEmitter(db, testLogger(), feed)

	emitter.Emit(model.AuditActionDelete, "User", uuid.New(), nil, nil, SystemActor())
	emitter.Flush()

	require.Len(t, feed.payloads, 1)
	var broadcast model.AuditLog
	require.NoError(t, json.Unmarshal(feed.payloads[0], &broadcast))
	assert.Equal(t, model.AuditActionDelete, broadcast.Action)
}

func TestEmitFailureIsSwallowed(t *testing.T) {
	db := testDB(t)
	feed := &feedRecorder{}
	emitter := NewEmitter(db, testLogger(), feed)

	// Break the sink. Emit must neither panic nor broadcast.
	require.NoError(t, db.Migrator().DropTable(&model.AuditLog{}))

	emitter.Emit(model.AuditActionCreate, "Module", uuid.New(), nil, nil, SystemActor())
	emitter.Flush()

	assert.Empty(t, feed.payloads)
}
