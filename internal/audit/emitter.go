package audit

import (
	"encoding/json"
	"sync"

	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Actor identifies who performed an action and from where. Handlers build it
// from the request; background jobs use SystemActor.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

func SystemActor() Actor {
	return Actor{UserID: "system", IPAddress: "system", UserAgent: "system"}
}

// Broadcaster pushes a committed audit entry to live listeners. Optional.
type Broadcaster interface {
	BroadcastJSON(payload []byte)
}

// Emitter persists audit records outside the caller's control flow. Emit is
// fire-and-forget: it is called after the primary transaction has committed,
// and any failure here is logged and swallowed — it never propagates to, or
// rolls back, the caller's operation.
type Emitter struct {
	db   *gorm.DB
	log  *logrus.Logger
	feed Broadcaster
	wg   sync.WaitGroup
}

func NewEmitter(db *gorm.DB, log *logrus.Logger, feed Broadcaster) *Emitter {
	return &Emitter{db: db, log: log, feed: feed}
}

// Emit records an action against an entity. Never blocks, never returns an
// error to the caller.
func (e *Emitter) Emit(action, entityType string, entityID uuid.UUID, oldValues, newValues map[string]interface{}, actor Actor) {
	entry := e.buildEntry(action, entityType, entityID, oldValues, newValues, actor)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.db.Create(entry).Error; err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"action":      action,
				"entity_type": entityType,
				"entity_id":   entityID,
			}).Warn("failed to write audit log")
			return
		}
		if e.feed != nil {
			if payload, err := json.Marshal(entry); err == nil {
				e.feed.BroadcastJSON(payload)
			}
		}
	}()
}

// Flush waits for all in-flight audit writes. Used on shutdown and in tests;
// callers on the request path never wait.
func (e *Emitter) Flush() {
	e.wg.Wait()
}

func (e *Emitter) buildEntry(action, entityType string, entityID uuid.UUID, oldValues, newValues map[string]interface{}, actor Actor) *model.AuditLog {
	entry := &model.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actor.UserID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if entry.ActorID == "" {
		entry.ActorID = "system"
	}
	if entry.IPAddress == "" {
		entry.IPAddress = "unknown"
	}
	if entry.UserAgent == "" {
		entry.UserAgent = "unknown"
	}
	entry.OldValues = marshalValues(e.log, oldValues)
	entry.NewValues = marshalValues(e.log, newValues)
	return entry
}

func marshalValues(log *logrus.Logger, values map[string]interface{}) []byte {
	if values == nil {
		values = map[string]interface{}{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		log.WithError(err).Warn("failed to marshal audit values")
		return []byte("{}")
	}
	return raw
}
