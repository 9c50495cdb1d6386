// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Store is the append-only backing ledger (store/audit in production,
// memstore in tests).
type Store interface {
	Insert(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditEntry, error)
	Query(ctx context.Context, q models.AuditQuery) (models.AuditPage, error)
}

// Config holds audit logging configuration.
type Config struct {
	// Governance controls echoing of membership and proposal entries.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only)
	Governance string
	// Moderation controls echoing of AutoMod entries.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only)
	Moderation string
}

// Subscriber receives every committed entry. Subscribers run synchronously
// on the publishing goroutine and must not block.
type Subscriber func(models.AuditEntry)

// Logger is the governance ledger. Entries always reach the store; zap echo
// is controlled by Config. Committed entries fan out to subscribers.
type Logger struct {
	store  Store
	zapLog *zap.Logger
	config Config

	mu   sync.RWMutex
	subs []Subscriber
}

// New creates a new audit Logger.
func New(store Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// Subscribe registers fn for every entry published from now on.
func (l *Logger) Subscribe(fn Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Record appends an entry. A failed write is returned to the caller, which
// must then abandon the mutation the entry describes.
func (l *Logger) Record(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	if e.GroupID.IsZero() {
		return models.AuditEntry{}, fmt.Errorf("audit entry %q has no group", e.ActionType)
	}
	if e.ActionType == "" {
		return models.AuditEntry{}, fmt.Errorf("audit entry has no action type")
	}
	saved, err := l.store.Insert(ctx, e)
	if err != nil {
		l.zapLog.Error("failed to store audit entry",
			zap.Error(err),
			zap.String("action_type", string(e.ActionType)),
		)
		return models.AuditEntry{}, err
	}
	return saved, nil
}

// Publish echoes committed entries to zap and hands them to subscribers.
func (l *Logger) Publish(entries ...models.AuditEntry) {
	if len(entries) == 0 {
		return
	}
	l.mu.RLock()
	subs := make([]Subscriber, len(l.subs))
	copy(subs, l.subs)
	l.mu.RUnlock()

	for _, e := range entries {
		if l.setting(e.ActionType) == "all" {
			l.logToZap(e)
		}
		for _, fn := range subs {
			l.deliver(fn, e)
		}
	}
}

func (l *Logger) deliver(fn Subscriber, e models.AuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			l.zapLog.Error("audit subscriber panicked",
				zap.Any("panic", r),
				zap.String("action_type", string(e.ActionType)),
			)
		}
	}()
	fn(e)
}

// GetByID returns one entry.
func (l *Logger) GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditEntry, error) {
	return l.store.GetByID(ctx, id)
}

// Query returns a newest-first page of entries.
func (l *Logger) Query(ctx context.Context, q models.AuditQuery) (models.AuditPage, error) {
	return l.store.Query(ctx, q)
}

func (l *Logger) setting(a models.AuditAction) string {
	s := l.config.Governance
	if a.IsModeration() {
		s = l.config.Moderation
	}
	if s == "" {
		return "all"
	}
	return s
}

// logToZap logs the entry to zap with consistent structure.
func (l *Logger) logToZap(e models.AuditEntry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("entry_id", e.ID.Hex()),
		zap.String("group_id", e.GroupID.Hex()),
		zap.String("action_type", string(e.ActionType)),
	}
	if !e.ActorID.IsZero() {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.TargetID != nil {
		fields = append(fields, zap.String("target_id", e.TargetID.Hex()))
	}
	if e.RefID != nil {
		fields = append(fields, zap.String("ref_id", e.RefID.Hex()))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.ActionType == models.AuditExecutionFailed {
		l.zapLog.Warn("audit entry", fields...)
	} else {
		l.zapLog.Info("audit entry", fields...)
	}
}
