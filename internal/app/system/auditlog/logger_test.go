package auditlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/civic/internal/app/store/memstore"
	"github.com/dalemusser/civic/internal/app/system/auditlog"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newEntry(action models.AuditAction) models.AuditEntry {
	return models.AuditEntry{
		GroupID:    primitive.NewObjectID(),
		ActionType: action,
		ActorID:    primitive.NewObjectID(),
	}
}

func TestLogger_Record_StoresEntry(t *testing.T) {
	store := memstore.NewAudit()
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{})

	saved, err := logger.Record(context.Background(), newEntry(models.AuditPromotion))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if saved.ID.IsZero() {
		t.Error("expected an id to be assigned")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored entry, got %d", store.Len())
	}

	got, err := logger.GetByID(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ActionType != models.AuditPromotion {
		t.Errorf("action_type: got %q, want %q", got.ActionType, models.AuditPromotion)
	}
}

func TestLogger_Record_RejectsIncompleteEntries(t *testing.T) {
	store := memstore.NewAudit()
	logger := auditlog.New(store, nil, auditlog.Config{})

	if _, err := logger.Record(context.Background(), models.AuditEntry{ActionType: models.AuditJoin}); err == nil {
		t.Error("expected error for entry without group")
	}
	if _, err := logger.Record(context.Background(), models.AuditEntry{GroupID: primitive.NewObjectID()}); err == nil {
		t.Error("expected error for entry without action type")
	}
	if store.Len() != 0 {
		t.Errorf("expected no stored entries, got %d", store.Len())
	}
}

type failingStore struct{ memstore.Audit }

func (*failingStore) Insert(context.Context, models.AuditEntry) (models.AuditEntry, error) {
	return models.AuditEntry{}, errors.New("disk full")
}

func TestLogger_Record_PropagatesStoreError(t *testing.T) {
	logger := auditlog.New(&failingStore{}, zap.NewNop(), auditlog.Config{})
	if _, err := logger.Record(context.Background(), newEntry(models.AuditJoin)); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestLogger_Publish_EchoesToZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(memstore.NewAudit(), zap.New(core), auditlog.Config{Governance: "all", Moderation: "db"})

	gov := newEntry(models.AuditDemotion)
	gov.Details = map[string]string{"proposal_action": "demote"}
	logger.Publish(gov, newEntry(models.AuditAutoModBlock))

	entries := logs.FilterMessage("audit entry").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 zap entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["action_type"] != string(models.AuditDemotion) {
		t.Errorf("action_type: got %v", fields["action_type"])
	}
	if fields["detail_proposal_action"] != "demote" {
		t.Errorf("detail_proposal_action: got %v", fields["detail_proposal_action"])
	}
	if fields["audit"] != true {
		t.Errorf("expected audit=true field, got %v", fields["audit"])
	}
}

func TestLogger_Publish_ExecutionFailedIsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(memstore.NewAudit(), zap.New(core), auditlog.Config{})

	logger.Publish(newEntry(models.AuditExecutionFailed))

	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warning, got %+v", entries)
	}
}

func TestLogger_Publish_DBOnlySuppressesZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(memstore.NewAudit(), zap.New(core), auditlog.Config{Governance: "db", Moderation: "db"})

	logger.Publish(newEntry(models.AuditJoin), newEntry(models.AuditModerationWarning))

	if logs.Len() != 0 {
		t.Errorf("expected no zap output, got %d entries", logs.Len())
	}
}

func TestLogger_Subscribe(t *testing.T) {
	logger := auditlog.New(memstore.NewAudit(), zap.NewNop(), auditlog.Config{Governance: "db"})

	var got []models.AuditAction
	logger.Subscribe(func(e models.AuditEntry) { got = append(got, e.ActionType) })

	logger.Publish(newEntry(models.AuditProposalCreated), newEntry(models.AuditVoteResolutionApproved))
	logger.Publish()

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0] != models.AuditProposalCreated || got[1] != models.AuditVoteResolutionApproved {
		t.Errorf("unexpected delivery order: %v", got)
	}
}

func TestLogger_Subscribe_PanicIsContained(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := auditlog.New(memstore.NewAudit(), zap.New(core), auditlog.Config{Governance: "db"})

	delivered := 0
	logger.Subscribe(func(models.AuditEntry) { panic("boom") })
	logger.Subscribe(func(models.AuditEntry) { delivered++ })

	logger.Publish(newEntry(models.AuditJoin))

	if delivered != 1 {
		t.Errorf("expected second subscriber to run, delivered=%d", delivered)
	}
	if logs.FilterMessage("audit subscriber panicked").Len() != 1 {
		t.Error("expected panic to be logged")
	}
}

func TestLogger_Query_Filters(t *testing.T) {
	logger := auditlog.New(memstore.NewAudit(), zap.NewNop(), auditlog.Config{Governance: "db"})
	ctx := context.Background()
	groupID := primitive.NewObjectID()

	for _, a := range []models.AuditAction{models.AuditJoin, models.AuditPromotion, models.AuditProposalCreated} {
		e := newEntry(a)
		e.GroupID = groupID
		if _, err := logger.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	page, err := logger.Query(ctx, models.AuditQuery{GroupID: groupID, Actions: models.AuditFilterRoles.Actions()})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].ActionType != models.AuditPromotion {
		t.Errorf("expected only the promotion entry, got %+v", page.Entries)
	}
}
