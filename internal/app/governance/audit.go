// internal/app/governance/audit.go
package governance

import (
	"context"
	"fmt"

	"github.com/dalemusser/civic/internal/app/system/htmlsanitize"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetAuditLog returns one newest-first page of the group's ledger.
func (e *Engine) GetAuditLog(ctx context.Context, viewerID, groupID primitive.ObjectID, filter models.AuditFilter, limit int64, cursor string) (models.AuditPage, error) {
	if filter == "" {
		filter = models.AuditFilterAll
	}
	if !filter.Valid() {
		return models.AuditPage{}, invalidOperation("Unknown audit log filter %q.", filter)
	}
	if err := e.requireMember(ctx, groupID, viewerID); err != nil {
		return models.AuditPage{}, err
	}
	page, err := e.ledger.Query(ctx, models.AuditQuery{
		GroupID: groupID,
		Actions: filter.Actions(),
		Limit:   clampLimit(limit),
		Cursor:  cursor,
	})
	if err != nil {
		return models.AuditPage{}, fmt.Errorf("query audit log: %w", err)
	}
	return page, nil
}

// ModerationEvent is an entry written by the AutoMod peer. ActorID is the
// authenticated submitter; ReportedActorID is who the peer says acted, kept
// only as a detail.
type ModerationEvent struct {
	Action          models.AuditAction
	ActorID         primitive.ObjectID
	ReportedActorID *primitive.ObjectID
	TargetID        *primitive.ObjectID
	Reason          string
	Details         map[string]string
}

// RecordModeration appends an AutoMod entry to the group's ledger. The engine
// stores it as given and takes no action on it.
func (e *Engine) RecordModeration(ctx context.Context, groupID primitive.ObjectID, ev ModerationEvent) (models.AuditEntry, error) {
	if !ev.Action.IsModeration() {
		return models.AuditEntry{}, invalidOperation("%q is not a moderation entry.", ev.Action)
	}
	counts, err := e.CountByRole(ctx, groupID)
	if err != nil {
		return models.AuditEntry{}, err
	}
	if counts.Total() == 0 {
		return models.AuditEntry{}, notFound("That group does not exist.")
	}

	details := make(map[string]string, len(ev.Details)+2)
	for k, v := range ev.Details {
		details[k] = htmlsanitize.PlainText(v)
	}
	delete(details, "reported_actor_id")
	if reason := htmlsanitize.PlainText(ev.Reason); reason != "" {
		details["reason"] = reason
	}
	if ev.ReportedActorID != nil && *ev.ReportedActorID != ev.ActorID {
		details["reported_actor_id"] = ev.ReportedActorID.Hex()
	}

	var saved models.AuditEntry
	err = e.inTx(ctx, func(ctx context.Context, j *journal) error {
		var err error
		saved, err = j.record(ctx, models.AuditEntry{
			GroupID:    groupID,
			ActionType: ev.Action,
			ActorID:    ev.ActorID,
			TargetID:   ev.TargetID,
			Details:    details,
		})
		return err
	})
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("record moderation entry: %w", err)
	}
	return saved, nil
}
