// internal/app/features/governance/audit.go
package governance

import (
	"net/http"

	uierrors "github.com/dalemusser/civic/internal/app/features/errors"
	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/system/normalize"
	"github.com/dalemusser/civic/internal/app/system/paging"
	"github.com/dalemusser/civic/internal/app/system/timeouts"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// health handles GET /api/groups/{groupID}/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "governance health")
	defer cancel()

	snap, err := h.Engine.GetGovernanceHealth(ctx, caller, groupID)
	if err != nil {
		h.fail(w, r, "governance health", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// auditLog handles GET /api/groups/{groupID}/audit-log?filter=&limit=&cursor=.
func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	filter := models.AuditFilter(normalize.Token(query.Get(r, "filter")))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "audit log")
	defer cancel()

	page, err := h.Engine.GetAuditLog(ctx, caller, groupID, filter, paging.ParseLimit(r), query.Get(r, "cursor"))
	if err != nil {
		h.fail(w, r, "audit log", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type moderationRequest struct {
	Action   string            `json:"action"`
	ActorID  string            `json:"actor_id"`
	TargetID string            `json:"target_id"`
	Reason   string            `json:"reason"`
	Details  map[string]string `json:"details"`
}

// recordModeration handles POST /api/groups/{groupID}/moderation-events.
// The AutoMod peer posts its entries here under a manager's session. The
// entry's actor is always the caller; a differing actor_id is kept as
// reported_actor_id.
func (h *Handler) recordModeration(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	var req moderationRequest
	if !decode(w, r, &req) {
		return
	}
	actor, err := parseID(req.ActorID)
	if err != nil {
		uierrors.BadRequest(w, "Invalid actor_id.")
		return
	}
	target, err := parseID(req.TargetID)
	if err != nil {
		uierrors.BadRequest(w, "Invalid target_id.")
		return
	}
	ev := governance.ModerationEvent{
		Action:          models.AuditAction(normalize.Token(req.Action)),
		ActorID:         caller,
		ReportedActorID: actor,
		TargetID:        target,
		Reason:          req.Reason,
		Details:         req.Details,
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "record moderation")
	defer cancel()

	role, err := h.Engine.GetRole(ctx, groupID, caller)
	if err != nil && governance.CodeOf(err) != governance.CodeNotFound {
		h.fail(w, r, "record moderation", err)
		return
	}
	if !role.CanManage() {
		h.fail(w, r, "record moderation", &governance.Error{
			Code:   governance.CodeNotAuthorized,
			Reason: "Only managers can record moderation events.",
		})
		return
	}

	entry, err := h.Engine.RecordModeration(ctx, groupID, ev)
	if err != nil {
		h.fail(w, r, "record moderation", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
