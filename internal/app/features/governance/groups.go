// internal/app/features/governance/groups.go
package governance

import (
	"net/http"

	uierrors "github.com/dalemusser/civic/internal/app/features/errors"
	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// createGroup handles POST /api/groups. The caller becomes the founder.
func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create group")
	defer cancel()

	g, err := h.Engine.CreateGroup(ctx, caller, governance.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.fail(w, r, "create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// getRole handles GET /api/groups/{groupID}/members/{userID}/role.
func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "get role")
	defer cancel()

	role, err := h.Engine.GetRole(ctx, groupID, userID)
	if err != nil {
		h.fail(w, r, "get role", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": string(role)})
}

// leave handles POST /api/groups/{groupID}/leave.
func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "leave group")
	defer cancel()

	if err := h.Engine.LeaveGroup(ctx, caller, groupID); err != nil {
		h.fail(w, r, "leave group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferFounderRequest struct {
	NewFounderID string `json:"new_founder_id"`
}

// transferFounder handles POST /api/groups/{groupID}/transfer-founder.
func (h *Handler) transferFounder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	var req transferFounderRequest
	if !decode(w, r, &req) {
		return
	}
	newFounder, err := primitive.ObjectIDFromHex(req.NewFounderID)
	if err != nil {
		uierrors.BadRequest(w, "Invalid new_founder_id.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "transfer founder")
	defer cancel()

	if err := h.Engine.TransferFounder(ctx, caller, groupID, newFounder); err != nil {
		h.fail(w, r, "transfer founder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
