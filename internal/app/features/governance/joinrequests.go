// internal/app/features/governance/joinrequests.go
package governance

import (
	"net/http"

	uierrors "github.com/dalemusser/civic/internal/app/features/errors"
	"github.com/dalemusser/civic/internal/app/system/normalize"
	"github.com/dalemusser/civic/internal/app/system/timeouts"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// listJoinRequests handles GET /api/groups/{groupID}/join-requests.
// ?status=open (default) or ?status=all.
func (h *Handler) listJoinRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	openOnly := normalize.Token(query.Get(r, "status")) != "all"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list join requests")
	defer cancel()

	list, err := h.Engine.ListJoinRequests(ctx, caller, groupID, openOnly)
	if err != nil {
		h.fail(w, r, "list join requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"join_requests": list})
}

type createJoinRequestRequest struct {
	Message string `json:"message"`
}

// createJoinRequest handles POST /api/groups/{groupID}/join-requests.
func (h *Handler) createJoinRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	var req createJoinRequestRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create join request")
	defer cancel()

	jr, err := h.Engine.CreateJoinRequest(ctx, caller, groupID, normalize.Message(req.Message))
	if err != nil {
		h.fail(w, r, "create join request", err)
		return
	}
	writeJSON(w, http.StatusCreated, jr)
}

type choiceRequest struct {
	Vote     string `json:"vote"`
	Decision string `json:"decision"`
}

func (c choiceRequest) choice() models.Choice {
	if c.Vote != "" {
		return models.Choice(normalize.Token(c.Vote))
	}
	return models.Choice(normalize.Token(c.Decision))
}

func readChoice(w http.ResponseWriter, r *http.Request) (models.Choice, bool) {
	var req choiceRequest
	if !decode(w, r, &req) {
		return "", false
	}
	c := req.choice()
	if !c.Valid() {
		uierrors.BadRequest(w, `Vote must be "approve" or "reject".`)
		return "", false
	}
	return c, true
}

// handleJoinRequest handles POST /api/groups/{groupID}/join-requests/{requestID}/handle.
func (h *Handler) handleJoinRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := idParam(w, r, "requestID")
	if !ok {
		return
	}
	choice, ok := readChoice(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "handle join request")
	defer cancel()

	jr, err := h.Engine.HandleJoinRequest(ctx, caller, requestID, choice)
	if err != nil {
		h.fail(w, r, "handle join request", err)
		return
	}
	writeJSON(w, http.StatusOK, jr)
}

// castJoinVote handles POST /api/groups/{groupID}/join-requests/{requestID}/votes.
func (h *Handler) castJoinVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := idParam(w, r, "requestID")
	if !ok {
		return
	}
	choice, ok := readChoice(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "vote on join request")
	defer cancel()

	jr, err := h.Engine.CastJoinVote(ctx, caller, requestID, choice)
	if err != nil {
		h.fail(w, r, "vote on join request", err)
		return
	}
	writeJSON(w, http.StatusOK, jr)
}
