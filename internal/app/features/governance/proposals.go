// internal/app/features/governance/proposals.go
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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listProposals handles GET /api/groups/{groupID}/proposals?state=active|resolved.
func (h *Handler) listProposals(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list proposals")
	defer cancel()

	var (
		list []models.Proposal
		err  error
	)
	switch state := normalize.Token(query.Get(r, "state")); state {
	case "", "active":
		list, err = h.Engine.GetActiveProposals(ctx, caller, groupID)
	case "resolved":
		list, err = h.Engine.GetResolvedProposals(ctx, caller, groupID, paging.ParseLimit(r))
	default:
		uierrors.BadRequest(w, `state must be "active" or "resolved".`)
		return
	}
	if err != nil {
		h.fail(w, r, "list proposals", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": list})
}

type policyPayload struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	TargetAmount float64 `json:"target_amount"`
	IsPublic     *bool   `json:"is_public"`
}

type createProposalRequest struct {
	Category      string         `json:"category"`
	ActionType    string         `json:"action_type"`
	TargetUserID  string         `json:"target_user_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	PolicyPayload *policyPayload `json:"policy_payload"`
}

// createProposal handles POST /api/groups/{groupID}/proposals.
func (h *Handler) createProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	var req createProposalRequest
	if !decode(w, r, &req) {
		return
	}
	target, err := parseID(req.TargetUserID)
	if err != nil {
		uierrors.BadRequest(w, "Invalid target_user_id.")
		return
	}
	in := governance.ProposalInput{
		Category:     models.ProposalCategory(normalize.Token(req.Category)),
		ActionType:   models.ActionType(normalize.Token(req.ActionType)),
		TargetUserID: target,
		Title:        normalize.Title(req.Title),
		Description:  normalize.Message(req.Description),
	}
	if req.PolicyPayload != nil {
		in.Payload = &models.PolicyPayload{
			Title:        normalize.Title(req.PolicyPayload.Title),
			Description:  normalize.Message(req.PolicyPayload.Description),
			TargetAmount: req.PolicyPayload.TargetAmount,
			IsPublic:     req.PolicyPayload.IsPublic,
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create proposal")
	defer cancel()

	p, err := h.Engine.CreateProposal(ctx, caller, groupID, in)
	if err != nil {
		h.fail(w, r, "create proposal", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type revertRequest struct {
	EntryID string `json:"entry_id"`
	Reason  string `json:"reason"`
}

// createRevertProposal handles POST /api/groups/{groupID}/proposals/revert.
func (h *Handler) createRevertProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	var req revertRequest
	if !decode(w, r, &req) {
		return
	}
	entryID, err := primitive.ObjectIDFromHex(req.EntryID)
	if err != nil {
		uierrors.BadRequest(w, "Invalid entry_id.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create revert proposal")
	defer cancel()

	p, err := h.Engine.CreateRevertProposal(ctx, caller, groupID, entryID, normalize.Message(req.Reason))
	if err != nil {
		h.fail(w, r, "create revert proposal", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// loadInGroup fetches the proposal named in the URL and checks it belongs to
// the URL's group. A mismatch is reported as not found.
func (h *Handler) loadInGroup(w http.ResponseWriter, r *http.Request, caller primitive.ObjectID) (models.Proposal, bool) {
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return models.Proposal{}, false
	}
	proposalID, ok := idParam(w, r, "proposalID")
	if !ok {
		return models.Proposal{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "get proposal")
	defer cancel()

	p, err := h.Engine.GetProposal(ctx, caller, proposalID)
	if err != nil {
		h.fail(w, r, "get proposal", err)
		return models.Proposal{}, false
	}
	if p.GroupID != groupID {
		h.fail(w, r, "get proposal", governance.ErrNotFound)
		return models.Proposal{}, false
	}
	return p, true
}

// getProposal handles GET /api/groups/{groupID}/proposals/{proposalID}.
func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	p, ok := h.loadInGroup(w, r, caller)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// voteOnProposal handles POST /api/groups/{groupID}/proposals/{proposalID}/votes.
func (h *Handler) voteOnProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	choice, ok := readChoice(w, r)
	if !ok {
		return
	}
	p, ok := h.loadInGroup(w, r, caller)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "vote on proposal")
	defer cancel()

	p, err := h.Engine.VoteOnProposal(ctx, caller, p.ID, choice)
	if err != nil {
		h.fail(w, r, "vote on proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// retryExecution handles POST /api/groups/{groupID}/proposals/{proposalID}/retry.
func (h *Handler) retryExecution(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	p, ok := h.loadInGroup(w, r, caller)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "retry execution")
	defer cancel()

	p, err := h.Engine.RetryExecution(ctx, caller, p.ID)
	if err != nil {
		h.fail(w, r, "retry execution", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
