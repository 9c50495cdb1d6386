// internal/app/features/governance/routes.go
package governance

import (
	"github.com/dalemusser/civic/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the governance API, mounted under /api/groups.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(auth.RequireSignedIn)
	r.Use(h.limitWrites)

	r.Post("/", h.createGroup)

	r.Route("/{groupID}", func(r chi.Router) {
		r.Get("/members/{userID}/role", h.getRole)
		r.Post("/leave", h.leave)
		r.Post("/transfer-founder", h.transferFounder)

		r.Get("/join-requests", h.listJoinRequests)
		r.Post("/join-requests", h.createJoinRequest)
		r.Post("/join-requests/{requestID}/handle", h.handleJoinRequest)
		r.Post("/join-requests/{requestID}/votes", h.castJoinVote)

		r.Get("/proposals", h.listProposals)
		r.Post("/proposals", h.createProposal)
		r.Post("/proposals/revert", h.createRevertProposal)
		r.Get("/proposals/{proposalID}", h.getProposal)
		r.Post("/proposals/{proposalID}/votes", h.voteOnProposal)
		r.Post("/proposals/{proposalID}/retry", h.retryExecution)

		r.Get("/health", h.health)
		r.Get("/audit-log", h.auditLog)
		r.Post("/moderation-events", h.recordModeration)
	})

	return r
}
