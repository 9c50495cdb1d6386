// internal/app/governance/health.go
package governance

import (
	"context"
	"fmt"

	"github.com/dalemusser/civic/internal/app/policy/governancepolicy"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetGovernanceHealth derives the group's health snapshot from live state.
func (e *Engine) GetGovernanceHealth(ctx context.Context, viewerID, groupID primitive.ObjectID) (models.HealthSnapshot, error) {
	if err := e.requireMember(ctx, groupID, viewerID); err != nil {
		return models.HealthSnapshot{}, err
	}
	if err := e.expireLazily(ctx, groupID); err != nil {
		return models.HealthSnapshot{}, err
	}
	in, err := e.healthInput(ctx, groupID)
	if err != nil {
		return models.HealthSnapshot{}, err
	}
	return governancepolicy.Evaluate(in), nil
}

func (e *Engine) healthInput(ctx context.Context, groupID primitive.ObjectID) (governancepolicy.HealthInput, error) {
	members, err := e.members.ListByGroup(ctx, groupID)
	if err != nil {
		return governancepolicy.HealthInput{}, fmt.Errorf("list members: %w", err)
	}
	var counts models.RoleCounts
	managers := make(map[primitive.ObjectID]bool)
	for _, m := range members {
		switch m.Role {
		case models.RoleFounder:
			counts.Founder++
		case models.RoleManager:
			counts.Manager++
		default:
			counts.Member++
		}
		if m.Role.CanManage() {
			managers[m.UserID] = true
		}
	}

	since := e.now().Add(-e.cfg.ParticipationWindow)
	resolved, err := e.proposals.ListResolvedSince(ctx, groupID, since)
	if err != nil {
		return governancepolicy.HealthInput{}, fmt.Errorf("list resolved proposals: %w", err)
	}
	voted := make(map[primitive.ObjectID]bool)
	for _, p := range resolved {
		for _, v := range p.Votes {
			if managers[v.VoterID] {
				voted[v.VoterID] = true
			}
		}
	}

	active, err := e.proposals.CountActive(ctx, groupID)
	if err != nil {
		return governancepolicy.HealthInput{}, fmt.Errorf("count active proposals: %w", err)
	}
	open, err := e.joins.CountOpen(ctx, groupID)
	if err != nil {
		return governancepolicy.HealthInput{}, fmt.Errorf("count open join requests: %w", err)
	}

	return governancepolicy.HealthInput{
		Counts:                counts,
		ResolvedProposals:     len(resolved),
		ParticipatingManagers: len(voted),
		PendingDecisions:      int(active + open),
		ParticipationFloor:    e.cfg.ParticipationFloor,
	}, nil
}
