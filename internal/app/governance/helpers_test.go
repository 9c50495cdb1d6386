package governance_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/civic/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

func boolPtr(b bool) *bool { return &b }

// wantErr fails unless err matches the sentinel.
func wantErr(t *testing.T, err, sentinel error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", sentinel)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v (code %q)", sentinel, err, governance.CodeOf(err))
	}
}

func propose(t *testing.T, g *testutil.Governance, proposer primitive.ObjectID, action models.ActionType, target primitive.ObjectID) models.Proposal {
	t.Helper()
	p, err := g.Engine.CreateProposal(bg(), proposer, g.GroupID, governance.ProposalInput{
		ActionType:   action,
		TargetUserID: ptr(target),
	})
	if err != nil {
		t.Fatalf("CreateProposal(%s) failed: %v", action, err)
	}
	return p
}

func vote(t *testing.T, g *testutil.Governance, voter, proposalID primitive.ObjectID, choice models.Choice) models.Proposal {
	t.Helper()
	p, err := g.Engine.VoteOnProposal(bg(), voter, proposalID, choice)
	if err != nil {
		t.Fatalf("VoteOnProposal failed: %v", err)
	}
	return p
}

func countEntries(g *testutil.Governance, action models.AuditAction) int {
	return len(g.Entries(action))
}
