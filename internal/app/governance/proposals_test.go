package governance_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/civic/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestKickApprovedByQuorum(t *testing.T) {
	// 1 founder + 3 managers + 6 members: four voters, quorum of two.
	g := testutil.NewGovernance(t, 3, 6)
	target := g.Members[0]

	p := propose(t, g, g.Managers[0], models.ActionKick, target)
	if p.Status != models.ProposalActive {
		t.Fatalf("status: got %q, want active", p.Status)
	}
	if p.RequiredVotes != 2 {
		t.Errorf("required votes: got %d, want 2", p.RequiredVotes)
	}
	if p.Bootstrap {
		t.Error("proposal should not use the bootstrap fast path")
	}
	if len(p.Votes) != 1 || p.Votes[0].VoterID != g.Managers[0] || p.Votes[0].Vote != models.ChoiceApprove {
		t.Errorf("proposer vote not auto-cast: %+v", p.Votes)
	}
	if p.Category != models.CategoryMemberAction {
		t.Errorf("category: got %q", p.Category)
	}

	p = vote(t, g, g.Managers[1], p.ID, models.ChoiceApprove)
	if p.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", p.Status)
	}
	if p.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}
	if p.Execution == nil || p.Execution.Result != string(models.AuditRemoval) || p.Execution.Attempts != 1 {
		t.Errorf("execution record: %+v", p.Execution)
	}
	if got := g.Role(t, target); got != "" {
		t.Errorf("target still a %q", got)
	}
	if n := countEntries(g, models.AuditRemoval); n != 1 {
		t.Errorf("expected 1 removal entry, got %d", n)
	}
	if n := countEntries(g, models.AuditVoteResolutionApproved); n != 1 {
		t.Errorf("expected 1 resolution entry, got %d", n)
	}
	removal := g.Entries(models.AuditRemoval)[0]
	if removal.RefID == nil || *removal.RefID != p.ID {
		t.Errorf("removal entry does not reference the proposal")
	}
}

func TestDemoteFounderRejectedAtCreation(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	before := g.Backend.Audit.Len()

	_, err := g.Engine.CreateProposal(bg(), g.Managers[0], g.GroupID, governance.ProposalInput{
		ActionType:   models.ActionDemote,
		TargetUserID: ptr(g.Founder),
	})
	wantErr(t, err, governance.ErrInvalidTarget)

	list, _ := g.Backend.Proposals.ListByGroup(bg(), g.GroupID, nil, 0)
	if len(list) != 0 {
		t.Errorf("expected no persisted proposals, got %d", len(list))
	}
	if g.Backend.Audit.Len() != before {
		t.Error("a rejected creation must not write to the ledger")
	}
}

func TestCreateProposal_Rejections(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	stranger := g.NewUser("Stranger")

	tests := []struct {
		name     string
		proposer primitive.ObjectID
		in       governance.ProposalInput
		want     error
	}{
		{"non-manager proposer", g.Members[0], governance.ProposalInput{ActionType: models.ActionKick, TargetUserID: ptr(g.Members[1])}, governance.ErrNotAuthorized},
		{"stranger proposer", stranger, governance.ProposalInput{ActionType: models.ActionKick, TargetUserID: ptr(g.Members[1])}, governance.ErrNotAuthorized},
		{"self target", g.Managers[0], governance.ProposalInput{ActionType: models.ActionDemote, TargetUserID: ptr(g.Managers[0])}, governance.ErrInvalidTarget},
		{"missing target", g.Managers[0], governance.ProposalInput{ActionType: models.ActionKick}, governance.ErrInvalidTarget},
		{"target not a member", g.Managers[0], governance.ProposalInput{ActionType: models.ActionKick, TargetUserID: ptr(stranger)}, governance.ErrInvalidTarget},
		{"promote a manager", g.Managers[0], governance.ProposalInput{ActionType: models.ActionPromote, TargetUserID: ptr(g.Managers[1])}, governance.ErrInvalidTarget},
		{"demote a member", g.Managers[0], governance.ProposalInput{ActionType: models.ActionDemote, TargetUserID: ptr(g.Members[0])}, governance.ErrInvalidTarget},
		{"kick the founder", g.Managers[0], governance.ProposalInput{ActionType: models.ActionKick, TargetUserID: ptr(g.Founder)}, governance.ErrInvalidTarget},
		{"reconfirm a member", g.Managers[0], governance.ProposalInput{ActionType: models.ActionReconfirmManager, TargetUserID: ptr(g.Members[0])}, governance.ErrInvalidTarget},
		{"revert directly", g.Managers[0], governance.ProposalInput{ActionType: models.ActionRevertPromotion, TargetUserID: ptr(g.Managers[1])}, governance.ErrInvalidOperation},
		{"unknown action", g.Managers[0], governance.ProposalInput{ActionType: "ban_forever"}, governance.ErrInvalidOperation},
		{"category mismatch", g.Managers[0], governance.ProposalInput{Category: models.CategoryPolicy, ActionType: models.ActionKick, TargetUserID: ptr(g.Members[0])}, governance.ErrInvalidOperation},
		{"policy with target", g.Managers[0], governance.ProposalInput{ActionType: models.ActionCustom, Title: "x", TargetUserID: ptr(g.Members[0])}, governance.ErrInvalidOperation},
		{"fund without amount", g.Managers[0], governance.ProposalInput{ActionType: models.ActionApproveFund, Title: "Roof"}, governance.ErrInvalidOperation},
		{"visibility without value", g.Managers[0], governance.ProposalInput{ActionType: models.ActionChangeVisibility}, governance.ErrInvalidOperation},
		{"empty description", g.Managers[0], governance.ProposalInput{ActionType: models.ActionAmendDescription, Payload: &models.PolicyPayload{Description: "<p></p>"}}, governance.ErrInvalidOperation},
		{"custom without title", g.Managers[0], governance.ProposalInput{ActionType: models.ActionCustom}, governance.ErrInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Engine.CreateProposal(bg(), tt.proposer, g.GroupID, tt.in)
			wantErr(t, err, tt.want)
		})
	}

	list, _ := g.Backend.Proposals.ListByGroup(bg(), g.GroupID, nil, 0)
	if len(list) != 0 {
		t.Errorf("expected no persisted proposals, got %d", len(list))
	}
}

func TestCreateProposal_DuplicateActive(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	propose(t, g, g.Managers[0], models.ActionKick, g.Members[0])

	_, err := g.Engine.CreateProposal(bg(), g.Managers[1], g.GroupID, governance.ProposalInput{
		ActionType:   models.ActionKick,
		TargetUserID: ptr(g.Members[0]),
	})
	wantErr(t, err, governance.ErrInvalidOperation)

	// A different action against the same member is allowed.
	propose(t, g, g.Managers[1], models.ActionPromote, g.Members[0])
}

func TestRequiredVotesFrozenAtCreation(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	p := propose(t, g, g.Managers[0], models.ActionKick, g.Members[0])

	// Grow the manager pool to six; the quorum stays at two.
	for _, m := range g.Members[1:3] {
		if err := g.Engine.SetRole(bg(), g.Founder, g.GroupID, m, models.RoleManager); err != nil {
			t.Fatalf("SetRole failed: %v", err)
		}
	}

	got, err := g.Engine.GetProposal(bg(), g.Managers[0], p.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if got.RequiredVotes != 2 {
		t.Errorf("required votes changed to %d", got.RequiredVotes)
	}

	got = vote(t, g, g.Members[1], p.ID, models.ChoiceApprove)
	if got.Status != models.ProposalApproved {
		t.Errorf("status: got %q, want approved", got.Status)
	}
}

func TestTargetNeverVotes(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	target := g.Managers[2]
	p := propose(t, g, g.Managers[0], models.ActionDemote, target)

	_, err := g.Engine.VoteOnProposal(bg(), target, p.ID, models.ChoiceReject)
	wantErr(t, err, governance.ErrInvalidTarget)

	// Three eligible voters, quorum two: approve 1 / reject 1 is still open.
	p = vote(t, g, g.Managers[1], p.ID, models.ChoiceReject)
	if p.Status != models.ProposalActive {
		t.Fatalf("status after 1-1: got %q, want active", p.Status)
	}
	p = vote(t, g, g.Founder, p.ID, models.ChoiceReject)
	if p.Status != models.ProposalRejected {
		t.Fatalf("status after 1-2: got %q, want rejected", p.Status)
	}

	for _, v := range p.Votes {
		if v.VoterID == target {
			t.Error("target appears among the votes")
		}
	}
	if got := g.Role(t, target); got != models.RoleManager {
		t.Errorf("rejected demotion changed role to %q", got)
	}
	if n := countEntries(g, models.AuditVoteResolutionRejected); n != 1 {
		t.Errorf("expected 1 rejection entry, got %d", n)
	}
	if n := countEntries(g, models.AuditDemotion); n != 0 {
		t.Errorf("expected no demotion entry, got %d", n)
	}
}

func TestVoteOnProposal_Rejections(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	p := propose(t, g, g.Managers[0], models.ActionKick, g.Members[0])

	_, err := g.Engine.VoteOnProposal(bg(), g.Managers[0], p.ID, models.ChoiceApprove)
	wantErr(t, err, governance.ErrAlreadyVoted)

	_, err = g.Engine.VoteOnProposal(bg(), g.Members[1], p.ID, models.ChoiceApprove)
	wantErr(t, err, governance.ErrNotAuthorized)

	_, err = g.Engine.VoteOnProposal(bg(), g.Managers[1], p.ID, "abstain")
	wantErr(t, err, governance.ErrInvalidOperation)

	_, err = g.Engine.VoteOnProposal(bg(), g.Managers[1], primitive.NewObjectID(), models.ChoiceApprove)
	wantErr(t, err, governance.ErrNotFound)

	vote(t, g, g.Managers[1], p.ID, models.ChoiceApprove)

	// Terminal proposals accept no further votes.
	_, err = g.Engine.VoteOnProposal(bg(), g.Managers[2], p.ID, models.ChoiceReject)
	wantErr(t, err, governance.ErrInvalidOperation)
}

func TestReconfirmApprovalDemotes(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	target := g.Managers[2]

	p := propose(t, g, g.Managers[0], models.ActionReconfirmManager, target)
	p = vote(t, g, g.Managers[1], p.ID, models.ChoiceApprove)

	if p.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", p.Status)
	}
	if got := g.Role(t, target); got != models.RoleMember {
		t.Errorf("approved reconfirmation left role %q, want member", got)
	}
	demotions := g.Entries(models.AuditDemotion)
	if len(demotions) != 1 || demotions[0].Details["proposal_action"] != string(models.ActionReconfirmManager) {
		t.Errorf("unexpected demotion entries: %+v", demotions)
	}
}

func TestBootstrapMemberActionResolvesImmediately(t *testing.T) {
	g := testutil.NewGovernance(t, 0, 2)

	p := propose(t, g, g.Founder, models.ActionPromote, g.Members[0])
	if !p.Bootstrap {
		t.Error("expected bootstrap proposal")
	}
	if p.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", p.Status)
	}
	if got := g.Role(t, g.Members[0]); got != models.RoleManager {
		t.Errorf("role: got %q, want manager", got)
	}
}

func TestViolationOnlyAllowsPromotions(t *testing.T) {
	// Five members and a lone founder: below the two-manager minimum.
	g := testutil.NewGovernance(t, 0, 4)

	_, err := g.Engine.CreateProposal(bg(), g.Founder, g.GroupID, governance.ProposalInput{
		ActionType:   models.ActionKick,
		TargetUserID: ptr(g.Members[0]),
	})
	wantErr(t, err, governance.ErrGovernanceViolation)
	var ge *governance.Error
	if !errors.As(err, &ge) || ge.Hint != governance.HintPromote {
		t.Errorf("expected promote hint, got %+v", ge)
	}

	_, err = g.Engine.CreateProposal(bg(), g.Founder, g.GroupID, governance.ProposalInput{
		ActionType: models.ActionCustom,
		Title:      "Picnic",
	})
	wantErr(t, err, governance.ErrGovernanceViolation)

	p := propose(t, g, g.Founder, models.ActionPromote, g.Members[0])
	if p.Status != models.ProposalApproved {
		t.Fatalf("promotion status: got %q, want approved", p.Status)
	}

	// Two managers now; other proposals are allowed again.
	propose(t, g, g.Founder, models.ActionKick, g.Members[1])
}

func TestPolicyProposals(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)

	t.Run("approve_fund", func(t *testing.T) {
		p, err := g.Engine.CreateProposal(bg(), g.Founder, g.GroupID, governance.ProposalInput{
			ActionType: models.ActionApproveFund,
			Title:      "<b>Roof</b> repair",
			Payload:    &models.PolicyPayload{TargetAmount: 500, Description: "Fix it"},
		})
		if err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}
		if p.Category != models.CategoryPolicy || p.Bootstrap {
			t.Errorf("category=%q bootstrap=%v", p.Category, p.Bootstrap)
		}
		if p.Title != "Roof repair" || p.PolicyPayload.Title != "Roof repair" {
			t.Errorf("title not sanitized or merged: %q / %q", p.Title, p.PolicyPayload.Title)
		}
		p = vote(t, g, g.Managers[0], p.ID, models.ChoiceApprove)
		if p.Status != models.ProposalApproved {
			t.Fatalf("status: got %q", p.Status)
		}
		funds, _ := g.Backend.Funds.ListByGroup(bg(), g.GroupID)
		if len(funds) != 1 || funds[0].TargetAmount != 500 || funds[0].ProposalID != p.ID {
			t.Fatalf("unexpected funds: %+v", funds)
		}
		entries := g.Entries(models.AuditFundApproved)
		if len(entries) != 1 || entries[0].Details["target_amount"] != "500.00" {
			t.Errorf("fund entry: %+v", entries)
		}
	})

	t.Run("change_visibility", func(t *testing.T) {
		p, err := g.Engine.CreateProposal(bg(), g.Founder, g.GroupID, governance.ProposalInput{
			ActionType: models.ActionChangeVisibility,
			Payload:    &models.PolicyPayload{IsPublic: boolPtr(true)},
		})
		if err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}
		if p.Title != governance.Label(models.ActionChangeVisibility) {
			t.Errorf("default title: got %q", p.Title)
		}
		vote(t, g, g.Managers[0], p.ID, models.ChoiceApprove)
		group, _ := g.Backend.Groups.GetByID(bg(), g.GroupID)
		if !group.IsPublic {
			t.Error("group should be public")
		}
		if n := countEntries(g, models.AuditVisibilityChanged); n != 1 {
			t.Errorf("expected 1 visibility entry, got %d", n)
		}
	})

	t.Run("amend_description", func(t *testing.T) {
		p, err := g.Engine.CreateProposal(bg(), g.Founder, g.GroupID, governance.ProposalInput{
			ActionType: models.ActionAmendDescription,
			Payload:    &models.PolicyPayload{Description: "We grow <script>x</script>tomatoes"},
		})
		if err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}
		vote(t, g, g.Managers[0], p.ID, models.ChoiceApprove)
		group, _ := g.Backend.Groups.GetByID(bg(), g.GroupID)
		if group.Description != "We grow tomatoes" {
			t.Errorf("description: got %q", group.Description)
		}
	})

	t.Run("custom", func(t *testing.T) {
		p, err := g.Engine.CreateProposal(bg(), g.Founder, g.GroupID, governance.ProposalInput{
			ActionType: models.ActionCustom,
			Title:      "Monthly picnic",
		})
		if err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}
		vote(t, g, g.Managers[0], p.ID, models.ChoiceApprove)
		entries := g.Entries(models.AuditCustomFollowUp)
		if len(entries) != 1 || entries[0].Details["follow_up"] != "manual" {
			t.Errorf("custom entry: %+v", entries)
		}
	})
}

func TestProposalReads(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	stranger := g.NewUser("Stranger")

	first := propose(t, g, g.Managers[0], models.ActionKick, g.Members[0])
	vote(t, g, g.Managers[1], first.ID, models.ChoiceApprove)
	g.Clock.Advance(1)
	second := propose(t, g, g.Managers[0], models.ActionPromote, g.Members[1])

	_, err := g.Engine.GetProposal(bg(), stranger, second.ID)
	wantErr(t, err, governance.ErrNotAuthorized)

	_, err = g.Engine.GetProposal(bg(), g.Members[2], primitive.NewObjectID())
	wantErr(t, err, governance.ErrNotFound)

	got, err := g.Engine.GetProposal(bg(), g.Members[2], second.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("wrong proposal returned")
	}

	active, err := g.Engine.GetActiveProposals(bg(), g.Members[2], g.GroupID)
	if err != nil {
		t.Fatalf("GetActiveProposals failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Errorf("active: %+v", active)
	}

	resolved, err := g.Engine.GetResolvedProposals(bg(), g.Members[2], g.GroupID, 0)
	if err != nil {
		t.Fatalf("GetResolvedProposals failed: %v", err)
	}
	if len(resolved) != 1 || resolved[0].ID != first.ID {
		t.Errorf("resolved: %+v", resolved)
	}

	_, err = g.Engine.GetActiveProposals(bg(), stranger, g.GroupID)
	wantErr(t, err, governance.ErrNotAuthorized)
}

func TestConcurrentVotesResolveOnce(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	p := propose(t, g, g.Managers[0], models.ActionKick, g.Members[0])

	voters := []primitive.ObjectID{g.Founder, g.Managers[1], g.Managers[2]}
	errs := make([]error, len(voters))
	var wg sync.WaitGroup
	for i, v := range voters {
		wg.Add(1)
		go func(i int, v primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = g.Engine.VoteOnProposal(bg(), v, p.ID, models.ChoiceApprove)
		}(i, v)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if !errors.Is(err, governance.ErrInvalidOperation) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful vote, got %d", ok)
	}
	if n := countEntries(g, models.AuditVoteResolutionApproved); n != 1 {
		t.Errorf("expected 1 resolution entry, got %d", n)
	}
	if n := countEntries(g, models.AuditRemoval); n != 1 {
		t.Errorf("expected 1 removal entry, got %d", n)
	}
}

func TestEveryTransitionWritesOneEntry(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	ledgerSize := g.Backend.Audit.Len()
	grew := func(want int) {
		t.Helper()
		n := g.Backend.Audit.Len()
		if n-ledgerSize != want {
			t.Errorf("ledger grew by %d, want %d", n-ledgerSize, want)
		}
		ledgerSize = n
	}

	p := propose(t, g, g.Managers[0], models.ActionDemote, g.Managers[2])
	grew(1) // proposal_created

	vote(t, g, g.Managers[1], p.ID, models.ChoiceReject)
	grew(0) // a non-deciding ballot is not a transition

	vote(t, g, g.Founder, p.ID, models.ChoiceReject)
	grew(1) // vote_resolution_rejected

	p = propose(t, g, g.Managers[0], models.ActionPromote, g.Members[0])
	grew(1)
	vote(t, g, g.Managers[1], p.ID, models.ChoiceApprove)
	grew(2) // promotion effect + vote_resolution_approved
}

func TestTransferFounderProposal_FounderOnly(t *testing.T) {
	cases := []struct {
		name     string
		managers int
		members  int
	}{
		{"bootstrap", 1, 1},
		{"quorum", 3, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := testutil.NewGovernance(t, tc.managers, tc.members)
			before := g.Backend.Audit.Len()

			_, err := g.Engine.CreateProposal(bg(), g.Managers[0], g.GroupID, governance.ProposalInput{
				ActionType:   models.ActionTransferFounder,
				TargetUserID: ptr(g.Members[0]),
			})
			wantErr(t, err, governance.ErrNotAuthorized)

			list, _ := g.Backend.Proposals.ListByGroup(bg(), g.GroupID, nil, 0)
			if len(list) != 0 {
				t.Errorf("expected no persisted proposals, got %d", len(list))
			}
			if g.Backend.Audit.Len() != before {
				t.Error("a rejected creation must not write to the ledger")
			}
			if got := g.Role(t, g.Founder); got != models.RoleFounder {
				t.Errorf("founder role changed to %q", got)
			}
		})
	}
}

func TestTransferFounderProposal_Bootstrap(t *testing.T) {
	g := testutil.NewGovernance(t, 1, 1)

	p := propose(t, g, g.Founder, models.ActionTransferFounder, g.Managers[0])
	if p.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", p.Status)
	}
	if got := g.Role(t, g.Managers[0]); got != models.RoleFounder {
		t.Errorf("new founder role: got %q", got)
	}
	if got := g.Role(t, g.Founder); got != models.RoleManager {
		t.Errorf("previous founder role: got %q, want manager", got)
	}
}

func TestTransferFounderProposal_Quorum(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	heir := g.Managers[0]

	p := propose(t, g, g.Founder, models.ActionTransferFounder, heir)
	if p.Status != models.ProposalActive {
		t.Fatalf("status: got %q, want active", p.Status)
	}
	p = vote(t, g, g.Managers[1], p.ID, models.ChoiceApprove)
	if p.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", p.Status)
	}
	if got := g.Role(t, heir); got != models.RoleFounder {
		t.Errorf("new founder role: got %q", got)
	}
	if got := g.Role(t, g.Founder); got != models.RoleManager {
		t.Errorf("previous founder role: got %q, want manager", got)
	}
	entries := g.Entries(models.AuditFounderTransfer)
	if len(entries) != 1 {
		t.Fatalf("expected 1 founder_transfer entry, got %d", len(entries))
	}
	if entries[0].RefID == nil || *entries[0].RefID != p.ID {
		t.Error("founder_transfer entry does not reference the proposal")
	}
	counts, _ := g.Engine.CountByRole(bg(), g.GroupID)
	if counts.Founder != 1 {
		t.Errorf("expected exactly one founder, got %d", counts.Founder)
	}
}

func TestTransferFounderProposal_FailsAfterFounderChanges(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	p := propose(t, g, g.Founder, models.ActionTransferFounder, g.Managers[0])

	if err := g.Engine.TransferFounder(bg(), g.Founder, g.GroupID, g.Managers[1]); err != nil {
		t.Fatalf("TransferFounder failed: %v", err)
	}

	failed, err := g.Engine.VoteOnProposal(bg(), g.Managers[2], p.ID, models.ChoiceApprove)
	wantErr(t, err, governance.ErrExecutionFailed)
	if failed.Status != models.ProposalExecutionFailed {
		t.Fatalf("status: got %q, want execution_failed", failed.Status)
	}
	if got := g.Role(t, g.Managers[1]); got != models.RoleFounder {
		t.Errorf("founder role moved to someone else: %q", got)
	}
	if got := g.Role(t, g.Managers[0]); got != models.RoleManager {
		t.Errorf("proposed heir role: got %q, want manager", got)
	}
	if n := countEntries(g, models.AuditFounderTransfer); n != 1 {
		t.Errorf("expected only the direct transfer entry, got %d", n)
	}
}
