package governance_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/store/memstore"
	"github.com/dalemusser/civic/internal/app/system/auditlog"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/civic/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestExecutionFailureAndRetry(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	target := g.Members[0]
	p := propose(t, g, g.Managers[0], models.ActionKick, target)

	// The target leaves before the deciding vote, so the removal cannot apply.
	if err := g.Engine.LeaveGroup(bg(), target, g.GroupID); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	failed, err := g.Engine.VoteOnProposal(bg(), g.Managers[1], p.ID, models.ChoiceApprove)
	wantErr(t, err, governance.ErrExecutionFailed)
	if failed.Status != models.ProposalExecutionFailed {
		t.Fatalf("status: got %q, want execution_failed", failed.Status)
	}
	if failed.Execution == nil || failed.Execution.Attempts != 1 || failed.Execution.LastError == "" {
		t.Errorf("execution record: %+v", failed.Execution)
	}
	if n := countEntries(g, models.AuditExecutionFailed); n != 1 {
		t.Errorf("expected 1 execution_failed entry, got %d", n)
	}
	if n := countEntries(g, models.AuditVoteResolutionApproved); n != 0 {
		t.Errorf("expected no approval entry, got %d", n)
	}

	// Still not applicable: a second failure is recorded.
	_, err = g.Engine.RetryExecution(bg(), g.Founder, p.ID)
	wantErr(t, err, governance.ErrExecutionFailed)
	if n := countEntries(g, models.AuditExecutionFailed); n != 2 {
		t.Errorf("expected 2 execution_failed entries, got %d", n)
	}

	// Once the member is back the retry applies the removal.
	if err := g.Engine.AddMember(bg(), g.Founder, g.GroupID, target, models.RoleMember); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	done, err := g.Engine.RetryExecution(bg(), g.Founder, p.ID)
	if err != nil {
		t.Fatalf("RetryExecution failed: %v", err)
	}
	if done.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", done.Status)
	}
	if done.Execution.Attempts != 3 {
		t.Errorf("attempts: got %d, want 3", done.Execution.Attempts)
	}
	if got := g.Role(t, target); got != "" {
		t.Errorf("target still a %q", got)
	}
	if n := countEntries(g, models.AuditVoteResolutionApproved); n != 1 {
		t.Errorf("expected 1 approval entry, got %d", n)
	}

	// Retrying an applied proposal changes nothing.
	before := g.Backend.Audit.Len()
	again, err := g.Engine.RetryExecution(bg(), g.Founder, p.ID)
	if err != nil {
		t.Fatalf("RetryExecution on approved failed: %v", err)
	}
	if again.Execution.Attempts != 3 || g.Backend.Audit.Len() != before {
		t.Error("retry of an approved proposal must be a no-op")
	}
}

func TestRetryExecution_Rejections(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	p := propose(t, g, g.Managers[0], models.ActionKick, g.Members[0])

	_, err := g.Engine.RetryExecution(bg(), g.Managers[0], p.ID)
	wantErr(t, err, governance.ErrInvalidOperation)

	_, err = g.Engine.RetryExecution(bg(), g.Members[1], p.ID)
	wantErr(t, err, governance.ErrNotAuthorized)

	_, err = g.Engine.RetryExecution(bg(), g.Founder, primitive.NewObjectID())
	wantErr(t, err, governance.ErrNotFound)
}

func TestMissingCollaboratorFailsExecution(t *testing.T) {
	b := memstore.New()
	eng := governance.New(governance.Deps{
		Members:      b.Members,
		JoinRequests: b.JoinRequests,
		Proposals:    b.Proposals,
		Ledger:       auditlog.New(b.Audit, zap.NewNop(), auditlog.Config{}),
	}, governance.Config{}, nil)

	groupID, founder := primitive.NewObjectID(), primitive.NewObjectID()
	if err := b.Members.Add(bg(), models.Member{GroupID: groupID, UserID: founder, Role: models.RoleFounder}); err != nil {
		t.Fatalf("seed founder: %v", err)
	}

	// A lone founder meets a quorum of one, so the proposal executes at once.
	p, err := eng.CreateProposal(bg(), founder, groupID, governance.ProposalInput{
		ActionType: models.ActionApproveFund,
		Title:      "Tools",
		Payload:    &models.PolicyPayload{TargetAmount: 40},
	})
	wantErr(t, err, governance.ErrExecutionFailed)
	if p.Status != models.ProposalExecutionFailed {
		t.Fatalf("status: got %q", p.Status)
	}
	if !strings.Contains(p.Execution.LastError, "collaborator not configured") {
		t.Errorf("last error: %q", p.Execution.LastError)
	}

	_, err = eng.CreateGroup(bg(), founder, governance.GroupInput{Name: "X"})
	wantErr(t, err, governance.ErrInvalidOperation)
}

// flakyMembers fails every role change with err.
type flakyMembers struct {
	governance.MemberStore
	err error
}

func (f flakyMembers) SetRole(ctx context.Context, groupID, userID primitive.ObjectID, role models.Role) error {
	return f.err
}

// flakyLedger refuses entries of one action type.
type flakyLedger struct {
	governance.Ledger
	refuse models.AuditAction
}

func (f flakyLedger) Record(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	if e.ActionType == f.refuse {
		return models.AuditEntry{}, errors.New("ledger unavailable")
	}
	return f.Ledger.Record(ctx, e)
}

// engineOver builds a second engine over g's backend with the given members
// store and ledger.
func engineOver(g *testutil.Governance, members governance.MemberStore, ledger governance.Ledger) *governance.Engine {
	b := g.Backend
	eng := governance.New(governance.Deps{
		Members:      members,
		JoinRequests: b.JoinRequests,
		Proposals:    b.Proposals,
		Ledger:       ledger,
		Groups:       b.Groups,
		Funds:        b.Funds,
		Profiles:     b.Profiles,
	}, governance.Config{}, zap.NewNop())
	eng.SetClock(g.Clock.Now)
	return eng
}

func TestStoreFailureDuringEffectIsRecoverable(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	target := g.Members[0]
	p := propose(t, g, g.Managers[0], models.ActionPromote, target)

	eng := engineOver(g, flakyMembers{MemberStore: g.Backend.Members, err: errors.New("connection reset")}, g.Ledger)
	failed, err := eng.VoteOnProposal(bg(), g.Managers[1], p.ID, models.ChoiceApprove)
	wantErr(t, err, governance.ErrExecutionFailed)
	if failed.Status != models.ProposalExecutionFailed {
		t.Fatalf("status: got %q, want execution_failed", failed.Status)
	}
	if failed.Execution == nil || !strings.Contains(failed.Execution.LastError, "connection reset") {
		t.Errorf("execution record: %+v", failed.Execution)
	}
	if len(failed.Votes) != 2 {
		t.Errorf("deciding ballot lost: %+v", failed.Votes)
	}
	if n := countEntries(g, models.AuditPromotion); n != 0 {
		t.Errorf("expected no promotion entry, got %d", n)
	}
	if n := countEntries(g, models.AuditExecutionFailed); n != 1 {
		t.Errorf("expected 1 execution_failed entry, got %d", n)
	}
	if got := g.Role(t, target); got != models.RoleMember {
		t.Errorf("role: got %q, want member", got)
	}

	stored, err := g.Engine.GetProposal(bg(), g.Founder, p.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if stored.Status != models.ProposalExecutionFailed || len(stored.Votes) != 2 {
		t.Errorf("stored proposal: status %q, %d votes", stored.Status, len(stored.Votes))
	}

	// With the store healthy again a retry applies the promotion.
	done, err := g.Engine.RetryExecution(bg(), g.Founder, p.ID)
	if err != nil {
		t.Fatalf("RetryExecution failed: %v", err)
	}
	if done.Status != models.ProposalApproved {
		t.Fatalf("status: got %q, want approved", done.Status)
	}
	if got := g.Role(t, target); got != models.RoleManager {
		t.Errorf("role after retry: got %q, want manager", got)
	}
	if n := countEntries(g, models.AuditPromotion); n != 1 {
		t.Errorf("expected 1 promotion entry, got %d", n)
	}
}

func TestUnloggedEffectIsUndone(t *testing.T) {
	g := testutil.NewGovernance(t, 3, 6)
	target := g.Members[0]
	p := propose(t, g, g.Managers[0], models.ActionPromote, target)

	eng := engineOver(g, g.Backend.Members, flakyLedger{Ledger: g.Ledger, refuse: models.AuditPromotion})
	failed, err := eng.VoteOnProposal(bg(), g.Managers[1], p.ID, models.ChoiceApprove)
	wantErr(t, err, governance.ErrExecutionFailed)
	if failed.Status != models.ProposalExecutionFailed {
		t.Fatalf("status: got %q, want execution_failed", failed.Status)
	}
	if got := g.Role(t, target); got != models.RoleMember {
		t.Errorf("role: got %q, want member", got)
	}
	if n := countEntries(g, models.AuditPromotion); n != 0 {
		t.Errorf("expected no promotion entry, got %d", n)
	}
	if n := countEntries(g, models.AuditExecutionFailed); n != 1 {
		t.Errorf("expected 1 execution_failed entry, got %d", n)
	}
}

func TestUnloggedRegistryChangesAreUndone(t *testing.T) {
	g := testutil.NewGovernance(t, 1, 2)
	outsider := g.NewUser("Outsider")

	refuse := func(a models.AuditAction) *governance.Engine {
		return engineOver(g, g.Backend.Members, flakyLedger{Ledger: g.Ledger, refuse: a})
	}

	if err := refuse(models.AuditPromotion).SetRole(bg(), g.Founder, g.GroupID, g.Members[0], models.RoleManager); err == nil {
		t.Error("SetRole succeeded without its entry")
	}
	if got := g.Role(t, g.Members[0]); got != models.RoleMember {
		t.Errorf("role after failed SetRole: got %q, want member", got)
	}

	if err := refuse(models.AuditRemoval).RemoveMember(bg(), g.Founder, g.GroupID, g.Members[1]); err == nil {
		t.Error("RemoveMember succeeded without its entry")
	}
	if got := g.Role(t, g.Members[1]); got != models.RoleMember {
		t.Errorf("role after failed RemoveMember: got %q, want member", got)
	}

	if err := refuse(models.AuditJoin).AddMember(bg(), g.Founder, g.GroupID, outsider, models.RoleMember); err == nil {
		t.Error("AddMember succeeded without its entry")
	}
	if got := g.Role(t, outsider); got != "" {
		t.Errorf("outsider became a %q", got)
	}

	if err := refuse(models.AuditFounderTransfer).TransferFounder(bg(), g.Founder, g.GroupID, g.Managers[0]); err == nil {
		t.Error("TransferFounder succeeded without its entry")
	}
	if got := g.Role(t, g.Founder); got != models.RoleFounder {
		t.Errorf("founder role after failed transfer: got %q", got)
	}
	if got := g.Role(t, g.Managers[0]); got != models.RoleManager {
		t.Errorf("manager role after failed transfer: got %q", got)
	}

	if n := len(g.Entries()); n != 0 {
		t.Errorf("expected an empty ledger, got %d entries", n)
	}
}
