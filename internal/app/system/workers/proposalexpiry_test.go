package workers_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/system/workers"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/civic/internal/testutil"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpired(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, s.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestProposalExpirySweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &countingSweeper{}
	w := workers.NewProposalExpirySweeper(s, zap.NewNop(), 10*time.Millisecond)
	w.Start()

	waitFor(t, func() bool { return s.calls.Load() >= 3 })

	w.Stop()
	w.Stop()

	after := s.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if s.calls.Load() != after {
		t.Error("sweeper kept running after Stop")
	}
}

func TestProposalExpirySweeper_LogsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.ErrorLevel)
	s := &countingSweeper{err: errors.New("mongo unavailable")}
	w := workers.NewProposalExpirySweeper(s, zap.New(core), time.Hour)
	w.Start()

	waitFor(t, func() bool { return logs.FilterMessage("proposal expiry sweep failed").Len() == 1 })
	w.Stop()
}

func TestProposalExpirySweeper_ExpiresOverdueProposals(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := testutil.NewGovernance(t, 2, 3)
	p, err := g.Engine.CreateProposal(context.Background(), g.Founder, g.GroupID, governance.ProposalInput{
		ActionType:   models.ActionPromote,
		TargetUserID: &g.Members[0],
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	g.Clock.Advance(governance.DefaultProposalTTL + time.Minute)

	w := workers.NewProposalExpirySweeper(g.Engine, zap.NewNop(), 10*time.Millisecond)
	w.Start()
	waitFor(t, func() bool { return len(g.Entries(models.AuditProposalExpired)) == 1 })
	w.Stop()

	stored, err := g.Backend.Proposals.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != models.ProposalExpired {
		t.Errorf("status = %q, want expired", stored.Status)
	}
	if n := len(g.Entries(models.AuditProposalExpired)); n != 1 {
		t.Errorf("proposal_expired entries = %d, want 1", n)
	}
}
