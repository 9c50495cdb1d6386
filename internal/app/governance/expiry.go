// internal/app/governance/expiry.go
package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// expireOverdue moves every overdue active proposal of the group to expired.
// The caller holds the group lock.
func (e *Engine) expireOverdue(ctx context.Context, groupID primitive.ObjectID) (int, error) {
	active, err := e.proposals.ListByGroup(ctx, groupID, []models.ProposalStatus{models.ProposalActive}, 0)
	if err != nil {
		return 0, fmt.Errorf("list proposals: %w", err)
	}
	now := e.now()
	n := 0
	for _, p := range active {
		if !p.Overdue(now) {
			continue
		}
		ok, err := e.expire(ctx, p)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// expire transitions one proposal. The guarded save runs before the entry is
// written so a proposal another process already expired is skipped without a
// second proposal_expired entry.
func (e *Engine) expire(ctx context.Context, p models.Proposal) (bool, error) {
	p.Status = models.ProposalExpired
	p.ResolvedAt = timePtr(e.now())

	skipped := false
	err := e.inTx(ctx, func(ctx context.Context, j *journal) error {
		skipped = false
		if err := e.proposals.Save(ctx, p, models.ProposalActive, len(p.Votes)); err != nil {
			if isNoDocs(err) {
				skipped = true
				return nil
			}
			return fmt.Errorf("save proposal: %w", err)
		}
		entry := resolutionEntry(p, primitive.NilObjectID, models.AuditProposalExpired)
		entry.Details["expires_at"] = p.ExpiresAt.UTC().Format(time.RFC3339)
		if _, err := j.record(ctx, entry); err != nil {
			return fmt.Errorf("record expiry: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !skipped {
		e.log.Info("proposal expired",
			zap.String("proposal_id", p.ID.Hex()),
			zap.String("group_id", p.GroupID.Hex()))
	}
	return !skipped, nil
}

// expireLazily runs expireOverdue under the group lock, taking the lock only
// when the group has an overdue proposal.
func (e *Engine) expireLazily(ctx context.Context, groupID primitive.ObjectID) error {
	active, err := e.proposals.ListByGroup(ctx, groupID, []models.ProposalStatus{models.ProposalActive}, 0)
	if err != nil {
		return fmt.Errorf("list proposals: %w", err)
	}
	now := e.now()
	overdue := false
	for _, p := range active {
		if p.Overdue(now) {
			overdue = true
			break
		}
	}
	if !overdue {
		return nil
	}
	unlock := e.lockGroup(groupID)
	defer unlock()
	_, err = e.expireOverdue(ctx, groupID)
	return err
}

// SweepExpired expires overdue proposals across every group and returns how
// many it expired. Repeated sweeps never expire a proposal twice.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	overdue, err := e.proposals.ListOverdue(ctx, e.now(), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list overdue proposals: %w", err)
	}
	seen := make(map[primitive.ObjectID]bool)
	total := 0
	for _, p := range overdue {
		if seen[p.GroupID] {
			continue
		}
		seen[p.GroupID] = true
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := e.sweepGroup(ctx, p.GroupID)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (e *Engine) sweepGroup(ctx context.Context, groupID primitive.ObjectID) (int, error) {
	unlock := e.lockGroup(groupID)
	defer unlock()
	return e.expireOverdue(ctx, groupID)
}
