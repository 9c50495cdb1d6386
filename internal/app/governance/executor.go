// internal/app/governance/executor.go
package governance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// resolutionEntry builds the ledger entry for a proposal transition.
func resolutionEntry(p models.Proposal, actorID primitive.ObjectID, action models.AuditAction) models.AuditEntry {
	approve, reject := models.Tally(p.Votes)
	return models.AuditEntry{
		GroupID:    p.GroupID,
		ActionType: action,
		ActorID:    actorID,
		TargetID:   p.TargetUserID,
		RefID:      oidPtr(p.ID),
		Details: map[string]string{
			"proposal_action": string(p.ActionType),
			"approve_votes":   strconv.Itoa(approve),
			"reject_votes":    strconv.Itoa(reject),
			"required_votes":  strconv.Itoa(p.RequiredVotes),
		},
	}
}

// saveProposal persists p if it is still in status expect with priorVotes
// ballots.
func (e *Engine) saveProposal(ctx context.Context, p models.Proposal, expect models.ProposalStatus, priorVotes int) error {
	if err := e.proposals.Save(ctx, p, expect, priorVotes); err != nil {
		if isNoDocs(err) {
			return invalidOperation("This proposal changed while you were acting on it. Reload and try again.")
		}
		return fmt.Errorf("save proposal: %w", err)
	}
	return nil
}

// execute applies an approved proposal. The effect, the transition to
// approved, and both ledger entries commit together. When the effect fails
// the proposal moves to execution_failed instead and the caller receives an
// ExecutionFailed error; RetryExecution can apply it later.
func (e *Engine) execute(ctx context.Context, p models.Proposal, actorID primitive.ObjectID, expect models.ProposalStatus, priorVotes int) (models.Proposal, error) {
	rule, ok := ruleFor(p.ActionType)
	if !ok {
		return p, invalidOperation("Unknown proposal type %q.", p.ActionType)
	}

	now := e.now()
	attempts := 1
	if p.Execution != nil {
		attempts = p.Execution.Attempts + 1
	}
	resolvedAt := p.ResolvedAt
	if resolvedAt == nil {
		resolvedAt = timePtr(now)
	}

	var done models.Proposal
	err := e.inTx(ctx, func(ctx context.Context, j *journal) error {
		effect, err := rule.apply(ctx, e, j, p)
		if err != nil {
			return err
		}
		done = p
		done.Status = models.ProposalApproved
		done.ResolvedAt = resolvedAt
		done.Execution = &models.Execution{
			Attempts:   attempts,
			Result:     string(effect.ActionType),
			EntryID:    effect.ID,
			ExecutedAt: timePtr(now),
		}
		if _, err := j.record(ctx, resolutionEntry(done, actorID, models.AuditVoteResolutionApproved)); err != nil {
			return fmt.Errorf("record resolution: %w", err)
		}
		return e.saveProposal(ctx, done, expect, priorVotes)
	})
	if err == nil {
		e.log.Info("proposal approved",
			zap.String("proposal_id", p.ID.Hex()),
			zap.String("group_id", p.GroupID.Hex()),
			zap.String("action", string(p.ActionType)),
			zap.Int("attempt", attempts))
		return done, nil
	}

	var fx effectError
	if !errors.As(err, &fx) {
		return p, err
	}

	failed := p
	failed.Status = models.ProposalExecutionFailed
	failed.ResolvedAt = resolvedAt
	failed.Execution = &models.Execution{Attempts: attempts, LastError: fx.err.Error()}
	err = e.inTx(ctx, func(ctx context.Context, j *journal) error {
		entry := resolutionEntry(failed, actorID, models.AuditExecutionFailed)
		entry.Details["attempt"] = strconv.Itoa(attempts)
		entry.Details["error"] = fx.err.Error()
		if _, err := j.record(ctx, entry); err != nil {
			return fmt.Errorf("record execution failure: %w", err)
		}
		return e.saveProposal(ctx, failed, expect, priorVotes)
	})
	if err != nil {
		return p, err
	}
	e.log.Warn("proposal execution failed",
		zap.String("proposal_id", p.ID.Hex()),
		zap.String("group_id", p.GroupID.Hex()),
		zap.String("action", string(p.ActionType)),
		zap.Int("attempt", attempts),
		zap.Error(fx.err))
	return failed, executionFailed(fx.err)
}

// reject moves an active proposal to rejected.
func (e *Engine) reject(ctx context.Context, p models.Proposal, actorID primitive.ObjectID, priorVotes int) (models.Proposal, error) {
	p.Status = models.ProposalRejected
	p.ResolvedAt = timePtr(e.now())
	err := e.inTx(ctx, func(ctx context.Context, j *journal) error {
		if _, err := j.record(ctx, resolutionEntry(p, actorID, models.AuditVoteResolutionRejected)); err != nil {
			return fmt.Errorf("record resolution: %w", err)
		}
		return e.saveProposal(ctx, p, models.ProposalActive, priorVotes)
	})
	if err != nil {
		return models.Proposal{}, err
	}
	return p, nil
}

// RetryExecution re-applies a proposal whose effect failed. Retrying an
// approved proposal is a no-op that returns it unchanged.
func (e *Engine) RetryExecution(ctx context.Context, managerID, proposalID primitive.ObjectID) (models.Proposal, error) {
	p, err := e.loadProposal(ctx, proposalID)
	if err != nil {
		return models.Proposal{}, err
	}
	unlock := e.lockGroup(p.GroupID)
	defer unlock()

	if p, err = e.loadProposal(ctx, proposalID); err != nil {
		return models.Proposal{}, err
	}
	if _, err := e.requireManager(ctx, p.GroupID, managerID); err != nil {
		return models.Proposal{}, err
	}
	switch p.Status {
	case models.ProposalApproved:
		return p, nil
	case models.ProposalExecutionFailed:
		return e.execute(ctx, p, managerID, models.ProposalExecutionFailed, len(p.Votes))
	}
	return models.Proposal{}, invalidOperation("Only a proposal whose execution failed can be retried.")
}
