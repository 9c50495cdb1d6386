// internal/app/governance/proposals.go
package governance

import (
	"context"
	"fmt"

	"github.com/dalemusser/civic/internal/app/policy/governancepolicy"
	"github.com/dalemusser/civic/internal/app/system/htmlsanitize"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultListLimit caps proposal and audit listings when the caller passes
// no limit.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ProposalInput is the caller-supplied part of a new proposal.
type ProposalInput struct {
	Category     models.ProposalCategory
	ActionType   models.ActionType
	TargetUserID *primitive.ObjectID
	Title        string
	Description  string
	Payload      *models.PolicyPayload
}

// CreateProposal opens a proposal with the proposer's approve vote already
// cast. The proposal resolves at once when that vote meets the quorum, or
// when it is a member action taken while the group is in bootstrap mode.
func (e *Engine) CreateProposal(ctx context.Context, proposerID, groupID primitive.ObjectID, in ProposalInput) (models.Proposal, error) {
	if in.ActionType.IsRevert() {
		return models.Proposal{}, invalidOperation("Revert proposals are created from an audit log entry.")
	}
	return e.createProposal(ctx, proposerID, groupID, in, nil)
}

// CreateRevertProposal proposes undoing a logged promotion, demotion, or
// removal in groupID. reason defaults to a description of the original entry.
// An entry from another group is reported as not found.
func (e *Engine) CreateRevertProposal(ctx context.Context, proposerID, groupID, entryID primitive.ObjectID, reason string) (models.Proposal, error) {
	entry, err := e.ledger.GetByID(ctx, entryID)
	if err != nil {
		if isNoDocs(err) {
			return models.Proposal{}, notFound("That audit log entry does not exist.")
		}
		return models.Proposal{}, fmt.Errorf("get audit entry: %w", err)
	}
	if entry.GroupID != groupID {
		return models.Proposal{}, notFound("That audit log entry does not exist.")
	}

	var action models.ActionType
	switch entry.ActionType {
	case models.AuditPromotion:
		action = models.ActionRevertPromotion
	case models.AuditDemotion:
		action = models.ActionRevertDemotion
	case models.AuditRemoval:
		action = models.ActionRevertRemoval
	default:
		return models.Proposal{}, invalidOperation("Only promotions, demotions, and removals can be reverted.")
	}
	if entry.TargetID == nil {
		return models.Proposal{}, invalidOperation("That audit log entry has no target to revert.")
	}

	description := htmlsanitize.PlainText(reason)
	if description == "" {
		who := entry.TargetName
		if who == "" {
			who = entry.TargetID.Hex()
		}
		description = fmt.Sprintf("Revert the %s of %s recorded in audit entry %s.", entry.ActionType, who, entry.ID.Hex())
	}

	return e.createProposal(ctx, proposerID, entry.GroupID, ProposalInput{
		ActionType:   action,
		TargetUserID: entry.TargetID,
		Description:  description,
	}, oidPtr(entry.ID))
}

func (e *Engine) createProposal(ctx context.Context, proposerID, groupID primitive.ObjectID, in ProposalInput, source *primitive.ObjectID) (models.Proposal, error) {
	rule, ok := ruleFor(in.ActionType)
	if !ok {
		return models.Proposal{}, invalidOperation("Unknown proposal type %q.", in.ActionType)
	}
	category := in.ActionType.Category()
	if in.Category != "" && in.Category != category {
		return models.Proposal{}, invalidOperation("A %s proposal belongs to the %s category.", in.ActionType, category)
	}

	title := htmlsanitize.PlainText(in.Title)
	description := htmlsanitize.PlainText(in.Description)
	var payload *models.PolicyPayload
	if category == models.CategoryPolicy {
		payload = sanitizePayload(in.Payload)
		if payload.Title == "" {
			payload.Title = title
		}
		if title == "" {
			title = payload.Title
		}
		if err := rule.validate(payload); err != nil {
			return models.Proposal{}, err
		}
	}
	if title == "" {
		title = rule.label
	}

	unlock := e.lockGroup(groupID)
	defer unlock()

	if _, err := e.expireOverdue(ctx, groupID); err != nil {
		return models.Proposal{}, err
	}
	proposer, err := e.requireManager(ctx, groupID, proposerID)
	if err != nil {
		return models.Proposal{}, err
	}
	if in.ActionType == models.ActionTransferFounder && proposer.Role != models.RoleFounder {
		return models.Proposal{}, notAuthorized("Only the founder can propose transferring the founder role.")
	}
	counts, err := e.CountByRole(ctx, groupID)
	if err != nil {
		return models.Proposal{}, err
	}
	if governancepolicy.Violation(counts) && !governancepolicy.AddsManager(in.ActionType) {
		return models.Proposal{}, governanceViolation("This group needs at least two managers. Only promotions can be proposed until then.")
	}

	var target *primitive.ObjectID
	if rule.targeted {
		if in.TargetUserID == nil || in.TargetUserID.IsZero() {
			return models.Proposal{}, invalidTarget("This proposal needs a target member.")
		}
		if *in.TargetUserID == proposerID {
			return models.Proposal{}, invalidTarget("You cannot create a proposal about yourself.")
		}
		m, err := e.lookupMember(ctx, groupID, *in.TargetUserID)
		if err != nil {
			return models.Proposal{}, err
		}
		if err := rule.eligible(m); err != nil {
			return models.Proposal{}, err
		}
		if err := e.checkDuplicate(ctx, groupID, in.ActionType, *in.TargetUserID); err != nil {
			return models.Proposal{}, err
		}
		target = oidPtr(*in.TargetUserID)
	} else if in.TargetUserID != nil && !in.TargetUserID.IsZero() {
		return models.Proposal{}, invalidOperation("Policy proposals do not take a target member.")
	}

	now := e.now()
	p := models.Proposal{
		ID:               primitive.NewObjectID(),
		GroupID:          groupID,
		ProposerID:       proposerID,
		Category:         category,
		ActionType:       in.ActionType,
		TargetUserID:     target,
		Title:            title,
		Description:      description,
		PolicyPayload:    payload,
		SourceLogEntryID: source,
		Votes:            []models.Vote{{VoterID: proposerID, Vote: models.ChoiceApprove, CastAt: now}},
		RequiredVotes:    governancepolicy.RequiredVotes(counts.Managers()),
		Bootstrap:        category == models.CategoryMemberAction && governancepolicy.IsBootstrap(counts.Total()),
		Status:           models.ProposalActive,
		CreatedAt:        now,
		ExpiresAt:        now.Add(e.cfg.ProposalTTL),
	}

	err = e.inTx(ctx, func(ctx context.Context, j *journal) error {
		entry := models.AuditEntry{
			GroupID:    groupID,
			ActionType: models.AuditProposalCreated,
			ActorID:    proposerID,
			TargetID:   p.TargetUserID,
			RefID:      oidPtr(p.ID),
			Details: map[string]string{
				"proposal_action": string(p.ActionType),
				"title":           p.Title,
				"required_votes":  fmt.Sprint(p.RequiredVotes),
			},
		}
		if source != nil {
			entry.Details["source_log_entry_id"] = source.Hex()
		}
		if _, err := j.record(ctx, entry); err != nil {
			return fmt.Errorf("record proposal: %w", err)
		}
		created, err := e.proposals.Create(ctx, p)
		if err != nil {
			return fmt.Errorf("create proposal: %w", err)
		}
		p = created
		return nil
	})
	if err != nil {
		return models.Proposal{}, err
	}
	e.log.Info("proposal created",
		zap.String("proposal_id", p.ID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.String("action", string(p.ActionType)),
		zap.Int("required_votes", p.RequiredVotes),
		zap.Bool("bootstrap", p.Bootstrap))

	return e.settle(ctx, p, proposerID, counts, 1)
}

func sanitizePayload(in *models.PolicyPayload) *models.PolicyPayload {
	out := &models.PolicyPayload{}
	if in == nil {
		return out
	}
	out.Title = htmlsanitize.PlainText(in.Title)
	out.Description = htmlsanitize.PlainText(in.Description)
	out.TargetAmount = in.TargetAmount
	if in.IsPublic != nil {
		v := *in.IsPublic
		out.IsPublic = &v
	}
	return out
}

// checkDuplicate rejects a second active proposal with the same action and
// target.
func (e *Engine) checkDuplicate(ctx context.Context, groupID primitive.ObjectID, action models.ActionType, target primitive.ObjectID) error {
	active, err := e.proposals.ListByGroup(ctx, groupID, []models.ProposalStatus{models.ProposalActive}, 0)
	if err != nil {
		return fmt.Errorf("list proposals: %w", err)
	}
	for _, p := range active {
		if p.ActionType == action && p.Target() == target {
			return invalidOperation("There is already an active %q proposal for this member.", Label(action))
		}
	}
	return nil
}

// outcome applies the quorum rule to p. The target of a proposal never votes,
// so a targeted manager is not counted as an eligible voter.
func (e *Engine) outcome(ctx context.Context, p models.Proposal, counts models.RoleCounts) (governancepolicy.Outcome, error) {
	approve, reject := models.Tally(p.Votes)
	if p.Bootstrap && approve > 0 {
		return governancepolicy.Approved, nil
	}
	eligible := counts.Managers()
	if p.TargetUserID != nil {
		m, err := e.lookupMember(ctx, p.GroupID, *p.TargetUserID)
		if err != nil {
			return governancepolicy.Undecided, err
		}
		if m != nil && m.Role.CanManage() {
			eligible--
		}
	}
	return governancepolicy.Decide(approve, reject, eligible, p.RequiredVotes), nil
}

// settle resolves p if its votes decide it. priorVotes is the ballot count
// already persisted.
func (e *Engine) settle(ctx context.Context, p models.Proposal, actorID primitive.ObjectID, counts models.RoleCounts, priorVotes int) (models.Proposal, error) {
	out, err := e.outcome(ctx, p, counts)
	if err != nil {
		return models.Proposal{}, err
	}
	switch out {
	case governancepolicy.Approved:
		return e.execute(ctx, p, actorID, models.ProposalActive, priorVotes)
	case governancepolicy.Rejected:
		return e.reject(ctx, p, actorID, priorVotes)
	}
	if len(p.Votes) != priorVotes {
		if err := e.saveProposal(ctx, p, models.ProposalActive, priorVotes); err != nil {
			return models.Proposal{}, err
		}
	}
	return p, nil
}

// VoteOnProposal records a manager's ballot and resolves the proposal when
// the ballot decides it.
func (e *Engine) VoteOnProposal(ctx context.Context, voterID, proposalID primitive.ObjectID, choice models.Choice) (models.Proposal, error) {
	if !choice.Valid() {
		return models.Proposal{}, invalidOperation("A vote must be approve or reject.")
	}
	p, err := e.loadProposal(ctx, proposalID)
	if err != nil {
		return models.Proposal{}, err
	}
	unlock := e.lockGroup(p.GroupID)
	defer unlock()

	if _, err := e.expireOverdue(ctx, p.GroupID); err != nil {
		return models.Proposal{}, err
	}
	if p, err = e.loadProposal(ctx, proposalID); err != nil {
		return models.Proposal{}, err
	}
	if p.Status != models.ProposalActive {
		return models.Proposal{}, invalidOperation("This proposal is already %s.", p.Status)
	}
	if _, err := e.requireManager(ctx, p.GroupID, voterID); err != nil {
		return models.Proposal{}, err
	}
	if p.TargetUserID != nil && *p.TargetUserID == voterID {
		return models.Proposal{}, invalidTarget("You cannot vote on a proposal about yourself.")
	}
	if models.HasVoted(p.Votes, voterID) {
		return models.Proposal{}, alreadyVoted("proposal")
	}
	counts, err := e.CountByRole(ctx, p.GroupID)
	if err != nil {
		return models.Proposal{}, err
	}

	prior := len(p.Votes)
	p.Votes = append(p.Votes, models.Vote{VoterID: voterID, Vote: choice, CastAt: e.now()})
	return e.settle(ctx, p, voterID, counts, prior)
}

func (e *Engine) loadProposal(ctx context.Context, id primitive.ObjectID) (models.Proposal, error) {
	p, err := e.proposals.GetByID(ctx, id)
	if err != nil {
		if isNoDocs(err) {
			return models.Proposal{}, notFound("That proposal does not exist.")
		}
		return models.Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

// requireMember fails with NotAuthorized unless userID belongs to the group.
func (e *Engine) requireMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	m, err := e.lookupMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return notAuthorized("Only group members can see this.")
	}
	return nil
}

// GetProposal returns one proposal to a member of its group.
func (e *Engine) GetProposal(ctx context.Context, viewerID, proposalID primitive.ObjectID) (models.Proposal, error) {
	p, err := e.loadProposal(ctx, proposalID)
	if err != nil {
		return models.Proposal{}, err
	}
	if err := e.requireMember(ctx, p.GroupID, viewerID); err != nil {
		return models.Proposal{}, err
	}
	if p.Overdue(e.now()) {
		if err := e.expireLazily(ctx, p.GroupID); err != nil {
			return models.Proposal{}, err
		}
		return e.loadProposal(ctx, proposalID)
	}
	return p, nil
}

// GetActiveProposals lists the group's open proposals, newest first.
func (e *Engine) GetActiveProposals(ctx context.Context, viewerID, groupID primitive.ObjectID) ([]models.Proposal, error) {
	if err := e.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}
	if err := e.expireLazily(ctx, groupID); err != nil {
		return nil, err
	}
	list, err := e.proposals.ListByGroup(ctx, groupID, []models.ProposalStatus{models.ProposalActive}, 0)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return list, nil
}

var resolvedStatuses = []models.ProposalStatus{
	models.ProposalApproved,
	models.ProposalRejected,
	models.ProposalExpired,
	models.ProposalExecutionFailed,
}

// GetResolvedProposals lists the group's resolved proposals, newest first.
func (e *Engine) GetResolvedProposals(ctx context.Context, viewerID, groupID primitive.ObjectID, limit int64) ([]models.Proposal, error) {
	if err := e.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}
	if err := e.expireLazily(ctx, groupID); err != nil {
		return nil, err
	}
	list, err := e.proposals.ListByGroup(ctx, groupID, resolvedStatuses, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return list, nil
}

func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
