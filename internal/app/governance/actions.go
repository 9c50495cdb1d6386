// internal/app/governance/actions.go
package governance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dalemusser/civic/internal/domain/models"
)

// effectFunc applies an approved proposal and returns the entry recording
// the effect.
type effectFunc func(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error)

// actionRule is everything the engine knows about one action type.
type actionRule struct {
	label string

	// targeted actions require TargetUserID; eligible checks the target's
	// current membership (nil when the target is not a member).
	targeted bool
	eligible func(target *models.Member) error

	// validate checks a policy payload.
	validate func(p *models.PolicyPayload) error

	apply effectFunc
}

// ruleFor returns the rule of a known action type.
func ruleFor(a models.ActionType) (actionRule, bool) {
	switch a {
	case models.ActionPromote:
		return actionRule{
			label:    "Promote to manager",
			targeted: true,
			eligible: needRole(models.RoleMember, "Only members can be promoted to manager."),
			apply:    roleEffect(models.RoleManager, models.AuditPromotion),
		}, true
	case models.ActionDemote:
		return actionRule{
			label:    "Demote to member",
			targeted: true,
			eligible: needRole(models.RoleManager, "Only managers can be demoted."),
			apply:    roleEffect(models.RoleMember, models.AuditDemotion),
		}, true
	case models.ActionKick:
		return actionRule{
			label:    "Remove from group",
			targeted: true,
			eligible: needMember("Only current members can be removed."),
			apply:    removeEffect,
		}, true
	case models.ActionRevertPromotion:
		return actionRule{
			label:    "Revert promotion",
			targeted: true,
			eligible: needRole(models.RoleManager, "The promoted member is no longer a manager."),
			apply:    roleEffect(models.RoleMember, models.AuditDemotion),
		}, true
	case models.ActionRevertDemotion:
		return actionRule{
			label:    "Revert demotion",
			targeted: true,
			eligible: needRole(models.RoleMember, "The demoted manager is no longer a member of this group."),
			apply:    roleEffect(models.RoleManager, models.AuditPromotion),
		}, true
	case models.ActionRevertRemoval:
		return actionRule{
			label:    "Revert removal",
			targeted: true,
			eligible: needNonMember,
			apply:    reinstateEffect,
		}, true
	case models.ActionReconfirmManager:
		// Approve means no confidence: an approved reconfirmation demotes.
		return actionRule{
			label:    "Reconfirm manager (approve = remove from manager role)",
			targeted: true,
			eligible: needRole(models.RoleManager, "Only managers can be put up for reconfirmation."),
			apply:    roleEffect(models.RoleMember, models.AuditDemotion),
		}, true
	case models.ActionTransferFounder:
		return actionRule{
			label:    "Transfer founder role",
			targeted: true,
			eligible: needMember("The founder role can only pass to a current member."),
			apply:    transferEffect,
		}, true
	case models.ActionApproveFund:
		return actionRule{
			label:    "Approve fund",
			validate: validateFund,
			apply:    fundEffect,
		}, true
	case models.ActionChangeVisibility:
		return actionRule{
			label:    "Change visibility",
			validate: validateVisibility,
			apply:    visibilityEffect,
		}, true
	case models.ActionAmendDescription:
		return actionRule{
			label:    "Amend description",
			validate: validateDescription,
			apply:    descriptionEffect,
		}, true
	case models.ActionCustom:
		return actionRule{
			label:    "Custom proposal",
			validate: validateCustom,
			apply:    customEffect,
		}, true
	}
	return actionRule{}, false
}

// Label returns the display label of an action type.
func Label(a models.ActionType) string {
	s, ok := ruleFor(a)
	if !ok {
		return string(a)
	}
	return s.label
}

// Target eligibility rules. The founder is immune to every targeted action.

func needRole(role models.Role, reason string) func(*models.Member) error {
	return func(m *models.Member) error {
		if m == nil {
			return invalidTarget("That user is not a member of this group.")
		}
		if m.Role == models.RoleFounder {
			return invalidTarget("The founder is immune to role changes and removal.")
		}
		if m.Role != role {
			return invalidTarget("%s", reason)
		}
		return nil
	}
}

func needMember(reason string) func(*models.Member) error {
	return func(m *models.Member) error {
		if m == nil {
			return invalidTarget("%s", reason)
		}
		if m.Role == models.RoleFounder {
			return invalidTarget("The founder is immune to role changes and removal.")
		}
		return nil
	}
}

func needNonMember(m *models.Member) error {
	if m != nil {
		return invalidTarget("That user is already a member of this group.")
	}
	return nil
}

// Policy payload validation.

func validateFund(p *models.PolicyPayload) error {
	if p == nil || p.Title == "" {
		return invalidOperation("A fund proposal needs a title.")
	}
	if p.TargetAmount <= 0 {
		return invalidOperation("A fund proposal needs a target amount greater than zero.")
	}
	return nil
}

func validateVisibility(p *models.PolicyPayload) error {
	if p == nil || p.IsPublic == nil {
		return invalidOperation("A visibility proposal must say whether the group becomes public or private.")
	}
	return nil
}

func validateDescription(p *models.PolicyPayload) error {
	if p == nil || p.Description == "" {
		return invalidOperation("A description amendment needs the new description.")
	}
	return nil
}

func validateCustom(p *models.PolicyPayload) error {
	if p == nil || p.Title == "" {
		return invalidOperation("A custom proposal needs a title.")
	}
	return nil
}

// Effects. Each re-checks the live registry, since membership can change
// between creation and approval.

var errMissingCollaborator = errors.New("collaborator not configured")

func (e *Engine) liveTarget(ctx context.Context, p models.Proposal, rule actionRule) error {
	target, err := e.lookupMember(ctx, p.GroupID, p.Target())
	if err != nil {
		return effectError{err}
	}
	if err := rule.eligible(target); err != nil {
		return effectError{err}
	}
	return nil
}

// applied marks any failure of a registry write made by an effect as an
// execution failure.
func applied(entry models.AuditEntry, err error) (models.AuditEntry, error) {
	var fx effectError
	if err != nil && !errors.As(err, &fx) {
		return models.AuditEntry{}, effectError{err}
	}
	return entry, err
}

func changeFor(p models.Proposal, action models.AuditAction) memberChange {
	return memberChange{
		groupID: p.GroupID,
		userID:  p.Target(),
		actorID: p.ProposerID,
		action:  action,
		refID:   oidPtr(p.ID),
		details: map[string]string{"proposal_action": string(p.ActionType)},
	}
}

func roleEffect(role models.Role, action models.AuditAction) effectFunc {
	return func(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
		rule, _ := ruleFor(p.ActionType)
		if err := e.liveTarget(ctx, p, rule); err != nil {
			return models.AuditEntry{}, err
		}
		return applied(e.setRole(ctx, j, changeFor(p, action), role))
	}
}

func removeEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	rule, _ := ruleFor(p.ActionType)
	if err := e.liveTarget(ctx, p, rule); err != nil {
		return models.AuditEntry{}, err
	}
	return applied(e.removeMember(ctx, j, changeFor(p, models.AuditRemoval)))
}

func reinstateEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	rule, _ := ruleFor(p.ActionType)
	if err := e.liveTarget(ctx, p, rule); err != nil {
		return models.AuditEntry{}, err
	}
	c := changeFor(p, models.AuditReinstatement)
	if p.SourceLogEntryID != nil {
		c.details["source_log_entry_id"] = p.SourceLogEntryID.Hex()
	}
	return applied(e.addMember(ctx, j, c, models.RoleMember))
}

func transferEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	rule, _ := ruleFor(p.ActionType)
	if err := e.liveTarget(ctx, p, rule); err != nil {
		return models.AuditEntry{}, err
	}
	founder, err := e.findFounder(ctx, p.GroupID)
	if err != nil {
		return models.AuditEntry{}, effectError{err}
	}
	if founder.UserID != p.ProposerID {
		return models.AuditEntry{}, effectError{notAuthorized("The proposer is no longer the founder.")}
	}
	return applied(e.transferFounder(ctx, j, changeFor(p, models.AuditFounderTransfer), founder.UserID))
}

func policyEntry(p models.Proposal, action models.AuditAction, details map[string]string) models.AuditEntry {
	if details == nil {
		details = map[string]string{}
	}
	details["proposal_action"] = string(p.ActionType)
	return models.AuditEntry{
		GroupID:    p.GroupID,
		ActionType: action,
		ActorID:    p.ProposerID,
		RefID:      oidPtr(p.ID),
		Details:    details,
	}
}

func fundEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	if e.funds == nil {
		return models.AuditEntry{}, effectError{fmt.Errorf("fund creation: %w", errMissingCollaborator)}
	}
	pl := p.PolicyPayload
	fund, err := e.funds.CreateFund(ctx, models.Fund{
		GroupID:      p.GroupID,
		ProposalID:   p.ID,
		Title:        pl.Title,
		Description:  pl.Description,
		TargetAmount: pl.TargetAmount,
		CreatedAt:    e.now(),
	})
	if err != nil {
		return models.AuditEntry{}, effectError{fmt.Errorf("create fund: %w", err)}
	}
	return j.record(ctx, policyEntry(p, models.AuditFundApproved, map[string]string{
		"fund_id":       fund.ID.Hex(),
		"title":         fund.Title,
		"target_amount": strconv.FormatFloat(fund.TargetAmount, 'f', 2, 64),
	}))
}

func visibilityEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	if e.groups == nil {
		return models.AuditEntry{}, effectError{fmt.Errorf("group settings: %w", errMissingCollaborator)}
	}
	public := *p.PolicyPayload.IsPublic
	if err := e.groups.SetVisibility(ctx, p.GroupID, public); err != nil {
		return models.AuditEntry{}, effectError{fmt.Errorf("set visibility: %w", err)}
	}
	return j.record(ctx, policyEntry(p, models.AuditVisibilityChanged, map[string]string{
		"is_public": strconv.FormatBool(public),
	}))
}

func descriptionEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	if e.groups == nil {
		return models.AuditEntry{}, effectError{fmt.Errorf("group settings: %w", errMissingCollaborator)}
	}
	if err := e.groups.SetDescription(ctx, p.GroupID, p.PolicyPayload.Description); err != nil {
		return models.AuditEntry{}, effectError{fmt.Errorf("set description: %w", err)}
	}
	return j.record(ctx, policyEntry(p, models.AuditDescriptionAmended, nil))
}

// customEffect has no automatic effect; the entry marks the decision for
// manual follow-up.
func customEffect(ctx context.Context, e *Engine, j *journal, p models.Proposal) (models.AuditEntry, error) {
	return j.record(ctx, policyEntry(p, models.AuditCustomFollowUp, map[string]string{
		"title":     p.Title,
		"follow_up": "manual",
	}))
}
