// internal/domain/models/proposal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProposalCategory separates membership decisions from group-level policy.
type ProposalCategory string

const (
	CategoryMemberAction ProposalCategory = "member_action"
	CategoryPolicy       ProposalCategory = "policy"
)

// ActionType is the closed set of decisions a proposal can carry.
type ActionType string

const (
	ActionPromote          ActionType = "promote"
	ActionDemote           ActionType = "demote"
	ActionKick             ActionType = "kick"
	ActionRevertPromotion  ActionType = "revert_promotion"
	ActionRevertDemotion   ActionType = "revert_demotion"
	ActionRevertRemoval    ActionType = "revert_removal"
	ActionReconfirmManager ActionType = "reconfirm_manager"
	ActionTransferFounder  ActionType = "transfer_founder"

	ActionApproveFund      ActionType = "approve_fund"
	ActionChangeVisibility ActionType = "change_visibility"
	ActionAmendDescription ActionType = "amend_description"
	ActionCustom           ActionType = "custom"
)

// Category returns the category an action type belongs to, or "" for an
// unknown action type.
func (a ActionType) Category() ProposalCategory {
	switch a {
	case ActionPromote, ActionDemote, ActionKick,
		ActionRevertPromotion, ActionRevertDemotion, ActionRevertRemoval,
		ActionReconfirmManager, ActionTransferFounder:
		return CategoryMemberAction
	case ActionApproveFund, ActionChangeVisibility, ActionAmendDescription, ActionCustom:
		return CategoryPolicy
	}
	return ""
}

// IsRevert reports whether the action undoes a logged governance action.
func (a ActionType) IsRevert() bool {
	return a == ActionRevertPromotion || a == ActionRevertDemotion || a == ActionRevertRemoval
}

// ProposalStatus is the proposal lifecycle state.
type ProposalStatus string

const (
	ProposalActive          ProposalStatus = "active"
	ProposalApproved        ProposalStatus = "approved"
	ProposalRejected        ProposalStatus = "rejected"
	ProposalExpired         ProposalStatus = "expired"
	ProposalExecutionFailed ProposalStatus = "execution_failed" // quorum reached, effect not applied
)

// Resolved reports whether voting on the proposal has ended.
func (s ProposalStatus) Resolved() bool { return s != ProposalActive }

// PolicyPayload carries the parameters of a policy action.
type PolicyPayload struct {
	Title        string  `bson:"title,omitempty" json:"title,omitempty"`
	Description  string  `bson:"description,omitempty" json:"description,omitempty"`
	TargetAmount float64 `bson:"target_amount,omitempty" json:"target_amount,omitempty"`
	IsPublic     *bool   `bson:"is_public,omitempty" json:"is_public,omitempty"`
}

// Execution records the outcome of applying an approved proposal's effect.
type Execution struct {
	Attempts   int                `bson:"attempts" json:"attempts"`
	LastError  string             `bson:"last_error,omitempty" json:"last_error,omitempty"`
	Result     string             `bson:"result,omitempty" json:"result,omitempty"`
	EntryID    primitive.ObjectID `bson:"entry_id,omitempty" json:"entry_id,omitempty"` // effect audit entry
	ExecutedAt *time.Time         `bson:"executed_at,omitempty" json:"executed_at,omitempty"`
}

// Proposal is a quorum-voted governance decision.
//
// RequiredVotes is frozen at creation and does not follow later changes in
// the manager count.
type Proposal struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID          primitive.ObjectID  `bson:"group_id" json:"group_id"`
	ProposerID       primitive.ObjectID  `bson:"proposer_id" json:"proposer_id"`
	Category         ProposalCategory    `bson:"category" json:"category"`
	ActionType       ActionType          `bson:"action_type" json:"action_type"`
	TargetUserID     *primitive.ObjectID `bson:"target_user_id,omitempty" json:"target_user_id,omitempty"`
	Title            string              `bson:"title,omitempty" json:"title,omitempty"`
	Description      string              `bson:"description,omitempty" json:"description,omitempty"`
	PolicyPayload    *PolicyPayload      `bson:"policy_payload,omitempty" json:"policy_payload,omitempty"`
	SourceLogEntryID *primitive.ObjectID `bson:"source_log_entry_id,omitempty" json:"source_log_entry_id,omitempty"`
	Votes            []Vote              `bson:"votes" json:"votes"`
	RequiredVotes    int                 `bson:"required_votes" json:"required_votes"`
	Bootstrap        bool                `bson:"bootstrap" json:"bootstrap"`
	Status           ProposalStatus      `bson:"status" json:"status"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	ExpiresAt        time.Time           `bson:"expires_at" json:"expires_at"`
	ResolvedAt       *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	Execution        *Execution          `bson:"execution,omitempty" json:"execution,omitempty"`
}

// Target returns the target user id, or NilObjectID for untargeted proposals.
func (p Proposal) Target() primitive.ObjectID {
	if p.TargetUserID == nil {
		return primitive.NilObjectID
	}
	return *p.TargetUserID
}

// Overdue reports whether an active proposal has passed its expiry at now.
func (p Proposal) Overdue(now time.Time) bool {
	return p.Status == ProposalActive && !now.Before(p.ExpiresAt)
}
