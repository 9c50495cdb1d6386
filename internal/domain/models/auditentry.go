// internal/domain/models/auditentry.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditAction names a ledger entry.
type AuditAction string

// Membership mutations.
const (
	AuditJoin            AuditAction = "join"
	AuditLeave           AuditAction = "leave"
	AuditPromotion       AuditAction = "promotion"
	AuditDemotion        AuditAction = "demotion"
	AuditRemoval         AuditAction = "removal"
	AuditReinstatement   AuditAction = "reinstatement"
	AuditFounderTransfer AuditAction = "founder_transfer"
	AuditGroupCreated    AuditAction = "group_created"
)

// Workflow transitions.
const (
	AuditJoinRequestCreated     AuditAction = "join_request_created"
	AuditJoinRequestEscalated   AuditAction = "join_request_escalated"
	AuditProposalCreated        AuditAction = "proposal_created"
	AuditVoteResolutionApproved AuditAction = "vote_resolution_approved"
	AuditVoteResolutionRejected AuditAction = "vote_resolution_rejected"
	AuditProposalExpired        AuditAction = "proposal_expired"
	AuditExecutionFailed        AuditAction = "execution_failed"
)

// Policy effects.
const (
	AuditFundApproved       AuditAction = "fund_approved"
	AuditVisibilityChanged  AuditAction = "visibility_changed"
	AuditDescriptionAmended AuditAction = "description_amended"
	AuditCustomFollowUp     AuditAction = "custom_followup"
)

// Entries written by the AutoMod peer.
const (
	AuditAutoModBlock      AuditAction = "automod_block"
	AuditTimeoutLifted     AuditAction = "timeout_lifted"
	AuditModerationWarning AuditAction = "moderation_warning"
)

// IsModeration reports whether the action comes from the moderation peer.
func (a AuditAction) IsModeration() bool {
	return a == AuditAutoModBlock || a == AuditTimeoutLifted || a == AuditModerationWarning
}

// AuditEntry is one immutable ledger row. Entries are inserted and never
// updated or deleted.
type AuditEntry struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID    primitive.ObjectID  `bson:"group_id" json:"group_id"`
	ActionType AuditAction         `bson:"action_type" json:"action_type"`
	ActorID    primitive.ObjectID  `bson:"actor_id" json:"actor_id"`
	ActorName  string              `bson:"actor_name" json:"actor_name"`
	TargetID   *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"`
	TargetName string              `bson:"target_name,omitempty" json:"target_name,omitempty"`
	RefID      *primitive.ObjectID `bson:"ref_id,omitempty" json:"ref_id,omitempty"` // proposal or join request
	Details    map[string]string   `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}

// AuditFilter narrows a ledger query to one family of entries.
type AuditFilter string

const (
	AuditFilterAll        AuditFilter = "all"
	AuditFilterRoles      AuditFilter = "roles"
	AuditFilterMembers    AuditFilter = "members"
	AuditFilterProposals  AuditFilter = "proposals"
	AuditFilterModeration AuditFilter = "moderation"
)

// Valid reports whether f is a known filter.
func (f AuditFilter) Valid() bool {
	switch f {
	case AuditFilterAll, AuditFilterRoles, AuditFilterMembers, AuditFilterProposals, AuditFilterModeration:
		return true
	}
	return false
}

// Actions returns the entry types a filter selects; nil means every type.
func (f AuditFilter) Actions() []AuditAction {
	switch f {
	case AuditFilterRoles:
		return []AuditAction{AuditPromotion, AuditDemotion, AuditFounderTransfer}
	case AuditFilterMembers:
		return []AuditAction{
			AuditGroupCreated, AuditJoin, AuditLeave, AuditRemoval, AuditReinstatement,
			AuditJoinRequestCreated, AuditJoinRequestEscalated,
		}
	case AuditFilterProposals:
		return []AuditAction{
			AuditProposalCreated, AuditVoteResolutionApproved, AuditVoteResolutionRejected,
			AuditProposalExpired, AuditExecutionFailed,
			AuditFundApproved, AuditVisibilityChanged, AuditDescriptionAmended, AuditCustomFollowUp,
		}
	case AuditFilterModeration:
		return []AuditAction{AuditAutoModBlock, AuditTimeoutLifted, AuditModerationWarning}
	}
	return nil
}

// AuditQuery selects a newest-first page of a group's ledger.
type AuditQuery struct {
	GroupID primitive.ObjectID
	Actions []AuditAction // empty selects every type
	Limit   int64
	Cursor  string // opaque, from AuditPage.NextCursor
}

// AuditPage is one page of ledger entries.
type AuditPage struct {
	Entries    []AuditEntry `json:"entries"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
