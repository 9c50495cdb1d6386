// internal/domain/models/joinrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinRequestStatus tracks a join request through admission.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"  // bootstrap mode, any manager decides
	JoinRequestVoting   JoinRequestStatus = "voting"   // quorum vote among managers
	JoinRequestApproved JoinRequestStatus = "approved" // terminal
	JoinRequestRejected JoinRequestStatus = "rejected" // terminal
)

// Open reports whether the request still awaits a decision.
func (s JoinRequestStatus) Open() bool {
	return s == JoinRequestPending || s == JoinRequestVoting
}

// JoinRequest is a non-member's application to join a group.
type JoinRequest struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID       primitive.ObjectID  `bson:"group_id" json:"group_id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Message       string              `bson:"message" json:"message"`
	Status        JoinRequestStatus   `bson:"status" json:"status"`
	Votes         []Vote              `bson:"votes" json:"votes"`
	RequiredVotes int                 `bson:"required_votes" json:"required_votes"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	ResolvedAt    *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy    *primitive.ObjectID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
}
