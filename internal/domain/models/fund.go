// internal/domain/models/fund.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fund is a group fundraising target opened by an approved proposal.
type Fund struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	ProposalID   primitive.ObjectID `bson:"proposal_id" json:"proposal_id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	TargetAmount float64            `bson:"target_amount" json:"target_amount"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
