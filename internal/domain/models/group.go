// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a community whose managers govern it by quorum vote.
//
// NOTE:
//   - Membership is not embedded on Group.
//     All membership is stored in the group_members collection.
//   - IsPublic and Description are only changed by approved policy proposals.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	IsPublic    bool               `bson:"is_public" json:"is_public"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
