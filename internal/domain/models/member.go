// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a user's standing inside one group.
type Role string

const (
	RoleFounder Role = "founder"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// Valid reports whether r is one of the three group roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFounder, RoleManager, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role takes part in governance votes.
// The founder votes alongside managers.
func (r Role) CanManage() bool {
	return r == RoleFounder || r == RoleManager
}

// Member is the authoritative join between a user and a group.
// Exactly one document per (group_id, user_id); exactly one founder per group.
type Member struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     Role               `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// RoleCounts is the live role tally for a group.
type RoleCounts struct {
	Founder int `json:"founder"`
	Manager int `json:"manager"`
	Member  int `json:"member"`
}

// Managers counts everyone with a governance vote (founder + managers).
func (c RoleCounts) Managers() int { return c.Founder + c.Manager }

// Total counts every member of the group regardless of role.
func (c RoleCounts) Total() int { return c.Founder + c.Manager + c.Member }
