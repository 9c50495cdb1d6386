// internal/domain/models/profile.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Profile is the display identity of a user, used to enrich ledger entries.
type Profile struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Name      string             `json:"name"`
	AvatarURL string             `json:"avatar_url,omitempty"`
}
