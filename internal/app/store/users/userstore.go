// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civic/internal/app/system/normalize"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var errNameRequired = errors.New("full_name is required")

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing the display name.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.FullName = normalize.Name(u.FullName)
	if u.FullName == "" {
		return models.User{}, errNameRequired
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.FullNameCI = text.Fold(u.FullName)
	if u.Status == "" {
		u.Status = "active"
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Profile returns the display identity used to enrich ledger entries.
// A missing user returns mongo.ErrNoDocuments.
func (s *Store) Profile(ctx context.Context, userID primitive.ObjectID) (models.Profile, error) {
	var row struct {
		FullName  string `bson:"full_name"`
		AvatarURL string `bson:"avatar_url"`
	}
	opts := options.FindOne().SetProjection(bson.M{"full_name": 1, "avatar_url": 1})
	if err := s.c.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&row); err != nil {
		return models.Profile{}, err
	}
	return models.Profile{UserID: userID, Name: row.FullName, AvatarURL: row.AvatarURL}, nil
}
