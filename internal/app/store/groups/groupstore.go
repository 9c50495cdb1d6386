// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civic/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateGroup = errors.New("a group with this id already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts g. A caller-chosen ID is kept so the founder's membership
// can be written against it in the same transaction.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroup
		}
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetVisibility is applied by an approved change_visibility proposal.
func (s *Store) SetVisibility(ctx context.Context, id primitive.ObjectID, isPublic bool) error {
	return s.set(ctx, id, bson.M{"is_public": isPublic})
}

// SetDescription is applied by an approved amend_description proposal.
// Description can be cleared (set to empty).
func (s *Store) SetDescription(ctx context.Context, id primitive.ObjectID, description string) error {
	return s.set(ctx, id, bson.M{"description": description})
}
