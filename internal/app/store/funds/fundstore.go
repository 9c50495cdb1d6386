// internal/app/store/funds/fundstore.go
package fundstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civic/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateFund is returned when a fund already exists for the proposal.
var ErrDuplicateFund = errors.New("a fund already exists for this proposal")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("funds")}
}

// CreateFund opens the fund an approved approve_fund proposal asked for.
func (s *Store) CreateFund(ctx context.Context, f models.Fund) (models.Fund, error) {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Fund{}, ErrDuplicateFund
		}
		return models.Fund{}, err
	}
	return f, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Fund, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Fund{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
