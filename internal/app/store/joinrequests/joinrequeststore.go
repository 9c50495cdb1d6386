// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

import (
	"context"
	"errors"

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

var ErrDuplicateJoinRequest = errors.New("join request already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("join_requests")}
}

var openStatuses = bson.M{"$in": []models.JoinRequestStatus{models.JoinRequestPending, models.JoinRequestVoting}}

// Votes is always stored as an array so the $size guard in Save matches.
func normalize(jr *models.JoinRequest) {
	if jr.Votes == nil {
		jr.Votes = []models.Vote{}
	}
	jr.CreatedAt = jr.CreatedAt.UTC()
}

func (s *Store) Create(ctx context.Context, jr models.JoinRequest) (models.JoinRequest, error) {
	if jr.ID.IsZero() {
		jr.ID = primitive.NewObjectID()
	}
	normalize(&jr)
	if _, err := s.c.InsertOne(ctx, jr); err != nil {
		if wafflemongo.IsDup(err) {
			return models.JoinRequest{}, ErrDuplicateJoinRequest
		}
		return models.JoinRequest{}, err
	}
	return jr, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&jr); err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// FindOpen returns the applicant's pending or voting request for the group.
func (s *Store) FindOpen(ctx context.Context, groupID, userID primitive.ObjectID) (models.JoinRequest, error) {
	var jr models.JoinRequest
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID, "status": openStatuses}).Decode(&jr)
	if err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// ListByGroup returns the group's requests newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, openOnly bool) ([]models.JoinRequest, error) {
	filter := bson.M{"group_id": groupID}
	if openOnly {
		filter["status"] = openStatuses
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.JoinRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountOpen(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "status": openStatuses})
}

// Save replaces the request only while the stored copy is still in status
// expect with priorVotes ballots. A lost race returns mongo.ErrNoDocuments.
func (s *Store) Save(ctx context.Context, jr models.JoinRequest, expect models.JoinRequestStatus, priorVotes int) error {
	normalize(&jr)
	filter := bson.M{"_id": jr.ID, "status": expect, "votes": bson.M{"$size": priorVotes}}
	res, err := s.c.ReplaceOne(ctx, filter, jr)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
