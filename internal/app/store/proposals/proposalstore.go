// internal/app/store/proposals/proposalstore.go
package proposalstore

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

var ErrDuplicateProposal = errors.New("proposal already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("proposals")}
}

func normalize(p *models.Proposal) {
	if p.Votes == nil {
		p.Votes = []models.Vote{}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.ExpiresAt = p.ExpiresAt.UTC()
}

func (s *Store) Create(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	normalize(&p)
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Proposal{}, ErrDuplicateProposal
		}
		return models.Proposal{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Proposal, error) {
	var p models.Proposal
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Proposal{}, err
	}
	return p, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Proposal, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Proposal{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByGroup returns the group's proposals in the given statuses, newest
// first. An empty statuses slice selects every status; limit <= 0 means no
// limit.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, statuses []models.ProposalStatus, limit int64) ([]models.Proposal, error) {
	filter := bson.M{"group_id": groupID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, filter, opts)
}

// ListOverdue feeds the expiry sweep: active proposals whose expiry is at or
// before now, across all groups, oldest expiry first.
func (s *Store) ListOverdue(ctx context.Context, now time.Time, limit int64) ([]models.Proposal, error) {
	filter := bson.M{"status": models.ProposalActive, "expires_at": bson.M{"$lte": now.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, filter, opts)
}

// ListResolvedSince returns proposals resolved at or after since.
func (s *Store) ListResolvedSince(ctx context.Context, groupID primitive.ObjectID, since time.Time) ([]models.Proposal, error) {
	filter := bson.M{
		"group_id":    groupID,
		"status":      bson.M{"$ne": models.ProposalActive},
		"resolved_at": bson.M{"$gte": since.UTC()},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "resolved_at", Value: -1}}))
}

func (s *Store) CountActive(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "status": models.ProposalActive})
}

// Save replaces the proposal only while the stored copy is still in status
// expect with priorVotes ballots. A lost race returns mongo.ErrNoDocuments.
func (s *Store) Save(ctx context.Context, p models.Proposal, expect models.ProposalStatus, priorVotes int) error {
	normalize(&p)
	filter := bson.M{"_id": p.ID, "status": expect, "votes": bson.M{"$size": priorVotes}}
	res, err := s.c.ReplaceOne(ctx, filter, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
