// internal/app/store/memberships/membershipstore.go
package membershipstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Member: the (group_id, user_id) row in group_members that carries the role

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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_members")}
}

var ErrDuplicateMembership = errors.New("user is already a member of this group")

// Get returns the membership for (groupID, userID) or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m); err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// ListByGroup returns the group's members in join order.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Member{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Add inserts a membership. A second row for the same (group, user) fails
// with ErrDuplicateMembership.
func (s *Store) Add(ctx context.Context, m models.Member) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.JoinedAt = m.JoinedAt.UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// SetRole changes a member's role in place.
func (s *Store) SetRole(ctx context.Context, groupID, userID primitive.ObjectID, role models.Role) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Remove deletes the membership document for (groupID, userID).
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountByRole tallies the group's live roles in one aggregation.
func (s *Store) CountByRole(ctx context.Context, groupID primitive.ObjectID) (models.RoleCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"group_id": groupID}}},
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return models.RoleCounts{}, err
	}
	defer cur.Close(ctx)

	var c models.RoleCounts
	for cur.Next(ctx) {
		var row struct {
			Role models.Role `bson:"_id"`
			N    int         `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.RoleCounts{}, err
		}
		switch row.Role {
		case models.RoleFounder:
			c.Founder = row.N
		case models.RoleManager:
			c.Manager = row.N
		case models.RoleMember:
			c.Member = row.N
		}
	}
	return c, cur.Err()
}

// GroupsForUser returns every membership the user holds.
func (s *Store) GroupsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Member{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
