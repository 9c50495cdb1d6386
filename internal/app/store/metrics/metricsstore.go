package metricsstore

import (
	"context"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of platform-wide governance totals exported as gauges.
type Counts struct {
	Groups           int64
	Members          int64
	Managers         int64
	ActiveProposals  int64
	OpenJoinRequests int64
}

// FetchGovernanceCounts returns the current totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchGovernanceCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	count := func(coll string, filter bson.M) int64 {
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return 0
		}
		return n
	}

	out.Groups = count("groups", bson.M{})
	out.Members = count("group_members", bson.M{})
	out.Managers = count("group_members", bson.M{"role": bson.M{"$in": []models.Role{models.RoleFounder, models.RoleManager}}})
	out.ActiveProposals = count("proposals", bson.M{"status": models.ProposalActive})
	out.OpenJoinRequests = count("join_requests", bson.M{
		"status": bson.M{"$in": []models.JoinRequestStatus{models.JoinRequestPending, models.JoinRequestVoting}},
	})

	return out
}
