// Package memstore is an in-memory implementation of every governance store.
// It backs the engine's tests and the store_backend=memory configuration.
// Lookups that miss return mongo.ErrNoDocuments, like the Mongo stores.
package memstore

import (
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Backend bundles one instance of each store.
type Backend struct {
	Members      *Members
	JoinRequests *JoinRequests
	Proposals    *Proposals
	Audit        *Audit
	Groups       *Groups
	Funds        *Funds
	Profiles     *Profiles
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		Members:      NewMembers(),
		JoinRequests: NewJoinRequests(),
		Proposals:    NewProposals(),
		Audit:        NewAudit(),
		Groups:       NewGroups(),
		Funds:        NewFunds(),
		Profiles:     NewProfiles(),
	}
}

func cloneVotes(v []models.Vote) []models.Vote {
	if v == nil {
		return []models.Vote{}
	}
	out := make([]models.Vote, len(v))
	copy(out, v)
	return out
}

func cloneID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneDetails(d map[string]string) map[string]string {
	if d == nil {
		return nil
	}
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
