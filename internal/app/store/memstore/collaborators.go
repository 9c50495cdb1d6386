package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Groups is the in-memory group settings store.
type Groups struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Group
}

// NewGroups returns an empty store.
func NewGroups() *Groups {
	return &Groups{m: make(map[primitive.ObjectID]models.Group)}
}

func (s *Groups) Create(_ context.Context, g models.Group) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, ok := s.m[g.ID]; ok {
		return models.Group{}, ErrDuplicate
	}
	s.m[g.ID] = g
	return g, nil
}

func (s *Groups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.m[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return g, nil
}

func (s *Groups) update(id primitive.ObjectID, fn func(*models.Group)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&g)
	g.UpdatedAt = time.Now().UTC()
	s.m[id] = g
	return nil
}

func (s *Groups) SetVisibility(_ context.Context, id primitive.ObjectID, isPublic bool) error {
	return s.update(id, func(g *models.Group) { g.IsPublic = isPublic })
}

func (s *Groups) SetDescription(_ context.Context, id primitive.ObjectID, description string) error {
	return s.update(id, func(g *models.Group) { g.Description = description })
}

// Funds is the in-memory fund collaborator.
type Funds struct {
	mu    sync.RWMutex
	funds []models.Fund
}

// NewFunds returns an empty store.
func NewFunds() *Funds {
	return &Funds{}
}

func (s *Funds) CreateFund(_ context.Context, f models.Fund) (models.Fund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	for _, x := range s.funds {
		if x.ProposalID == f.ProposalID {
			return models.Fund{}, ErrDuplicate
		}
	}
	s.funds = append(s.funds, f)
	return f, nil
}

// ListByGroup returns the funds created for a group.
func (s *Funds) ListByGroup(_ context.Context, groupID primitive.ObjectID) ([]models.Fund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Fund{}
	for _, f := range s.funds {
		if f.GroupID == groupID {
			out = append(out, f)
		}
	}
	return out, nil
}

// Profiles is the in-memory profile source.
type Profiles struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Profile
}

// NewProfiles returns an empty source.
func NewProfiles() *Profiles {
	return &Profiles{m: make(map[primitive.ObjectID]models.Profile)}
}

// Put stores or replaces a profile.
func (s *Profiles) Put(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.UserID] = p
}

func (s *Profiles) Profile(_ context.Context, userID primitive.ObjectID) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[userID]
	if !ok {
		return models.Profile{}, mongo.ErrNoDocuments
	}
	return p, nil
}
