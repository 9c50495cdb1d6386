package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type memberKey struct {
	group primitive.ObjectID
	user  primitive.ObjectID
}

// Members is the in-memory membership registry.
type Members struct {
	mu sync.RWMutex
	m  map[memberKey]models.Member
}

// NewMembers returns an empty registry.
func NewMembers() *Members {
	return &Members{m: make(map[memberKey]models.Member)}
}

func (s *Members) Get(_ context.Context, groupID, userID primitive.ObjectID) (models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.m[memberKey{groupID, userID}]
	if !ok {
		return models.Member{}, mongo.ErrNoDocuments
	}
	return m, nil
}

// ListByGroup returns the group's members in join order.
func (s *Members) ListByGroup(_ context.Context, groupID primitive.ObjectID) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Member{}
	for k, m := range s.m {
		if k.group == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *Members) Add(_ context.Context, m models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{m.GroupID, m.UserID}
	if _, ok := s.m[k]; ok {
		return ErrDuplicate
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.m[k] = m
	return nil
}

func (s *Members) SetRole(_ context.Context, groupID, userID primitive.ObjectID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{groupID, userID}
	m, ok := s.m[k]
	if !ok {
		return mongo.ErrNoDocuments
	}
	m.Role = role
	s.m[k] = m
	return nil
}

func (s *Members) Remove(_ context.Context, groupID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{groupID, userID}
	if _, ok := s.m[k]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(s.m, k)
	return nil
}

func (s *Members) CountByRole(_ context.Context, groupID primitive.ObjectID) (models.RoleCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c models.RoleCounts
	for k, m := range s.m {
		if k.group != groupID {
			continue
		}
		switch m.Role {
		case models.RoleFounder:
			c.Founder++
		case models.RoleManager:
			c.Manager++
		case models.RoleMember:
			c.Member++
		}
	}
	return c, nil
}
