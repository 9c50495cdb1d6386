package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate mirrors a unique index violation.
var ErrDuplicate = errors.New("memstore: duplicate key")

// JoinRequests is the in-memory join request store.
type JoinRequests struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.JoinRequest
}

// NewJoinRequests returns an empty store.
func NewJoinRequests() *JoinRequests {
	return &JoinRequests{m: make(map[primitive.ObjectID]models.JoinRequest)}
}

func cloneJoinRequest(jr models.JoinRequest) models.JoinRequest {
	jr.Votes = cloneVotes(jr.Votes)
	jr.ResolvedBy = cloneID(jr.ResolvedBy)
	if jr.ResolvedAt != nil {
		t := *jr.ResolvedAt
		jr.ResolvedAt = &t
	}
	return jr
}

func (s *JoinRequests) Create(_ context.Context, jr models.JoinRequest) (models.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jr.ID.IsZero() {
		jr.ID = primitive.NewObjectID()
	}
	if _, ok := s.m[jr.ID]; ok {
		return models.JoinRequest{}, ErrDuplicate
	}
	for _, other := range s.m {
		if other.GroupID == jr.GroupID && other.UserID == jr.UserID && other.Status.Open() && jr.Status.Open() {
			return models.JoinRequest{}, ErrDuplicate
		}
	}
	s.m[jr.ID] = cloneJoinRequest(jr)
	return cloneJoinRequest(jr), nil
}

func (s *JoinRequests) GetByID(_ context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jr, ok := s.m[id]
	if !ok {
		return models.JoinRequest{}, mongo.ErrNoDocuments
	}
	return cloneJoinRequest(jr), nil
}

func (s *JoinRequests) FindOpen(_ context.Context, groupID, userID primitive.ObjectID) (models.JoinRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, jr := range s.m {
		if jr.GroupID == groupID && jr.UserID == userID && jr.Status.Open() {
			return cloneJoinRequest(jr), nil
		}
	}
	return models.JoinRequest{}, mongo.ErrNoDocuments
}

func (s *JoinRequests) ListByGroup(_ context.Context, groupID primitive.ObjectID, openOnly bool) ([]models.JoinRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.JoinRequest{}
	for _, jr := range s.m {
		if jr.GroupID != groupID || (openOnly && !jr.Status.Open()) {
			continue
		}
		out = append(out, cloneJoinRequest(jr))
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *JoinRequests) CountOpen(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, jr := range s.m {
		if jr.GroupID == groupID && jr.Status.Open() {
			n++
		}
	}
	return n, nil
}

// Save replaces the request only while it still has status expect and
// priorVotes ballots.
func (s *JoinRequests) Save(_ context.Context, jr models.JoinRequest, expect models.JoinRequestStatus, priorVotes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[jr.ID]
	if !ok || cur.Status != expect || len(cur.Votes) != priorVotes {
		return mongo.ErrNoDocuments
	}
	s.m[jr.ID] = cloneJoinRequest(jr)
	return nil
}
