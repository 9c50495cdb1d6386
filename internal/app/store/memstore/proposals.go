package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Proposals is the in-memory proposal store.
type Proposals struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Proposal
}

// NewProposals returns an empty store.
func NewProposals() *Proposals {
	return &Proposals{m: make(map[primitive.ObjectID]models.Proposal)}
}

func cloneProposal(p models.Proposal) models.Proposal {
	p.Votes = cloneVotes(p.Votes)
	p.TargetUserID = cloneID(p.TargetUserID)
	p.SourceLogEntryID = cloneID(p.SourceLogEntryID)
	if p.PolicyPayload != nil {
		pl := *p.PolicyPayload
		if pl.IsPublic != nil {
			v := *pl.IsPublic
			pl.IsPublic = &v
		}
		p.PolicyPayload = &pl
	}
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		p.ResolvedAt = &t
	}
	if p.Execution != nil {
		x := *p.Execution
		if x.ExecutedAt != nil {
			t := *x.ExecutedAt
			x.ExecutedAt = &t
		}
		p.Execution = &x
	}
	return p
}

func newerFirst(a, b time.Time, aID, bID primitive.ObjectID) bool {
	if a.Equal(b) {
		return aID.Hex() > bID.Hex()
	}
	return a.After(b)
}

func (s *Proposals) Create(_ context.Context, p models.Proposal) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, ok := s.m[p.ID]; ok {
		return models.Proposal{}, ErrDuplicate
	}
	s.m[p.ID] = cloneProposal(p)
	return cloneProposal(p), nil
}

func (s *Proposals) GetByID(_ context.Context, id primitive.ObjectID) (models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	if !ok {
		return models.Proposal{}, mongo.ErrNoDocuments
	}
	return cloneProposal(p), nil
}

func (s *Proposals) filter(keep func(models.Proposal) bool) []models.Proposal {
	out := []models.Proposal{}
	for _, p := range s.m {
		if keep(p) {
			out = append(out, cloneProposal(p))
		}
	}
	return out
}

// ListByGroup returns the group's proposals in the given statuses, newest
// first. limit <= 0 means no limit.
func (s *Proposals) ListByGroup(_ context.Context, groupID primitive.ObjectID, statuses []models.ProposalStatus, limit int64) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.ProposalStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := s.filter(func(p models.Proposal) bool {
		return p.GroupID == groupID && (len(want) == 0 || want[p.Status])
	})
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListOverdue returns active proposals whose expiry is at or before now,
// oldest expiry first.
func (s *Proposals) ListOverdue(_ context.Context, now time.Time, limit int64) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filter(func(p models.Proposal) bool { return p.Overdue(now) })
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Proposals) ListResolvedSince(_ context.Context, groupID primitive.ObjectID, since time.Time) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(p models.Proposal) bool {
		return p.GroupID == groupID && p.Status.Resolved() && p.ResolvedAt != nil && !p.ResolvedAt.Before(since)
	}), nil
}

func (s *Proposals) CountActive(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.m {
		if p.GroupID == groupID && p.Status == models.ProposalActive {
			n++
		}
	}
	return n, nil
}

// Save replaces the proposal only while it still has status expect and
// priorVotes ballots.
func (s *Proposals) Save(_ context.Context, p models.Proposal, expect models.ProposalStatus, priorVotes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[p.ID]
	if !ok || cur.Status != expect || len(cur.Votes) != priorVotes {
		return mongo.ErrNoDocuments
	}
	s.m[p.ID] = cloneProposal(p)
	return nil
}
