package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dalemusser/civic/internal/app/store/audit"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Audit is the in-memory ledger. Like the Mongo ledger it only appends.
type Audit struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

// NewAudit returns an empty ledger.
func NewAudit() *Audit {
	return &Audit{}
}

func cloneEntry(e models.AuditEntry) models.AuditEntry {
	e.TargetID = cloneID(e.TargetID)
	e.RefID = cloneID(e.RefID)
	e.Details = cloneDetails(e.Details)
	return e
}

func (s *Audit) Insert(_ context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	e = audit.Prepare(e)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.entries {
		if x.ID == e.ID {
			return models.AuditEntry{}, ErrDuplicate
		}
	}
	s.entries = append(s.entries, cloneEntry(e))
	return cloneEntry(e), nil
}

func (s *Audit) GetByID(_ context.Context, id primitive.ObjectID) (models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return cloneEntry(e), nil
		}
	}
	return models.AuditEntry{}, mongo.ErrNoDocuments
}

func (s *Audit) Query(_ context.Context, q models.AuditQuery) (models.AuditPage, error) {
	want := make(map[models.AuditAction]bool, len(q.Actions))
	for _, a := range q.Actions {
		want[a] = true
	}
	at, afterID, hasCursor := audit.DecodeCursor(q.Cursor)

	s.mu.RLock()
	var rows []models.AuditEntry
	for _, e := range s.entries {
		if e.GroupID != q.GroupID {
			continue
		}
		if len(want) > 0 && !want[e.ActionType] {
			continue
		}
		if hasCursor && !olderThan(e, at.UnixMilli(), afterID) {
			continue
		}
		rows = append(rows, cloneEntry(e))
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt, rows[j].CreatedAt, rows[i].ID, rows[j].ID)
	})
	limit := q.Limit
	if limit <= 0 {
		limit = audit.DefaultLimit
	}
	if int64(len(rows)) > limit+1 {
		rows = rows[:limit+1]
	}
	return audit.Page(rows, limit), nil
}

// olderThan reports whether e sorts after the cursor position (ms, id) in
// newest-first order.
func olderThan(e models.AuditEntry, ms int64, id primitive.ObjectID) bool {
	em := e.CreatedAt.UnixMilli()
	if em != ms {
		return em < ms
	}
	return e.ID.Hex() < id.Hex()
}

// Len returns the number of entries written.
func (s *Audit) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns every entry in write order.
func (s *Audit) All() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneEntry(e)
	}
	return out
}
