package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/store/memstore"
	"github.com/dalemusser/civic/internal/app/system/auditlog"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Governance is an engine wired to the in-memory backend, seeded with one
// group: a founder, the requested number of managers, and plain members.
type Governance struct {
	Engine  *governance.Engine
	Backend *memstore.Backend
	Ledger  *auditlog.Logger
	Clock   *Clock

	GroupID  primitive.ObjectID
	Founder  primitive.ObjectID
	Managers []primitive.ObjectID
	Members  []primitive.ObjectID
}

// NewGovernance builds the fixture. managers counts managers besides the
// founder.
func NewGovernance(t *testing.T, managers, members int) *Governance {
	t.Helper()
	return NewGovernanceWithConfig(t, managers, members, governance.Config{})
}

// NewGovernanceWithConfig is NewGovernance with explicit engine settings.
func NewGovernanceWithConfig(t *testing.T, managers, members int, cfg governance.Config) *Governance {
	t.Helper()

	b := memstore.New()
	ledger := auditlog.New(b.Audit, zap.NewNop(), auditlog.Config{Governance: "db", Moderation: "db"})
	clock := NewClock()

	eng := governance.New(governance.Deps{
		Members:      b.Members,
		JoinRequests: b.JoinRequests,
		Proposals:    b.Proposals,
		Ledger:       ledger,
		Groups:       b.Groups,
		Funds:        b.Funds,
		Profiles:     b.Profiles,
	}, cfg, zap.NewNop())
	eng.SetClock(clock.Now)

	g := &Governance{
		Engine:  eng,
		Backend: b,
		Ledger:  ledger,
		Clock:   clock,
		GroupID: primitive.NewObjectID(),
		Founder: primitive.NewObjectID(),
	}

	ctx := context.Background()
	if _, err := b.Groups.Create(ctx, models.Group{ID: g.GroupID, Name: "Test Group", NameCI: "test group", CreatedAt: clock.Now()}); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	g.seed(t, g.Founder, models.RoleFounder, "Founder")
	for i := 0; i < managers; i++ {
		id := primitive.NewObjectID()
		g.seed(t, id, models.RoleManager, fmt.Sprintf("Manager %d", i+1))
		g.Managers = append(g.Managers, id)
	}
	for i := 0; i < members; i++ {
		id := primitive.NewObjectID()
		g.seed(t, id, models.RoleMember, fmt.Sprintf("Member %d", i+1))
		g.Members = append(g.Members, id)
	}
	return g
}

func (g *Governance) seed(t *testing.T, userID primitive.ObjectID, role models.Role, name string) {
	t.Helper()
	g.Backend.Profiles.Put(models.Profile{UserID: userID, Name: name})
	err := g.Backend.Members.Add(context.Background(), models.Member{
		GroupID:  g.GroupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: g.Clock.Now(),
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

// NewUser registers a profile for a user outside the group.
func (g *Governance) NewUser(name string) primitive.ObjectID {
	id := primitive.NewObjectID()
	g.Backend.Profiles.Put(models.Profile{UserID: id, Name: name})
	return id
}

// Voters returns the founder followed by every manager.
func (g *Governance) Voters() []primitive.ObjectID {
	return append([]primitive.ObjectID{g.Founder}, g.Managers...)
}

// Role returns the user's current role, or "" when not a member.
func (g *Governance) Role(t *testing.T, userID primitive.ObjectID) models.Role {
	t.Helper()
	m, err := g.Backend.Members.Get(context.Background(), g.GroupID, userID)
	if err != nil {
		return ""
	}
	return m.Role
}

// Entries returns the group's ledger oldest first, optionally restricted to
// the given actions.
func (g *Governance) Entries(actions ...models.AuditAction) []models.AuditEntry {
	want := make(map[models.AuditAction]bool, len(actions))
	for _, a := range actions {
		want[a] = true
	}
	var out []models.AuditEntry
	for _, e := range g.Backend.Audit.All() {
		if e.GroupID != g.GroupID {
			continue
		}
		if len(want) > 0 && !want[e.ActionType] {
			continue
		}
		out = append(out, e)
	}
	return out
}
