// internal/app/governance/ports.go
package governance

import (
	"context"
	"time"

	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stores report a missing record with mongo.ErrNoDocuments, as the Mongo
// driver does; the in-memory backend follows the same convention.

// MemberStore persists the membership registry.
type MemberStore interface {
	Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.Member, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Member, error)
	Add(ctx context.Context, m models.Member) error
	SetRole(ctx context.Context, groupID, userID primitive.ObjectID, role models.Role) error
	Remove(ctx context.Context, groupID, userID primitive.ObjectID) error
	CountByRole(ctx context.Context, groupID primitive.ObjectID) (models.RoleCounts, error)
}

// JoinRequestStore persists join requests.
//
// Save replaces the stored request only while its status is still expect and
// it holds priorVotes ballots; otherwise it returns mongo.ErrNoDocuments.
type JoinRequestStore interface {
	Create(ctx context.Context, jr models.JoinRequest) (models.JoinRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error)
	FindOpen(ctx context.Context, groupID, userID primitive.ObjectID) (models.JoinRequest, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, openOnly bool) ([]models.JoinRequest, error)
	CountOpen(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	Save(ctx context.Context, jr models.JoinRequest, expect models.JoinRequestStatus, priorVotes int) error
}

// ProposalStore persists proposals. Save follows the same guard as
// JoinRequestStore.Save.
type ProposalStore interface {
	Create(ctx context.Context, p models.Proposal) (models.Proposal, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Proposal, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, statuses []models.ProposalStatus, limit int64) ([]models.Proposal, error)
	ListOverdue(ctx context.Context, now time.Time, limit int64) ([]models.Proposal, error)
	ListResolvedSince(ctx context.Context, groupID primitive.ObjectID, since time.Time) ([]models.Proposal, error)
	CountActive(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	Save(ctx context.Context, p models.Proposal, expect models.ProposalStatus, priorVotes int) error
}

// Ledger is the audit log as the engine sees it. Record appends inside the
// caller's transaction; Publish notifies subscribers once it has committed.
type Ledger interface {
	Record(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error)
	Publish(entries ...models.AuditEntry)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditEntry, error)
	Query(ctx context.Context, q models.AuditQuery) (models.AuditPage, error)
}

// GroupStore is the group-settings collaborator.
type GroupStore interface {
	Create(ctx context.Context, g models.Group) (models.Group, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	SetVisibility(ctx context.Context, id primitive.ObjectID, isPublic bool) error
	SetDescription(ctx context.Context, id primitive.ObjectID, description string) error
}

// FundCreator is the fund-creation collaborator invoked by approve_fund.
type FundCreator interface {
	CreateFund(ctx context.Context, f models.Fund) (models.Fund, error)
}

// ProfileSource supplies display names for ledger entries.
type ProfileSource interface {
	Profile(ctx context.Context, userID primitive.ObjectID) (models.Profile, error)
}

// Transactor runs fn atomically where the backend allows it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
