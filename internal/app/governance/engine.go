// internal/app/governance/engine.go
package governance

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civic/internal/app/system/grouplock"
	"github.com/dalemusser/civic/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Default lifecycle settings.
const (
	DefaultProposalTTL         = 72 * time.Hour
	DefaultParticipationWindow = 30 * 24 * time.Hour
	sweepBatch                 = 200
)

// Config tunes the engine. Zero values fall back to the defaults.
type Config struct {
	ProposalTTL         time.Duration
	ParticipationWindow time.Duration
	ParticipationFloor  int
}

// Deps bundles the engine's stores and collaborators.
// Funds, Groups, and Profiles may be nil; the policy effects that need a
// missing collaborator then fail with ExecutionFailed.
type Deps struct {
	Members      MemberStore
	JoinRequests JoinRequestStore
	Proposals    ProposalStore
	Ledger       Ledger
	Groups       GroupStore
	Funds        FundCreator
	Profiles     ProfileSource
	Tx           Transactor
}

// Engine is the governance consensus engine. All mutations for one group run
// inside that group's critical section; reads run against committed state.
type Engine struct {
	members   MemberStore
	joins     JoinRequestStore
	proposals ProposalStore
	ledger    Ledger
	groups    GroupStore
	funds     FundCreator
	profiles  ProfileSource
	tx        Transactor

	locks *grouplock.Locks
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

// New constructs an Engine.
func New(deps Deps, cfg Config, logger *zap.Logger) *Engine {
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = DefaultProposalTTL
	}
	if cfg.ParticipationWindow <= 0 {
		cfg.ParticipationWindow = DefaultParticipationWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tx := deps.Tx
	if tx == nil {
		tx = directTx{}
	}
	return &Engine{
		members:   deps.Members,
		joins:     deps.JoinRequests,
		proposals: deps.Proposals,
		ledger:    deps.Ledger,
		groups:    deps.Groups,
		funds:     deps.Funds,
		profiles:  deps.Profiles,
		tx:        tx,
		locks:     grouplock.New(),
		cfg:       cfg,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the engine's time source. Used by tests and by callers
// that need deterministic timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// directTx runs fn without a transaction.
type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// journal collects the ledger entries written by one transaction so they can
// be published only after it commits.
type journal struct {
	e       *Engine
	entries []models.AuditEntry
	names   map[primitive.ObjectID]string
}

// record enriches and appends an entry. A mutation whose entry cannot be
// written must fail and be undone before the caller returns.
func (j *journal) record(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	if entry.ActorName == "" && !entry.ActorID.IsZero() {
		entry.ActorName = j.name(ctx, entry.ActorID)
	}
	if entry.TargetName == "" && entry.TargetID != nil {
		entry.TargetName = j.name(ctx, *entry.TargetID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = j.e.now()
	}
	saved, err := j.e.ledger.Record(ctx, entry)
	if err != nil {
		return models.AuditEntry{}, err
	}
	j.entries = append(j.entries, saved)
	return saved, nil
}

func (j *journal) name(ctx context.Context, userID primitive.ObjectID) string {
	if n, ok := j.names[userID]; ok {
		return n
	}
	n := ""
	if j.e.profiles != nil {
		p, err := j.e.profiles.Profile(ctx, userID)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			j.e.log.Warn("profile lookup failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		}
		n = p.Name
	}
	if j.names == nil {
		j.names = make(map[primitive.ObjectID]string)
	}
	j.names[userID] = n
	return n
}

// inTx runs fn in a transaction with a fresh journal and publishes the
// journal's entries once the transaction has committed.
func (e *Engine) inTx(ctx context.Context, fn func(ctx context.Context, j *journal) error) error {
	j := &journal{e: e}
	err := e.tx.WithinTx(ctx, func(txCtx context.Context) error {
		j.entries = j.entries[:0]
		return fn(txCtx, j)
	})
	if err != nil {
		return err
	}
	e.ledger.Publish(j.entries...)
	return nil
}

// lockGroup enters the group's critical section.
func (e *Engine) lockGroup(groupID primitive.ObjectID) func() {
	return e.locks.Lock(groupID)
}

func isNoDocs(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func oidPtr(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}

func timePtr(t time.Time) *time.Time {
	return &t
}
