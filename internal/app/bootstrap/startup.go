// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/civic/internal/app/governance"
	auditstore "github.com/dalemusser/civic/internal/app/store/audit"
	fundstore "github.com/dalemusser/civic/internal/app/store/funds"
	groupstore "github.com/dalemusser/civic/internal/app/store/groups"
	joinrequeststore "github.com/dalemusser/civic/internal/app/store/joinrequests"
	membershipstore "github.com/dalemusser/civic/internal/app/store/memberships"
	"github.com/dalemusser/civic/internal/app/store/memstore"
	metricsstore "github.com/dalemusser/civic/internal/app/store/metrics"
	proposalstore "github.com/dalemusser/civic/internal/app/store/proposals"
	userstore "github.com/dalemusser/civic/internal/app/store/users"
	"github.com/dalemusser/civic/internal/app/system/auditlog"
	"github.com/dalemusser/civic/internal/app/system/metrics"
	"github.com/dalemusser/civic/internal/app/system/ratelimit"
	"github.com/dalemusser/civic/internal/app/system/timeouts"
	"github.com/dalemusser/civic/internal/app/system/txn"
	"github.com/dalemusser/civic/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// service holds what Startup builds for BuildHandler and Shutdown.
type service struct {
	engine   *governance.Engine
	ledger   *auditlog.Logger
	registry *prometheus.Registry
	sweeper  *workers.ProposalExpirySweeper
	limiter  *ratelimit.Limiter
}

var svc *service

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It wires
// the stores into the governance engine, registers metrics, and starts the
// proposal expiry sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		t := timeouts.Current()
		logger.Info("timeouts overridden from environment",
			zap.Duration("ping", t.Ping),
			zap.Duration("read", t.Read),
			zap.Duration("write", t.Write),
			zap.Duration("sweep", t.Sweep))
	}

	s := newService(appCfg, deps, logger)

	if appCfg.ExpirySweepInterval > 0 {
		s.sweeper = workers.NewProposalExpirySweeper(s.engine, logger.Named("expiry"), appCfg.ExpirySweepInterval)
		s.sweeper.Start()
	} else {
		logger.Info("proposal expiry sweeper disabled; overdue proposals expire on access")
	}

	if appCfg.WriteRateLimit > 0 {
		s.limiter = ratelimit.New(appCfg.WriteRateLimit, appCfg.WriteRateWindow)
	}

	svc = s
	return nil
}

// newService builds the engine over the configured backend.
func newService(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auditCfg := auditlog.Config{
		Governance: appCfg.AuditLogGovernance,
		Moderation: appCfg.AuditLogModeration,
	}
	engineCfg := governance.Config{
		ProposalTTL:         appCfg.ProposalTTL,
		ParticipationWindow: appCfg.ParticipationWindow,
		ParticipationFloor:  appCfg.ParticipationFloor,
	}

	var (
		ledger   *auditlog.Logger
		engDeps  governance.Deps
		auditLog = logger.Named("audit")
	)
	if deps.usingMongo() {
		db := deps.CivicMongoDatabase
		ledger = auditlog.New(auditstore.New(db), auditLog, auditCfg)
		engDeps = governance.Deps{
			Members:      membershipstore.New(db),
			JoinRequests: joinrequeststore.New(db),
			Proposals:    proposalstore.New(db),
			Groups:       groupstore.New(db),
			Funds:        fundstore.New(db),
			Profiles:     userstore.New(db),
			Tx:           txn.New(deps.CivicMongoClient, logger.Named("txn")),
		}
		metrics.RegisterGauges(reg, func(ctx context.Context) metricsstore.Counts {
			return metricsstore.FetchGovernanceCounts(ctx, db)
		})
	} else {
		b := memstore.New()
		ledger = auditlog.New(b.Audit, auditLog, auditCfg)
		engDeps = governance.Deps{
			Members:      b.Members,
			JoinRequests: b.JoinRequests,
			Proposals:    b.Proposals,
			Groups:       b.Groups,
			Funds:        b.Funds,
			Profiles:     b.Profiles,
		}
	}
	engDeps.Ledger = ledger

	m := metrics.New(reg)
	ledger.Subscribe(m.Observe)

	return &service{
		engine:   governance.New(engDeps, engineCfg, logger.Named("governance")),
		ledger:   ledger,
		registry: reg,
	}
}
