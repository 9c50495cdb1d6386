// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/policy/governancepolicy"
	"github.com/dalemusser/civic/internal/app/system/limits"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the civic service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, proposal_ttl, etc.
//   - Environment variables: CIVIC_MONGO_URI, CIVIC_PROPOSAL_TTL, etc.
//   - Command-line flags: --mongo_uri, --proposal_ttl, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Persistence backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "civic", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "civic-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Governance lifecycle
	{Name: "proposal_ttl", Default: "72h", Desc: "How long proposals stay open for votes"},
	{Name: "participation_window", Default: "720h", Desc: "Look-back window for the participation rate"},
	{Name: "participation_floor", Default: governancepolicy.DefaultParticipationFloor, Desc: "Participation rate (percent) below which health warns"},
	{Name: "expiry_sweep_interval", Default: "1m", Desc: "Background proposal expiry sweep interval (0 disables)"},

	// Abuse guard
	{Name: "write_rate_limit", Default: limits.DefaultWriteLimit, Desc: "Max state-changing governance requests per user per window (0 disables)"},
	{Name: "write_rate_window", Default: "1m", Desc: "Window for write_rate_limit"},

	// Audit logging settings
	{Name: "audit_log_governance", Default: "all", Desc: "Governance entry logging: 'all' (db+log) or 'db'"},
	{Name: "audit_log_moderation", Default: "all", Desc: "Moderation entry logging: 'all' (db+log) or 'db'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CIVIC_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CIVIC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     appValues.String("store_backend"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		ProposalTTL:         appValues.Duration("proposal_ttl", governance.DefaultProposalTTL),
		ParticipationWindow: appValues.Duration("participation_window", governance.DefaultParticipationWindow),
		ParticipationFloor:  appValues.Int("participation_floor"),
		ExpirySweepInterval: appValues.Duration("expiry_sweep_interval", time.Minute),

		WriteRateLimit:  appValues.Int("write_rate_limit"),
		WriteRateWindow: appValues.Duration("write_rate_window", limits.DefaultWriteWindow),

		AuditLogGovernance: appValues.String("audit_log_governance"),
		AuditLogModeration: appValues.String("audit_log_moderation"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is only checked when the mongo backend is selected, so
// memory deployments can leave it unset.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	return validateAppConfig(appCfg, logger)
}

func validateAppConfig(appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required when store_backend is %q", BackendMongo)
		}
	case BackendMemory:
		logger.Warn("memory store backend selected; governance state will not survive a restart")
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}

	for key, v := range map[string]string{
		"audit_log_governance": appCfg.AuditLogGovernance,
		"audit_log_moderation": appCfg.AuditLogModeration,
	} {
		if v != "all" && v != "db" {
			return fmt.Errorf("%s must be 'all' or 'db', got %q", key, v)
		}
	}

	if appCfg.ProposalTTL <= 0 {
		return fmt.Errorf("proposal_ttl must be positive, got %s", appCfg.ProposalTTL)
	}
	if appCfg.ParticipationWindow <= 0 {
		return fmt.Errorf("participation_window must be positive, got %s", appCfg.ParticipationWindow)
	}
	if appCfg.ParticipationFloor < 0 || appCfg.ParticipationFloor > 100 {
		return fmt.Errorf("participation_floor must be between 0 and 100, got %d", appCfg.ParticipationFloor)
	}
	if appCfg.ExpirySweepInterval < 0 {
		return fmt.Errorf("expiry_sweep_interval must not be negative, got %s", appCfg.ExpirySweepInterval)
	}
	if appCfg.WriteRateLimit < 0 {
		return fmt.Errorf("write_rate_limit must not be negative, got %d", appCfg.WriteRateLimit)
	}
	if appCfg.WriteRateLimit > 0 && appCfg.WriteRateWindow <= 0 {
		return fmt.Errorf("write_rate_window must be positive when write_rate_limit is set, got %s", appCfg.WriteRateWindow)
	}
	return nil
}
