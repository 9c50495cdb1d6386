// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends accepted by store_backend.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for the civic service.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits).
type AppConfig struct {
	// Persistence: "mongo" or "memory". Memory keeps all governance state in
	// process and is meant for local development and demos.
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: civic-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Governance lifecycle
	ProposalTTL         time.Duration // How long a proposal stays open for votes
	ParticipationWindow time.Duration // Look-back window for participation rate
	ParticipationFloor  int           // Percent below which health reports a warning
	ExpirySweepInterval time.Duration // Background expiry sweep period (0 disables)

	// Per-user cap on state-changing governance requests (0 disables)
	WriteRateLimit  int
	WriteRateWindow time.Duration

	// Audit echo settings: "all" (store + log) or "db" (store only)
	AuditLogGovernance string
	AuditLogModeration string
}
