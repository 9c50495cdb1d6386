package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/civic/internal/app/governance"
	"github.com/dalemusser/civic/internal/app/system/auth"
	"github.com/dalemusser/civic/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		StoreBackend:        BackendMemory,
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "civic",
		SessionKey:          "test-session-key-0123456789abcdefghijkl",
		SessionName:         "civic-session",
		SessionMaxAge:       time.Hour,
		ProposalTTL:         governance.DefaultProposalTTL,
		ParticipationWindow: governance.DefaultParticipationWindow,
		ParticipationFloor:  50,
		ExpirySweepInterval: time.Minute,
		WriteRateLimit:      60,
		WriteRateWindow:     time.Minute,
		AuditLogGovernance:  "all",
		AuditLogModeration:  "db",
	}
}

func TestValidateAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"memory ok", func(c *AppConfig) {}, ""},
		{"memory ignores bad uri", func(c *AppConfig) { c.MongoURI = "not a uri" }, ""},
		{"mongo ok", func(c *AppConfig) { c.StoreBackend = BackendMongo }, ""},
		{"mongo bad uri", func(c *AppConfig) { c.StoreBackend = BackendMongo; c.MongoURI = "http://example.com" }, "invalid MongoDB URI"},
		{"mongo no database", func(c *AppConfig) { c.StoreBackend = BackendMongo; c.MongoDatabase = "" }, "mongo_database"},
		{"unknown backend", func(c *AppConfig) { c.StoreBackend = "redis" }, "store_backend"},
		{"bad audit setting", func(c *AppConfig) { c.AuditLogModeration = "log" }, "audit_log_moderation"},
		{"zero ttl", func(c *AppConfig) { c.ProposalTTL = 0 }, "proposal_ttl"},
		{"zero window", func(c *AppConfig) { c.ParticipationWindow = 0 }, "participation_window"},
		{"floor over 100", func(c *AppConfig) { c.ParticipationFloor = 101 }, "participation_floor"},
		{"negative sweep", func(c *AppConfig) { c.ExpirySweepInterval = -time.Second }, "expiry_sweep_interval"},
		{"sweep disabled", func(c *AppConfig) { c.ExpirySweepInterval = 0 }, ""},
		{"negative write limit", func(c *AppConfig) { c.WriteRateLimit = -1 }, "write_rate_limit"},
		{"write limit without window", func(c *AppConfig) { c.WriteRateWindow = 0 }, "write_rate_window"},
		{"write limit disabled", func(c *AppConfig) { c.WriteRateLimit = 0; c.WriteRateWindow = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateAppConfig(cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func newTestRouter(t *testing.T, s *service, deps DBDeps) (http.Handler, *auth.SessionManager) {
	t.Helper()
	cfg := validConfig()
	sm, err := auth.NewSessionManager(cfg.SessionKey, cfg.SessionName, "", cfg.SessionMaxAge, false, testLogger())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return newRouter(s, sm, deps, testLogger()), sm
}

// signedIn returns a request carrying a session cookie for userID.
func signedIn(t *testing.T, sm *auth.SessionManager, method, target, body string, userID primitive.ObjectID) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/", nil), auth.SessionUser{ID: userID.Hex(), Name: "Founder"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestRouter_MemoryBackend(t *testing.T) {
	s := newService(validConfig(), DBDeps{}, testLogger())
	h, sm := newTestRouter(t, s, DBDeps{})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"memory"`) {
			t.Errorf("body = %s, want memory database", rec.Body.String())
		}
	})

	t.Run("api requires session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/groups", strings.NewReader(`{"name":"Park"}`)))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("create group feeds metrics", func(t *testing.T) {
		founder := primitive.NewObjectID()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, signedIn(t, sm, http.MethodPost, "/api/groups", `{"name":"Riverside Park"}`, founder))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("metrics status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `civic_audit_entries_total{action="group_created"} 1`) {
			t.Errorf("metrics missing group_created counter:\n%s", rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "go_goroutines") {
			t.Error("metrics missing Go runtime collector")
		}
	})
}

func TestNewService_MongoBackend(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{CivicMongoClient: db.Client(), CivicMongoDatabase: db}
	cfg := validConfig()
	cfg.StoreBackend = BackendMongo
	s := newService(cfg, deps, testLogger())

	founder := primitive.NewObjectID()
	g, err := s.engine.CreateGroup(ctx, founder, governance.GroupInput{Name: "Harbor Watch"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	role, err := s.engine.GetRole(ctx, g.ID, founder)
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if role != "founder" {
		t.Errorf("role = %q, want founder", role)
	}

	h, _ := newTestRouter(t, s, deps)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"civic_groups 1", "civic_group_managers 1", "civic_group_members 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestEnsureSchema_MemoryIsNoop(t *testing.T) {
	if err := EnsureSchema(context.Background(), &config.CoreConfig{}, validConfig(), DBDeps{}, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
}

func TestConnectDB_Memory(t *testing.T) {
	deps, err := ConnectDB(context.Background(), &config.CoreConfig{}, validConfig(), testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if deps.CivicMongoClient != nil || deps.CivicMongoDatabase != nil {
		t.Error("memory backend should not open a Mongo client")
	}
}

func TestStartupShutdown_StopsSweeper(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	defer func() { svc = nil }()

	ctx := context.Background()
	core := &config.CoreConfig{}
	cfg := validConfig()
	cfg.ExpirySweepInterval = 10 * time.Millisecond

	if err := Startup(ctx, core, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if svc == nil || svc.sweeper == nil {
		t.Fatal("expected Startup to start the expiry sweeper")
	}
	if svc.limiter == nil {
		t.Fatal("expected Startup to build the write limiter")
	}
	if _, err := BuildHandler(core, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	if err := Shutdown(ctx, core, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestBuildHandler_BeforeStartup(t *testing.T) {
	svc = nil
	if _, err := BuildHandler(&config.CoreConfig{}, validConfig(), DBDeps{}, testLogger()); err == nil {
		t.Fatal("expected an error when Startup has not run")
	}
}
