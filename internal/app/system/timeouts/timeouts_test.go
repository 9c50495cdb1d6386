package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_KeepsUnsetTiers(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Write: 42 * time.Second})

	if got := Write(); got != 42*time.Second {
		t.Errorf("Write() = %v, want 42s", got)
	}
	if got := Read(); got != DefaultRead {
		t.Errorf("Read() = %v, want default %v", got, DefaultRead)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("CIVIC_TIMEOUT_PING", "500ms")
	t.Setenv("CIVIC_TIMEOUT_SWEEP", "2m")
	t.Setenv("CIVIC_TIMEOUT_READ", "not-a-duration")

	if n := ConfigureFromEnv(); n != 2 {
		t.Errorf("ConfigureFromEnv() = %d, want 2", n)
	}
	if Ping() != 500*time.Millisecond || Sweep() != 2*time.Minute {
		t.Errorf("unexpected config %+v", Current())
	}
	if Read() != DefaultRead {
		t.Errorf("invalid env value should be ignored, got %v", Read())
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "sweep")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "sweep" {
		t.Errorf("operation field = %v", op)
	}

	_, cancel = WithTimeout(context.Background(), time.Minute, log, "read")
	cancel()
	if logs.Len() != 1 {
		t.Errorf("early cancel should not log, got %d entries", logs.Len())
	}
}
