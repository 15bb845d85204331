package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/BDNK1/durable/runtime"
	"github.com/BDNK1/durable/runtime/telemetry"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), runtime.TelemetryConfig{Enabled: true, ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Active() {
		t.Fatal("expected inactive providers without endpoint")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), runtime.TelemetryConfig{
		Enabled:     false,
		Endpoint:    "localhost:4317",
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Active() {
		t.Fatal("expected inactive providers when disabled")
	}
}

func TestSetup_CreatesProvidersWhenEndpointSet(t *testing.T) {
	// Non-routable address: exporters connect lazily so Setup succeeds.
	p, err := telemetry.Setup(context.Background(), runtime.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "192.0.2.1:4317",
		ServiceName: "test",
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Active() {
		t.Fatal("expected active providers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestNewLogger_Format(t *testing.T) {
	tests := []struct {
		name   string
		cfg    runtime.LogConfig
		assert func(t *testing.T, out string)
	}{
		{
			name: "text",
			cfg:  runtime.LogConfig{Level: "info", Format: "text"},
			assert: func(t *testing.T, out string) {
				if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "orchestration=greet") {
					t.Errorf("unexpected text output: %q", out)
				}
			},
		},
		{
			name: "json",
			cfg:  runtime.LogConfig{Level: "info", Format: "json"},
			assert: func(t *testing.T, out string) {
				var rec map[string]any
				if err := json.Unmarshal([]byte(out), &rec); err != nil {
					t.Fatalf("output is not JSON: %v (%q)", err, out)
				}
				if rec["msg"] != "hello" || rec["orchestration"] != "greet" {
					t.Errorf("unexpected record: %v", rec)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := telemetry.NewLogger(tt.cfg, &buf, &telemetry.Providers{})
			l.Info("hello", "orchestration", "greet")
			tt.assert(t, buf.String())
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := telemetry.NewLogger(runtime.LogConfig{Level: "warn", Format: "text"}, &buf, nil)

	l.Info("dropped")
	l.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %q", out)
	}
}
