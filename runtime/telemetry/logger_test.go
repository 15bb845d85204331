package telemetry

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/BDNK1/durable/runtime"
)

// recordingProcessor keeps the body of every exported log record.
type recordingProcessor struct {
	mu     sync.Mutex
	bodies []string
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, r.Body().AsString())
	return nil
}

func (p *recordingProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool {
	return true
}

func (p *recordingProcessor) Shutdown(context.Context) error   { return nil }
func (p *recordingProcessor) ForceFlush(context.Context) error { return nil }

func TestNewLogger_ExportsToBridge(t *testing.T) {
	rec := &recordingProcessor{}
	p := &Providers{
		tracer: sdktrace.NewTracerProvider(),
		logger: sdklog.NewLoggerProvider(sdklog.WithProcessor(rec)),
	}
	t.Cleanup(func() {
		_ = p.tracer.Shutdown(context.Background())
		_ = p.logger.Shutdown(context.Background())
	})

	var buf bytes.Buffer
	l := NewLogger(runtime.LogConfig{Level: "info", Format: "text"}, &buf, p)
	l.With("orchestration", "greet").Info("pass stopped")

	if !strings.Contains(buf.String(), "msg=\"pass stopped\"") || !strings.Contains(buf.String(), "orchestration=greet") {
		t.Errorf("local handler missed the record: %q", buf.String())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.bodies) != 1 || rec.bodies[0] != "pass stopped" {
		t.Errorf("exported records = %v", rec.bodies)
	}
}
