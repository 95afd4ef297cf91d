package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "application_submitted", "application_id", "a1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if rec["trace_id"] != tid.String() || rec["span_id"] != sid.String() {
		t.Fatalf("missing trace ids: %v", rec)
	}
	if rec["service"] != "admissionhub" {
		t.Fatalf("missing service attr: %v", rec)
	}
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger("prod", &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered outside dev: %s", buf.String())
	}

	newLogger("dev", &buf).Debug("shown")
	if buf.Len() == 0 {
		t.Fatalf("debug should be emitted in dev")
	}
}
