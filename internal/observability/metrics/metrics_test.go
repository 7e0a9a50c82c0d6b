package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "success"),
		attribute.String("user_id", "456"),
		attribute.String("endpoint", "/observations/batch"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
	if attrs[0].Key != "endpoint" && attrs[1].Key != "endpoint" {
		t.Fatalf("expected endpoint to be retained")
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.RecordBatchIngest(context.Background(), "success", 3, 1)
	m.RecordSourceCreated(context.Background())
	m.RecordCatalogLoad(context.Background(), "error")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "healx-test"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordBatchIngest(context.Background(), "success", 2, 0)
	m.RecordRateLimitDenied(context.Background(), "/observations/batch", "user-rate")
}
