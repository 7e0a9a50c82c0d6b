package domain

import (
	"encoding/json"
	"time"
)

// ObservationInput is one raw record of a batch as sent by a source.
type ObservationInput struct {
	MetricCode   string          `json:"metric_code"`
	RecordedAt   time.Time       `json:"recorded_at"`
	ValueNumeric *float64        `json:"value_numeric,omitempty"`
	ValueText    *string         `json:"value_text,omitempty"`
	RawMetadata  json.RawMessage `json:"raw_metadata,omitempty"`
}

type BatchIngestRequest struct {
	SourceName string             `json:"source_name"`
	Data       []ObservationInput `json:"data"`
}

type IngestOptions struct {
	IdempotencyKey string
}

// BatchResult summarises a committed batch.
type BatchResult struct {
	Processed             int      `json:"processed"`
	SkippedUnknownMetrics []string `json:"skipped_unknown_metrics"`
	SourceID              int64    `json:"source_id"`
}
