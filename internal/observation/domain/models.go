// Package domain contains the write model of the batch ingestion pipeline.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Observation is a single timestamped measurement. Rows are never updated.
type Observation struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID       string       `gorm:"type:text;not null;index:idx_health_observations_user_metric,priority:1"`
	MetricID     int64        `gorm:"not null;index:idx_health_observations_user_metric,priority:2"`
	SourceID     int64        `gorm:"not null;index:idx_health_observations_source"`
	RecordedAt   time.Time    `gorm:"not null;index:idx_health_observations_user_metric,priority:3"`
	IngestedAt   time.Time    `gorm:"not null"`
	ValueNumeric *float64     `gorm:"type:numeric(18,6);check:chk_health_observations_one_value,(value_numeric IS NULL) <> (value_text IS NULL)"`
	ValueText    *string      `gorm:"type:text"`
	RawMetadata  datatypes.JSON
}

func (Observation) TableName() string { return "health_observations" }

// IngestBatch is the idempotency ledger entry of a committed batch.
type IngestBatch struct {
	ID                    snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID                string       `gorm:"type:text;not null;uniqueIndex:ux_ingest_batches_user_key,priority:1"`
	IdempotencyKey        string       `gorm:"type:text;not null;uniqueIndex:ux_ingest_batches_user_key,priority:2"`
	RequestFingerprint    string       `gorm:"type:text;not null;default:''"`
	SourceID              int64        `gorm:"not null"`
	Processed             int          `gorm:"not null"`
	SkippedUnknownMetrics datatypes.JSONSlice[string]
	CreatedAt             time.Time `gorm:"not null"`
}

func (IngestBatch) TableName() string { return "ingest_batches" }
