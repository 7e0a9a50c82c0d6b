package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"github.com/smallbiznis/healx/internal/clock"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/smallbiznis/healx/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/healx/internal/observability/metrics"
	observationdomain "github.com/smallbiznis/healx/internal/observation/domain"
	sourcedomain "github.com/smallbiznis/healx/internal/source/domain"
	"github.com/smallbiznis/healx/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxIdempotencyKeyLength = 255
	maxTxAttempts           = 3
	txRetryBackoff          = 25 * time.Millisecond
	// value_numeric is NUMERIC(18,6): at most 12 integer digits.
	maxNumericMagnitude = 1e12
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       observationdomain.Repository
	Catalog    catalogdomain.Resolver
	Sources    sourcedomain.Registry
	Policy     *config.IngestPolicyHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       observationdomain.Repository
	catalog    catalogdomain.Resolver
	sources    sourcedomain.Registry
	policy     *config.IngestPolicyHolder
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) observationdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("observation.service"),
		genID:      p.GenID,
		clock:      clk,
		repo:       p.Repo,
		catalog:    p.Catalog,
		sources:    p.Sources,
		policy:     p.Policy,
		obsMetrics: p.ObsMetrics,
	}
}

// plan is the outcome of resolving a batch against the catalog, before any write.
type plan struct {
	rows    []observationdomain.Observation
	skipped []string
}

func (s *Service) ProcessBatch(
	ctx context.Context,
	userID string,
	req observationdomain.BatchIngestRequest,
	opts observationdomain.IngestOptions,
) (*observationdomain.BatchResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, observationdomain.ErrInvalidUser
	}

	sourceName := strings.TrimSpace(req.SourceName)
	if sourceName == "" {
		return nil, sourcedomain.ErrInvalidSourceName
	}

	policy := s.policy.Get()
	if len(req.Data) > policy.MaxBatchSize {
		return nil, observationdomain.ErrBatchTooLarge
	}

	key := strings.TrimSpace(opts.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLength {
		return nil, observationdomain.ErrInvalidIdempotencyKey
	}

	log := logger.WithSource(logger.WithContext(ctx, s.log), sourceName)

	var fingerprint string
	if key != "" {
		fingerprint = requestFingerprint(sourceName, req.Data)
		existing, err := s.repo.FindBatch(ctx, s.db, userID, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", observationdomain.ErrBatchInsertFailed, err)
		}
		if existing != nil {
			return s.replay(ctx, log, existing, key, fingerprint)
		}
	}

	if err := s.catalog.Warm(ctx); err != nil {
		s.obsMetrics.RecordBatchIngest(ctx, "catalog_unavailable", 0, 0)
		return nil, err
	}

	p, err := s.resolve(ctx, userID, req.Data)
	if err != nil {
		s.obsMetrics.RecordBatchIngest(ctx, "rejected", 0, 0)
		return nil, err
	}

	var result *observationdomain.BatchResult
	for attempt := 1; ; attempt++ {
		result, err = s.commit(ctx, userID, sourceName, key, fingerprint, p, policy.InsertChunkSize)
		if err == nil || !db.IsRetryable(err) || attempt == maxTxAttempts {
			break
		}
		log.Warn("batch transaction contended, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if waitErr := sleepCtx(ctx, time.Duration(attempt)*txRetryBackoff); waitErr != nil {
			break
		}
	}
	if err != nil {
		if errors.Is(err, observationdomain.ErrIdempotencyConflict) {
			if existing, findErr := s.repo.FindBatch(ctx, s.db, userID, key); findErr == nil && existing != nil {
				return s.replay(ctx, log, existing, key, fingerprint)
			}
		}
		outcome := failureOutcome(err)
		err = classifyTxError(err)
		log.Error("batch ingest failed",
			zap.Int("records", len(req.Data)),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		s.obsMetrics.RecordBatchIngest(ctx, outcome, 0, 0)
		return nil, err
	}

	s.sources.Remember(sourceName, result.SourceID)
	s.obsMetrics.RecordBatchIngest(ctx, "success", result.Processed, len(result.SkippedUnknownMetrics))
	log.Info("batch ingested",
		zap.Int64("source_id", result.SourceID),
		zap.Int("records", len(req.Data)),
		zap.Int("processed", result.Processed),
		zap.Strings("skipped_unknown_metrics", result.SkippedUnknownMetrics),
	)
	return result, nil
}

// commit writes the source, the rows and the ledger entry in one transaction.
func (s *Service) commit(
	ctx context.Context,
	userID, sourceName, key, fingerprint string,
	p *plan,
	chunkSize int,
) (*observationdomain.BatchResult, error) {
	var result *observationdomain.BatchResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sourceID, _, err := s.sources.ResolveOrCreate(ctx, tx, sourceName)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for i := range p.rows {
			p.rows[i].ID = s.genID.Generate()
			p.rows[i].SourceID = sourceID
			p.rows[i].IngestedAt = now
		}

		if _, err := s.repo.InsertObservations(ctx, tx, p.rows, chunkSize); err != nil {
			return fmt.Errorf("%w: %w", observationdomain.ErrBatchInsertFailed, err)
		}

		result = &observationdomain.BatchResult{
			Processed:             len(p.rows),
			SkippedUnknownMetrics: p.skipped,
			SourceID:              sourceID,
		}

		if key == "" {
			return nil
		}
		err = s.repo.InsertBatch(ctx, tx, &observationdomain.IngestBatch{
			ID:                    s.genID.Generate(),
			UserID:                userID,
			IdempotencyKey:        key,
			RequestFingerprint:    fingerprint,
			SourceID:              sourceID,
			Processed:             result.Processed,
			SkippedUnknownMetrics: datatypes.JSONSlice[string](result.SkippedUnknownMetrics),
			CreatedAt:             now,
		})
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return observationdomain.ErrIdempotencyConflict
			}
			return fmt.Errorf("%w: %w", observationdomain.ErrBatchInsertFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replay answers a repeated key with the stored summary. A key sent again with
// a different body is refused.
func (s *Service) replay(
	ctx context.Context,
	log *zap.Logger,
	existing *observationdomain.IngestBatch,
	key, fingerprint string,
) (*observationdomain.BatchResult, error) {
	if existing.RequestFingerprint != "" && existing.RequestFingerprint != fingerprint {
		log.Warn("idempotency key reused with a different request", zap.String("idempotency_key", key))
		s.obsMetrics.RecordBatchIngest(ctx, "rejected", 0, 0)
		return nil, observationdomain.ErrIdempotencyKeyReused
	}
	log.Info("batch replayed", zap.String("idempotency_key", key))
	s.obsMetrics.RecordBatchIngest(ctx, "replayed", 0, 0)
	return resultFromBatch(existing), nil
}

// resolve maps every record to a metric id and validates the ones that will be
// stored. Unknown codes are collected once each, in first-seen order.
func (s *Service) resolve(ctx context.Context, userID string, data []observationdomain.ObservationInput) (*plan, error) {
	p := &plan{
		rows:    make([]observationdomain.Observation, 0, len(data)),
		skipped: []string{},
	}
	seen := make(map[string]struct{})

	for i, in := range data {
		metricID, ok, err := s.catalog.Resolve(ctx, in.MetricCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			if _, dup := seen[in.MetricCode]; !dup {
				seen[in.MetricCode] = struct{}{}
				p.skipped = append(p.skipped, in.MetricCode)
			}
			continue
		}

		if err := validateInput(in); err != nil {
			return nil, &observationdomain.RecordError{Index: i, Err: err}
		}

		row := observationdomain.Observation{
			UserID:       userID,
			MetricID:     metricID,
			RecordedAt:   in.RecordedAt.UTC(),
			ValueNumeric: in.ValueNumeric,
			ValueText:    in.ValueText,
		}
		if hasMetadata(in.RawMetadata) {
			row.RawMetadata = datatypes.JSON(in.RawMetadata)
		}
		p.rows = append(p.rows, row)
	}
	return p, nil
}

func validateInput(in observationdomain.ObservationInput) error {
	if in.RecordedAt.IsZero() {
		return observationdomain.ErrInvalidRecordedAt
	}
	if (in.ValueNumeric == nil) == (in.ValueText == nil) {
		return observationdomain.ErrInvalidObservationValue
	}
	if in.ValueNumeric != nil {
		v := *in.ValueNumeric
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= maxNumericMagnitude {
			return observationdomain.ErrInvalidObservationValue
		}
	}
	if hasMetadata(in.RawMetadata) && bytes.TrimSpace(in.RawMetadata)[0] != '{' {
		return observationdomain.ErrInvalidRawMetadata
	}
	return nil
}

func hasMetadata(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// classifyTxError keeps domain errors and turns lock contention into a
// retryable conflict. The driver text is kept but not wrapped, so the result
// never matches ErrBatchInsertFailed.
func classifyTxError(err error) error {
	switch {
	case db.IsRetryable(err):
		return fmt.Errorf("%w: %s", observationdomain.ErrBatchConflict, err.Error())
	case errors.Is(err, observationdomain.ErrBatchInsertFailed),
		errors.Is(err, observationdomain.ErrIdempotencyConflict),
		errors.Is(err, sourcedomain.ErrSourceConflict),
		errors.Is(err, sourcedomain.ErrInvalidSourceName):
		return err
	default:
		return fmt.Errorf("%w: %w", observationdomain.ErrBatchInsertFailed, err)
	}
}

func failureOutcome(err error) string {
	switch {
	case db.IsRetryable(err),
		errors.Is(err, observationdomain.ErrIdempotencyConflict),
		errors.Is(err, sourcedomain.ErrSourceConflict):
		return "conflict"
	case db.IsCheckViolation(err):
		return "constraint_violation"
	default:
		return "failed"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// requestFingerprint hashes the parts of a batch that decide what gets
// stored. Timestamps are normalised to UTC and metadata is compacted.
func requestFingerprint(sourceName string, data []observationdomain.ObservationInput) string {
	canonical := make([]observationdomain.ObservationInput, len(data))
	for i, in := range data {
		in.RecordedAt = in.RecordedAt.UTC()
		canonical[i] = in
	}
	body, err := json.Marshal(observationdomain.BatchIngestRequest{
		SourceName: sourceName,
		Data:       canonical,
	})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func resultFromBatch(b *observationdomain.IngestBatch) *observationdomain.BatchResult {
	skipped := []string(b.SkippedUnknownMetrics)
	if skipped == nil {
		skipped = []string{}
	}
	return &observationdomain.BatchResult{
		Processed:             b.Processed,
		SkippedUnknownMetrics: skipped,
		SourceID:              b.SourceID,
	}
}
