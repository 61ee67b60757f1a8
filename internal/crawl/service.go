package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/extract"
	"cardscout.app/showpipe/internal/globaltime"
	"cardscout.app/showpipe/internal/normalize"
	"cardscout.app/showpipe/internal/registry"
	"cardscout.app/showpipe/internal/score"
)

// Summary is the batch result reported by a crawl run.
type Summary struct {
	RunID          int64   `json:"runId,omitempty"`
	SourcesSampled int     `json:"sourcesSampled"`
	Processed      int     `json:"processed"`
	Errors         int     `json:"errors"`
	Upserted       int     `json:"upserted"`
	Skipped        int     `json:"skipped"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

type store interface {
	UpsertPendingShow(ctx context.Context, params db.UpsertPendingShowParams) (int64, bool, error)
	InsertCrawlRun(ctx context.Context, sourcesSampled int, startedAt time.Time) (int64, error)
	CompleteCrawlRun(ctx context.Context, runID int64, processed, errCount int, finishedAt time.Time) error
	FailCrawlRun(ctx context.Context, runID int64, message string, finishedAt time.Time) error
}

// Service runs the ingestion batch: sample sources, fetch, extract,
// normalize, score, and upsert into the moderation queue.
type Service struct {
	registry  *registry.Registry
	fetcher   Fetcher
	extractor extract.Extractor
	store     store
	logger    zerolog.Logger
	batchSize int
}

func NewService(reg *registry.Registry, fetcher Fetcher, extractor extract.Extractor, st store, logger zerolog.Logger, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Service{
		registry:  reg,
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Run executes one batch. limit overrides the configured batch size when
// positive. A source that fails is counted and skipped; the batch never
// aborts because one page was broken.
func (s *Service) Run(ctx context.Context, limit int) (Summary, error) {
	started := globaltime.Now()

	size := s.batchSize
	if limit > 0 {
		size = limit
	}

	sources := s.registry.Sample(size)
	summary := Summary{SourcesSampled: len(sources)}

	runID, err := s.store.InsertCrawlRun(ctx, len(sources), started)
	if err != nil {
		return summary, fmt.Errorf("record crawl run: %w", err)
	}
	summary.RunID = runID

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			message := fmt.Sprintf("batch interrupted: %v", err)
			_ = s.store.FailCrawlRun(ctx, runID, message, globaltime.Now())
			summary.ElapsedSeconds = globaltime.Now().Sub(started).Seconds()
			return summary, err
		}

		upserted, skipped, failed, err := s.processSource(ctx, source)
		summary.Upserted += upserted
		summary.Skipped += skipped
		summary.Errors += failed
		if err != nil {
			summary.Errors++
			s.logger.Warn().
				Err(err).
				Str("source", source.Address).
				Msg("source processing failed")
			continue
		}
		summary.Processed++
		s.logger.Info().
			Str("source", source.Address).
			Int("upserted", upserted).
			Int("skipped", skipped).
			Msg("source processed")
	}

	finished := globaltime.Now()
	summary.ElapsedSeconds = finished.Sub(started).Seconds()

	if err := s.store.CompleteCrawlRun(ctx, runID, summary.Processed, summary.Errors, finished); err != nil {
		return summary, fmt.Errorf("finalize crawl run: %w", err)
	}

	s.logger.Info().
		Int64("run_id", runID).
		Int("sources_sampled", summary.SourcesSampled).
		Int("processed", summary.Processed).
		Int("errors", summary.Errors).
		Float64("elapsed_seconds", summary.ElapsedSeconds).
		Msg("crawl run finished")

	return summary, nil
}

// processSource handles one sampled source. A candidate whose persistence
// fails is counted and skipped; the remaining candidates from the same
// document still get their upsert attempt.
func (s *Service) processSource(ctx context.Context, source registry.Source) (int, int, int, error) {
	text, err := s.fetcher.FetchText(ctx, source.Address)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch: %w", err)
	}

	result, err := s.extractor.Extract(ctx, source.Address, text)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("extract: %w", err)
	}
	if result.Malformed {
		return 0, 0, 0, fmt.Errorf("extract: malformed model output")
	}

	now := globaltime.Now()

	upserted := 0
	skipped := 0
	failed := 0
	for _, candidate := range result.Candidates {
		normalized := normalize.FromCandidate(candidate, now)
		if !normalized.HasIdentity() {
			skipped++
			continue
		}

		confidence := score.Confidence(normalized)

		rawPayload, err := json.Marshal(candidate)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", source.Address).Msg("encode raw payload failed")
			failed++
			continue
		}
		normalizedJSON, err := json.Marshal(normalized)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", source.Address).Msg("encode normalized payload failed")
			failed++
			continue
		}

		_, _, err = s.store.UpsertPendingShow(ctx, db.UpsertPendingShowParams{
			Name:           normalized.Name,
			StartDate:      normalized.StartDate,
			City:           normalized.City,
			SourceAddress:  source.Address,
			RawPayload:     rawPayload,
			NormalizedJSON: normalizedJSON,
			Confidence:     &confidence,
			Now:            now,
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("source", source.Address).
				Str("name", normalized.Name).
				Msg("candidate upsert failed")
			failed++
			continue
		}
		upserted++
	}

	return upserted, skipped, failed, nil
}
