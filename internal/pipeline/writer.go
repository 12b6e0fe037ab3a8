package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// DefaultBatchSize bounds the rows written per statement.
const DefaultBatchSize = 500

// BatchWriter persists trades in fixed-size batches with insert-or-ignore
// semantics. A failed batch is logged and skipped; later batches are still
// written and earlier ones are not rolled back.
type BatchWriter struct {
	inserter  domain.TradeInserter
	batchSize int
	logger    *slog.Logger
}

// NewBatchWriter creates a BatchWriter. A non-positive batchSize selects
// DefaultBatchSize.
func NewBatchWriter(inserter domain.TradeInserter, batchSize int, logger *slog.Logger) *BatchWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchWriter{
		inserter:  inserter,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "batch_writer")),
	}
}

// Upsert writes records and returns how many were new. Records may mix
// venues; each venue's records go to its own table. The error joins every
// failed batch.
func (w *BatchWriter) Upsert(ctx context.Context, records []domain.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	byPlatform := make(map[domain.Platform][]domain.TradeRecord)
	for _, rec := range records {
		byPlatform[rec.Platform] = append(byPlatform[rec.Platform], rec)
	}

	var (
		total int
		errs  []error
	)
	for _, platform := range domain.AllPlatforms() {
		recs := byPlatform[platform]
		delete(byPlatform, platform)
		for start := 0; start < len(recs); start += w.batchSize {
			end := min(start+w.batchSize, len(recs))
			batch := recs[start:end]

			inserted, err := w.inserter.InsertTrades(ctx, platform, batch)
			if err != nil {
				w.logger.Error("batch write failed",
					slog.String("platform", string(platform)),
					slog.Int("offset", start),
					slog.Int("size", len(batch)),
					slog.String("error", err.Error()),
				)
				errs = append(errs, fmt.Errorf("%s batch [%d,%d): %w", platform, start, end, err))
				continue
			}
			total += inserted
			w.logger.Debug("batch written",
				slog.String("platform", string(platform)),
				slog.Int("inserted", inserted),
				slog.Int("size", len(batch)),
			)
		}
	}
	for platform, recs := range byPlatform {
		errs = append(errs, fmt.Errorf("%d records for unknown platform %q", len(recs), platform))
	}

	if len(errs) > 0 {
		return total, fmt.Errorf("pipeline: upsert: %w", errors.Join(errs...))
	}
	return total, nil
}
