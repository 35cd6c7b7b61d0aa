package seed

import (
	"context"
	"log/slog"

	"commentguard/internal/middleware"
	"commentguard/internal/models"
	"commentguard/internal/service"
)

// Ingester accepts comment batches; *service.CommentService satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, inputs []models.CommentInput) (service.IngestResult, error)
}

// Summary totals a seeding run.
type Summary struct {
	Batches    int
	Ingested   int
	Flagged    int
	AutoHidden int
}

// DefaultBatchSize is the number of comments sent per Ingest call.
const DefaultBatchSize = 100

// Run sends inputs to ing in batches of batchSize.
func Run(ctx context.Context, ing Ingester, inputs []models.CommentInput, batchSize int) (Summary, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var sum Summary
	for start := 0; start < len(inputs); start += batchSize {
		end := min(start+batchSize, len(inputs))
		res, err := ing.Ingest(ctx, inputs[start:end])
		if err != nil {
			return sum, err
		}
		sum.Batches++
		sum.Ingested += res.Ingested
		sum.Flagged += res.Flagged
		sum.AutoHidden += res.AutoHidden
		middleware.Logger.DebugContext(ctx, "seed batch ingested",
			slog.Int("batch", sum.Batches), slog.Int("comments", res.Ingested))
	}
	return sum, nil
}
