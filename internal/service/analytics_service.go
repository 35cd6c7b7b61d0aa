package service

import (
	"context"
	"time"

	"commentguard/internal/analytics"
	"commentguard/internal/cache"
	"commentguard/internal/models"
	"commentguard/internal/observability"
	"commentguard/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// ExportFilter narrows Export.
type ExportFilter struct {
	PostID        string
	IncludeHidden bool
}

// AnalyticsService computes metrics over the comment store.
type AnalyticsService struct {
	comments *store.CommentStore
	cache    *cache.AnalyticsCache
	now      func() time.Time
}

// NewAnalyticsService returns a new AnalyticsService. A nil cache computes
// every request.
func NewAnalyticsService(comments *store.CommentStore, c *cache.AnalyticsCache) *AnalyticsService {
	return &AnalyticsService{comments: comments, cache: c, now: time.Now}
}

// Metrics aggregates the stored comments under filters.
func (s *AnalyticsService) Metrics(ctx context.Context, filters analytics.Filters) analytics.Metrics {
	span, ctx := observability.NewSpan(ctx, "analytics.Metrics",
		attribute.String("analytics.range", string(filters.DateRange)),
		attribute.Bool("analytics.include_hidden", filters.IncludeHidden),
	)
	defer span.End()

	compute := func() analytics.Metrics {
		return analytics.ComputeMetrics(s.comments.All(), filters, s.now())
	}
	if s.cache == nil {
		return compute()
	}
	return s.cache.GetOrCompute(ctx, filters, s.comments.Version(), compute)
}

// Export flattens the stored comments for tabular output.
func (s *AnalyticsService) Export(f ExportFilter) []analytics.Row {
	var all []models.Comment
	if f.PostID != "" {
		all = s.comments.AllForPost(f.PostID)
	} else {
		all = s.comments.All()
	}
	selected := make([]models.Comment, 0, len(all))
	for _, c := range all {
		if c.Hidden && !f.IncludeHidden {
			continue
		}
		selected = append(selected, c)
	}
	return analytics.ExportRows(selected)
}
