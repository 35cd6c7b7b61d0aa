package server

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"commentguard/internal/analytics"
	"commentguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAnalytics returns aggregate metrics for a date range
func (s *Server) GetAnalytics(c *fiber.Ctx) error {
	dateRange, err := analytics.ParseRange(c.Query("range"))
	if err != nil {
		return respondError(c, err)
	}
	metrics := s.analyticsService.Metrics(c.UserContext(), analytics.Filters{
		DateRange:     dateRange,
		IncludeHidden: c.QueryBool("include_hidden", false),
	})
	return c.JSON(metrics)
}

// ExportComments returns flattened comment rows as JSON, or as CSV when
// format=csv.
func (s *Server) ExportComments(c *fiber.Ctx) error {
	rows := s.analyticsService.Export(service.ExportFilter{
		PostID:        c.Query("post_id"),
		IncludeHidden: c.QueryBool("include_hidden", true),
	})

	if c.Query("format") != "csv" {
		return c.JSON(fiber.Map{"rows": rows, "total": len(rows)})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(analytics.ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="comments.csv"`)
	return c.Send(buf.Bytes())
}
