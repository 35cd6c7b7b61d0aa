package analytics

import (
	"strconv"
	"strings"
	"time"

	"commentguard/internal/models"
)

// ExportHeader names the columns of Row.Record.
var ExportHeader = []string{
	"id", "timestamp", "author", "text", "post_id", "likes",
	"sentiment", "hidden", "flagged", "problem_types",
}

// Row is one comment flattened for tabular export.
type Row struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Author       string    `json:"author"`
	Text         string    `json:"text"`
	PostID       string    `json:"post_id"`
	Likes        int       `json:"likes"`
	Sentiment    string    `json:"sentiment"`
	Hidden       bool      `json:"hidden"`
	Flagged      bool      `json:"flagged"`
	ProblemTypes []string  `json:"problem_types"`
}

// ExportRows flattens comments in their given order.
func ExportRows(comments []models.Comment) []Row {
	rows := make([]Row, 0, len(comments))
	for _, c := range comments {
		author := c.AuthorName
		if author == "" {
			author = c.AuthorID
		}
		rows = append(rows, Row{
			ID:           c.ID,
			Timestamp:    c.CreatedAt,
			Author:       author,
			Text:         c.Text,
			PostID:       c.PostID,
			Likes:        c.LikeCount,
			Sentiment:    string(c.Sentiment),
			Hidden:       c.Hidden,
			Flagged:      c.Flags.NeedsReview(),
			ProblemTypes: c.Flags.Categories(),
		})
	}
	return rows
}

// Record returns the row as strings in ExportHeader order.
func (r Row) Record() []string {
	return []string{
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Author,
		r.Text,
		r.PostID,
		strconv.Itoa(r.Likes),
		r.Sentiment,
		strconv.FormatBool(r.Hidden),
		strconv.FormatBool(r.Flagged),
		strings.Join(r.ProblemTypes, ";"),
	}
}
