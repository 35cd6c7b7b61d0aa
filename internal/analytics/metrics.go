// Package analytics aggregates comment populations into reporting metrics.
package analytics

import (
	"sort"
	"strings"
	"time"

	"commentguard/internal/models"
)

// DateRange bounds the comments a metrics computation looks at.
type DateRange string

const (
	Range7d  DateRange = "7d"
	Range30d DateRange = "30d"
	Range90d DateRange = "90d"
	RangeAll DateRange = "all"
)

// ParseRange parses a date range, defaulting to 7d when raw is empty.
func ParseRange(raw string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return Range7d, nil
	case Range7d, Range30d, Range90d, RangeAll:
		return r, nil
	}
	return "", models.NewValidationError("date range must be one of 7d, 30d, 90d, all")
}

// Days returns the range length and whether the range is bounded.
func (r DateRange) Days() (int, bool) {
	switch r {
	case Range7d:
		return 7, true
	case Range30d:
		return 30, true
	case Range90d:
		return 90, true
	}
	return 0, false
}

// Filters select the comments included in Metrics.
type Filters struct {
	DateRange     DateRange `json:"date_range"`
	IncludeHidden bool      `json:"include_hidden"`
}

// Trend is the week-over-week direction of comment volume.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// PostCount is a post and how many comments it has.
type PostCount struct {
	PostID   string `json:"post_id"`
	Comments int    `json:"comments"`
}

// DayBucket holds one calendar day of the per-day series.
type DayBucket struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

// Metrics is the aggregate view of a comment population.
type Metrics struct {
	Filters            Filters        `json:"filters"`
	TotalComments      int            `json:"total_comments"`
	HiddenComments     int            `json:"hidden_comments"`
	FlaggedComments    int            `json:"flagged_comments"`
	PositiveComments   int            `json:"positive_comments"`
	NegativeComments   int            `json:"negative_comments"`
	NeutralComments    int            `json:"neutral_comments"`
	AvgSentiment       float64        `json:"avg_sentiment"`
	TotalPosts         int            `json:"total_posts"`
	AvgCommentsPerPost float64        `json:"avg_comments_per_post"`
	MostCommentedPost  *PostCount     `json:"most_commented_post,omitempty"`
	ProblemCounts      map[string]int `json:"problem_counts"`
	Trend              Trend          `json:"trend"`
	RecentWeek         int            `json:"recent_week"`
	PreviousWeek       int            `json:"previous_week"`
	Daily              []DayBucket    `json:"daily"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// ComputeMetrics aggregates comments under filters as of now.
//
// HiddenComments counts hidden comments inside the date window whether or
// not they are included; every other figure uses the included set. The
// trend ignores the date range and compares the 7 calendar days ending
// today with the 7 days before them.
func ComputeMetrics(comments []models.Comment, filters Filters, now time.Time) Metrics {
	if filters.DateRange == "" {
		filters.DateRange = Range7d
	}
	m := Metrics{
		Filters:       filters,
		ProblemCounts: make(map[string]int),
		Daily:         []DayBucket{},
		GeneratedAt:   now,
	}

	var visible []models.Comment
	for _, c := range comments {
		if c.Hidden && !filters.IncludeHidden {
			continue
		}
		visible = append(visible, c)
	}
	m.Trend, m.RecentWeek, m.PreviousWeek = weekTrend(visible, now)

	start, end, bounded := window(filters.DateRange, now)
	inWindow := func(c models.Comment) bool {
		return !bounded || (!c.CreatedAt.Before(start) && !c.CreatedAt.After(end))
	}
	for _, c := range comments {
		if c.Hidden && inWindow(c) {
			m.HiddenComments++
		}
	}

	postCounts := make(map[string]int)
	var postOrder []string
	days := make(map[string]*DayBucket)
	score := 0

	for _, c := range visible {
		if !inWindow(c) {
			continue
		}
		m.TotalComments++
		if c.Flags.NeedsReview() {
			m.FlaggedComments++
		}
		for _, cat := range c.Flags.Categories() {
			m.ProblemCounts[cat]++
		}

		day := dayKey(c.CreatedAt, now.Location())
		b, ok := days[day]
		if !ok {
			b = &DayBucket{Date: day}
			days[day] = b
		}
		b.Total++

		switch c.Sentiment {
		case models.SentimentPositive:
			m.PositiveComments++
			b.Positive++
		case models.SentimentNegative:
			m.NegativeComments++
			b.Negative++
		default:
			m.NeutralComments++
			b.Neutral++
		}
		score += c.Sentiment.Score()

		if _, seen := postCounts[c.PostID]; !seen {
			postOrder = append(postOrder, c.PostID)
		}
		postCounts[c.PostID]++
	}

	if m.TotalComments > 0 {
		m.AvgSentiment = float64(score) / float64(m.TotalComments)
	}
	m.TotalPosts = len(postOrder)
	if m.TotalPosts > 0 {
		m.AvgCommentsPerPost = float64(m.TotalComments) / float64(m.TotalPosts)
	}
	for _, id := range postOrder {
		if m.MostCommentedPost == nil || postCounts[id] > m.MostCommentedPost.Comments {
			m.MostCommentedPost = &PostCount{PostID: id, Comments: postCounts[id]}
		}
	}

	for _, b := range days {
		m.Daily = append(m.Daily, *b)
	}
	sort.Slice(m.Daily, func(i, j int) bool { return m.Daily[i].Date < m.Daily[j].Date })
	return m
}

// ClassifyTrend compares the recent window count with the previous one. The
// change is measured against the recent count and must exceed 10%. An empty
// previous window is up when anything arrived since.
func ClassifyTrend(recent, previous int) Trend {
	if previous == 0 {
		if recent > 0 {
			return TrendUp
		}
		return TrendStable
	}
	switch {
	case (recent-previous)*10 > recent:
		return TrendUp
	case (previous-recent)*10 > recent:
		return TrendDown
	default:
		return TrendStable
	}
}

func weekTrend(comments []models.Comment, now time.Time) (Trend, int, int) {
	today := startOfDay(now)
	recentStart := today.AddDate(0, 0, -6)
	previousStart := today.AddDate(0, 0, -13)
	end := endOfDay(now)

	recent, previous := 0, 0
	for _, c := range comments {
		t := c.CreatedAt
		switch {
		case !t.Before(recentStart) && !t.After(end):
			recent++
		case !t.Before(previousStart) && t.Before(recentStart):
			previous++
		}
	}
	return ClassifyTrend(recent, previous), recent, previous
}

func window(r DateRange, now time.Time) (time.Time, time.Time, bool) {
	days, bounded := r.Days()
	if !bounded {
		return time.Time{}, time.Time{}, false
	}
	return startOfDay(now.AddDate(0, 0, -days)), endOfDay(now), true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
