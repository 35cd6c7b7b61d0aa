// Package seed generates demo comment traffic for development and testing.
package seed

import (
	"fmt"
	"strings"
	"time"

	"commentguard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configures generated traffic.
type Options struct {
	Posts           int
	CommentsPerPost int
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
	// AbuseRatio is the share of comments built to trip a moderation flag.
	AbuseRatio float64
	// Seed makes output reproducible; 0 picks a random seed.
	Seed int64
	// Now anchors created_at; zero means time.Now.
	Now time.Time
}

func (o Options) withDefaults() Options {
	if o.Posts <= 0 {
		o.Posts = 10
	}
	if o.CommentsPerPost <= 0 {
		o.CommentsPerPost = 20
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 30
	}
	if o.AbuseRatio < 0 {
		o.AbuseRatio = 0
	}
	if o.AbuseRatio > 1 {
		o.AbuseRatio = 1
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

var (
	praise = []string{
		"Bellissimo, grazie!", "Che foto stupenda", "Love this so much",
		"Fantastico lavoro", "This made my day", "Complimenti!",
	}
	complaints = []string{
		"Pessimo servizio, non lo consiglio", "Che delusione", "Worst update ever",
		"Non funziona niente", "Really disappointing",
	}
)

// Factory builds comment inputs that look like platform traffic.
type Factory struct {
	faker    *gofakeit.Faker
	opts     Options
	settings models.ModerationSettings
	next     int
}

// NewFactory returns a Factory that draws abusive phrases from settings.
func NewFactory(opts Options, settings models.ModerationSettings) *Factory {
	opts = opts.withDefaults()
	return &Factory{
		faker:    gofakeit.New(opts.Seed),
		opts:     opts,
		settings: settings,
	}
}

// Batch returns the comments for every configured post.
func (f *Factory) Batch() []models.CommentInput {
	out := make([]models.CommentInput, 0, f.opts.Posts*f.opts.CommentsPerPost)
	for p := 0; p < f.opts.Posts; p++ {
		postID := fmt.Sprintf("post-%s", f.faker.UUID()[:8])
		for i := 0; i < f.opts.CommentsPerPost; i++ {
			out = append(out, f.Comment(postID))
		}
	}
	return out
}

// Comment builds one comment on postID.
func (f *Factory) Comment(postID string) models.CommentInput {
	f.next++
	author := f.faker.Username()
	in := models.CommentInput{
		ID:         fmt.Sprintf("seed-%d-%s", f.next, f.faker.UUID()[:8]),
		PostID:     postID,
		AuthorID:   fmt.Sprintf("u%d", f.faker.Number(1000, 99999)),
		AuthorName: author,
		CreatedAt:  f.createdAt(),
		LikeCount:  f.faker.Number(0, 250),
		UserLikes:  f.faker.Float64Range(0, 1) < 0.1,
	}
	if f.faker.Float64Range(0, 1) < f.opts.AbuseRatio {
		in.Text = f.abusive()
	} else {
		in.Text = f.benign()
	}
	return in
}

func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60-1)) * time.Minute
	return f.opts.Now.Add(-back)
}

func (f *Factory) benign() string {
	switch f.faker.Number(0, 2) {
	case 0:
		return f.faker.RandomString(praise)
	case 1:
		return f.faker.RandomString(complaints)
	default:
		return f.faker.Sentence(f.faker.Number(4, 14))
	}
}

func (f *Factory) abusive() string {
	lists := [][]string{
		f.settings.SpamKeywords,
		f.settings.HateSpeechKeywords,
		f.settings.ProfanityKeywords,
		f.settings.AdvertisementKeywords,
	}
	var parts []string
	if list := lists[f.faker.Number(0, len(lists)-1)]; len(list) > 0 {
		parts = append(parts, f.faker.RandomString(list))
	}
	parts = append(parts, f.faker.Sentence(f.faker.Number(3, 8)))
	if len(parts) == 1 || f.faker.Bool() {
		parts = append(parts, f.faker.URL())
	}
	return strings.Join(parts, " ")
}
