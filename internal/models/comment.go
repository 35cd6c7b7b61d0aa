// Package models contains data structures for the application's domain models.
package models

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// Sentiment is a coarse classification of comment text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Score maps a sentiment onto -1, 0 or +1.
func (s Sentiment) Score() int {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// Flag category names, used in events, metrics labels and export rows.
const (
	CategorySpam          = "spam"
	CategoryHateSpeech    = "hate_speech"
	CategoryProfanity     = "profanity"
	CategoryLinks         = "links"
	CategoryAdvertisement = "advertisement"
)

// Flags holds the independent moderation indicators of a comment.
// NeedsReview is derived and never stored.
type Flags struct {
	IsSpam          bool `gorm:"not null;default:false" json:"is_spam"`
	IsHateSpeech    bool `gorm:"not null;default:false" json:"is_hate_speech"`
	HasProfanity    bool `gorm:"not null;default:false" json:"has_profanity"`
	HasLinks        bool `gorm:"not null;default:false" json:"has_links"`
	IsAdvertisement bool `gorm:"not null;default:false" json:"is_advertisement"`
}

// NeedsReview is true iff any other flag is set.
func (f Flags) NeedsReview() bool {
	return f.IsSpam || f.IsHateSpeech || f.HasProfanity || f.HasLinks || f.IsAdvertisement
}

// Categories lists the set flags in a fixed order.
func (f Flags) Categories() []string {
	out := make([]string, 0, 5)
	if f.IsSpam {
		out = append(out, CategorySpam)
	}
	if f.IsHateSpeech {
		out = append(out, CategoryHateSpeech)
	}
	if f.HasProfanity {
		out = append(out, CategoryProfanity)
	}
	if f.HasLinks {
		out = append(out, CategoryLinks)
	}
	if f.IsAdvertisement {
		out = append(out, CategoryAdvertisement)
	}
	return out
}

// MarshalJSON adds the computed needs_review field.
func (f Flags) MarshalJSON() ([]byte, error) {
	type plain Flags
	return json.Marshal(struct {
		plain
		NeedsReview bool `json:"needs_review"`
	}{plain(f), f.NeedsReview()})
}

// Comment is a user comment attached to an externally owned post.
type Comment struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	PostID     string    `gorm:"not null;index" json:"post_id"`
	AuthorID   string    `gorm:"index" json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `gorm:"type:text" json:"text"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	LikeCount  int       `gorm:"not null;default:0" json:"like_count"`
	UserLikes  bool      `gorm:"not null;default:false" json:"user_likes"`
	Hidden     bool      `gorm:"not null;default:false;index" json:"hidden"`
	Sentiment  Sentiment `gorm:"size:16;not null;default:neutral" json:"sentiment"`
	Flags      Flags     `gorm:"embedded;embeddedPrefix:flag_" json:"flags"`
}

const previewRunes = 100

// Preview returns at most the first 100 runes of the comment text.
func (c Comment) Preview() string {
	text := strings.TrimSpace(c.Text)
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}

// CommentInput is one comment record supplied by the platform collaborator.
type CommentInput struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	LikeCount  int       `json:"like_count"`
	UserLikes  bool      `json:"user_likes"`
}

// Validate rejects malformed records before they reach the store.
func (in CommentInput) Validate() error {
	if strings.TrimSpace(in.ID) == "" {
		return NewValidationError("comment id is required")
	}
	if strings.TrimSpace(in.PostID) == "" {
		return NewValidationError("comment " + in.ID + ": post id is required")
	}
	if in.LikeCount < 0 {
		return NewValidationError("comment " + in.ID + ": like count cannot be negative")
	}
	return nil
}

// ToComment builds an unannotated Comment.
func (in CommentInput) ToComment() Comment {
	return Comment{
		ID:         strings.TrimSpace(in.ID),
		PostID:     strings.TrimSpace(in.PostID),
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		Text:       in.Text,
		CreatedAt:  in.CreatedAt,
		LikeCount:  in.LikeCount,
		UserLikes:  in.UserLikes,
		Sentiment:  SentimentNeutral,
	}
}
