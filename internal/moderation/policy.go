// Package moderation turns classifier flags into auto-hide decisions and owns
// the process-wide moderation settings snapshot.
package moderation

import (
	"time"

	"commentguard/internal/models"
)

// ShouldAutoHide reports whether a comment with flags must be hidden under
// settings. A disabled policy never hides.
func ShouldAutoHide(flags models.Flags, settings models.ModerationSettings) bool {
	if !settings.Enabled {
		return false
	}
	return (flags.IsSpam && settings.AutoHideSpam) ||
		(flags.IsHateSpeech && settings.AutoHideHateSpeech) ||
		(flags.HasProfanity && settings.AutoHideProfanity) ||
		(flags.HasLinks && settings.AutoHideLinks) ||
		(flags.IsAdvertisement && settings.AutoHideAds)
}

// Verdict is the outcome of evaluating one comment's flags.
type Verdict struct {
	AutoHide   bool
	Categories []string
	// Notify asks the caller to publish a FlaggedEvent.
	Notify bool
}

// Evaluate combines the auto-hide decision with the advisory notification
// decision.
func Evaluate(flags models.Flags, settings models.ModerationSettings) Verdict {
	return Verdict{
		AutoHide:   ShouldAutoHide(flags, settings),
		Categories: flags.Categories(),
		Notify:     settings.NotifyOnFlagged && flags.NeedsReview(),
	}
}

// Apply sets c.Hidden when the verdict requires it and reports whether it
// changed anything. It never un-hides.
func (v Verdict) Apply(c *models.Comment) bool {
	if !v.AutoHide || c.Hidden {
		return false
	}
	c.Hidden = true
	return true
}

// FlaggedEvent is published when a comment needs review and notifications are
// enabled.
type FlaggedEvent struct {
	CommentID  string    `json:"comment_id"`
	PostID     string    `json:"post_id"`
	Categories []string  `json:"categories"`
	AutoHidden bool      `json:"auto_hidden"`
	Preview    string    `json:"preview"`
	At         time.Time `json:"at"`
}

// NewFlaggedEvent builds the event for c under verdict v. hidden reports
// whether applying v actually hid the comment.
func NewFlaggedEvent(c models.Comment, v Verdict, hidden bool, now time.Time) FlaggedEvent {
	return FlaggedEvent{
		CommentID:  c.ID,
		PostID:     c.PostID,
		Categories: v.Categories,
		AutoHidden: hidden,
		Preview:    c.Preview(),
		At:         now,
	}
}
