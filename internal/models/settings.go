package models

import (
	"strings"
	"time"
)

// ModerationSettings is the process-wide moderation configuration. It is always
// replaced as a whole.
type ModerationSettings struct {
	Enabled            bool `json:"enabled"`
	AutoHideSpam       bool `json:"auto_hide_spam"`
	AutoHideHateSpeech bool `json:"auto_hide_hate_speech"`
	AutoHideProfanity  bool `json:"auto_hide_profanity"`
	AutoHideLinks      bool `json:"auto_hide_links"`
	AutoHideAds        bool `json:"auto_hide_ads"`
	NotifyOnFlagged    bool `json:"notify_on_flagged"`

	SpamKeywords          []string `gorm:"type:text;serializer:json" json:"spam_keywords"`
	HateSpeechKeywords    []string `gorm:"type:text;serializer:json" json:"hate_speech_keywords"`
	ProfanityKeywords     []string `gorm:"type:text;serializer:json" json:"profanity_keywords"`
	AdvertisementKeywords []string `gorm:"type:text;serializer:json" json:"advertisement_keywords"`
}

// DefaultSettings returns the settings a fresh installation starts with.
// Every auto-hide toggle is on except links.
func DefaultSettings() ModerationSettings {
	return ModerationSettings{
		Enabled:            true,
		AutoHideSpam:       true,
		AutoHideHateSpeech: true,
		AutoHideProfanity:  true,
		AutoHideLinks:      false,
		AutoHideAds:        true,
		NotifyOnFlagged:    true,
		SpamKeywords: []string{
			"vinci", "gratis", "clicca qui", "guadagna subito", "offerta limitata",
			"click here", "free money", "win a prize", "follow for follow",
		},
		HateSpeechKeywords: []string{
			"razza inferiore", "sporco immigrato", "tornatene al tuo paese",
			"subhuman", "go back to your country",
		},
		ProfanityKeywords: []string{
			"cazzo", "merda", "stronzo", "vaffanculo", "fuck", "shit", "bastard",
		},
		AdvertisementKeywords: []string{
			"compra ora", "sconto", "codice promo", "spedizione gratuita",
			"buy now", "discount code", "shop now", "coupon",
		},
	}
}

// Clone returns a deep copy so callers cannot mutate a shared snapshot.
func (s ModerationSettings) Clone() ModerationSettings {
	out := s
	out.SpamKeywords = cloneStrings(s.SpamKeywords)
	out.HateSpeechKeywords = cloneStrings(s.HateSpeechKeywords)
	out.ProfanityKeywords = cloneStrings(s.ProfanityKeywords)
	out.AdvertisementKeywords = cloneStrings(s.AdvertisementKeywords)
	return out
}

// Validate checks keyword lists for blank entries.
func (s ModerationSettings) Validate() error {
	lists := map[string][]string{
		"spam_keywords":          s.SpamKeywords,
		"hate_speech_keywords":   s.HateSpeechKeywords,
		"profanity_keywords":     s.ProfanityKeywords,
		"advertisement_keywords": s.AdvertisementKeywords,
	}
	for name, list := range lists {
		for _, kw := range list {
			if strings.TrimSpace(kw) == "" {
				return NewValidationError(name + " must not contain blank keywords")
			}
		}
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// SettingsRecord is the single persisted row holding the current settings.
type SettingsRecord struct {
	ID        uint               `gorm:"primaryKey"`
	Settings  ModerationSettings `gorm:"embedded"`
	UpdatedAt time.Time
}
