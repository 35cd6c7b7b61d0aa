package classifier

import (
	"regexp"
	"strings"

	"commentguard/internal/models"
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

// Classify computes the flag set and sentiment of text against lex. It reads
// no state other than its arguments.
func Classify(text string, lex *Lexicon) (models.Flags, models.Sentiment) {
	if strings.TrimSpace(text) == "" || lex == nil {
		return models.Flags{}, models.SentimentNeutral
	}
	lowered := []byte(strings.ToLower(text))

	flags := models.Flags{
		IsSpam:          lex.spam.hits(lowered) > 0,
		IsHateSpeech:    lex.hateSpeech.hits(lowered) > 0,
		HasProfanity:    lex.profanity.hits(lowered) > 0,
		HasLinks:        linkPattern.Match(lowered),
		IsAdvertisement: lex.advertisement.hits(lowered) > 0,
	}
	return flags, sentiment(lowered, lex)
}

func sentiment(lowered []byte, lex *Lexicon) models.Sentiment {
	pos := lex.positive.hits(lowered)
	neg := lex.negative.hits(lowered)
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Match lists, per flagged category, the keywords that triggered it. Links
// report the URLs found.
type Match struct {
	Category string   `json:"category"`
	Terms    []string `json:"terms"`
}

// Explain returns the evidence behind Classify's flags for text.
func Explain(text string, lex *Lexicon) []Match {
	if strings.TrimSpace(text) == "" || lex == nil {
		return nil
	}
	lowered := []byte(strings.ToLower(text))

	var out []Match
	add := func(category string, terms []string) {
		if len(terms) > 0 {
			out = append(out, Match{Category: category, Terms: terms})
		}
	}
	add(models.CategorySpam, lex.spam.matched(lowered))
	add(models.CategoryHateSpeech, lex.hateSpeech.matched(lowered))
	add(models.CategoryProfanity, lex.profanity.matched(lowered))
	var links []string
	for _, l := range linkPattern.FindAll(lowered, -1) {
		links = append(links, string(l))
	}
	add(models.CategoryLinks, links)
	add(models.CategoryAdvertisement, lex.advertisement.matched(lowered))
	return out
}
