// Package classifier detects moderation categories and sentiment in comment
// text using keyword and pattern matching.
package classifier

import (
	"strings"

	"commentguard/internal/models"

	"github.com/cloudflare/ahocorasick"
)

// matcher is a compiled keyword list. A nil automaton matches nothing.
type matcher struct {
	automaton *ahocorasick.Matcher
	words     []string
}

func newMatcher(words []string) matcher {
	clean := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		clean = append(clean, w)
	}
	if len(clean) == 0 {
		return matcher{}
	}
	return matcher{automaton: ahocorasick.NewStringMatcher(clean), words: clean}
}

// hits returns how many distinct keywords occur in lowered. Presence counts,
// repetitions do not.
func (m matcher) hits(lowered []byte) int {
	return len(m.matched(lowered))
}

// matched returns the distinct keywords found in lowered, in dictionary order.
func (m matcher) matched(lowered []byte) []string {
	if m.automaton == nil {
		return nil
	}
	found := make([]bool, len(m.words))
	for _, i := range m.automaton.MatchThreadSafe(lowered) {
		found[i] = true
	}
	var out []string
	for i, ok := range found {
		if ok {
			out = append(out, m.words[i])
		}
	}
	return out
}

// Lexicon is an immutable, compiled snapshot of the keyword lists. It is safe
// for concurrent use.
type Lexicon struct {
	spam          matcher
	hateSpeech    matcher
	profanity     matcher
	advertisement matcher
	positive      matcher
	negative      matcher
}

// NewLexicon compiles the category keyword lists from settings together with
// the fixed sentiment word lists.
func NewLexicon(s models.ModerationSettings) *Lexicon {
	return &Lexicon{
		spam:          newMatcher(s.SpamKeywords),
		hateSpeech:    newMatcher(s.HateSpeechKeywords),
		profanity:     newMatcher(s.ProfanityKeywords),
		advertisement: newMatcher(s.AdvertisementKeywords),
		positive:      newMatcher(PositiveWords),
		negative:      newMatcher(NegativeWords),
	}
}

// PositiveWords is the fixed positive sentiment lexicon.
var PositiveWords = []string{
	"bello", "bellissim", "ottimo", "fantastic", "grazie", "adoro", "bravo", "brava",
	"perfetto", "complimenti", "stupend", "meraviglios", "felice",
	"love", "great", "awesome", "amazing", "thank", "excellent", "wonderful", "happy", "nice",
}

// NegativeWords is the fixed negative sentiment lexicon.
var NegativeWords = []string{
	"brutto", "pessim", "schifo", "odio", "terribile", "orribile", "deluso", "delusione",
	"vergogna", "triste", "peggio",
	"hate", "awful", "terrible", "horrible", "worst", "disappoint", "sad", "disgusting", "bad",
}
