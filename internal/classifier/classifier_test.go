package classifier

import (
	"sync"
	"testing"

	"commentguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultLexicon() *Lexicon {
	return NewLexicon(models.DefaultSettings())
}

func TestClassify_ItalianSpam(t *testing.T) {
	flags, sentiment := Classify("Vinci un premio gratis, clicca qui!", defaultLexicon())

	assert.True(t, flags.IsSpam)
	assert.True(t, flags.NeedsReview())
	assert.False(t, flags.HasLinks)
	assert.False(t, flags.IsHateSpeech)
	assert.Equal(t, models.SentimentNeutral, sentiment)
}

func TestClassify_Categories(t *testing.T) {
	lex := defaultLexicon()
	tests := []struct {
		name string
		text string
		want models.Flags
	}{
		{"links", "see http://x.co", models.Flags{HasLinks: true}},
		{"https link", "docs at https://example.org/a?b=c", models.Flags{HasLinks: true}},
		{"scheme only is not a link", "http:// nothing", models.Flags{}},
		{"profanity case insensitive", "Che MERDA", models.Flags{HasProfanity: true}},
		{"hate speech phrase", "Tornatene al tuo paese", models.Flags{IsHateSpeech: true}},
		{"advertisement", "Usa il codice promo ESTATE", models.Flags{IsAdvertisement: true}},
		{"several", "Buy now at https://shop.example free money", models.Flags{IsAdvertisement: true, HasLinks: true, IsSpam: true}},
		{"clean", "Bel post, ci vediamo domani", models.Flags{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.text, lex)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Sentiment(t *testing.T) {
	lex := defaultLexicon()
	tests := []struct {
		text string
		want models.Sentiment
	}{
		{"Bellissimo, grazie!", models.SentimentPositive},
		{"Che schifo, pessimo servizio", models.SentimentNegative},
		{"great but terrible", models.SentimentNeutral},
		{"love love love, but awful", models.SentimentNeutral},
		{"ok", models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, got := Classify(tt.text, lex)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		flags, sentiment := Classify(text, defaultLexicon())
		assert.Equal(t, models.Flags{}, flags)
		assert.False(t, flags.NeedsReview())
		assert.Equal(t, models.SentimentNeutral, sentiment)
	}

	flags, sentiment := Classify("vinci", nil)
	assert.Equal(t, models.Flags{}, flags)
	assert.Equal(t, models.SentimentNeutral, sentiment)
}

func TestClassify_Deterministic(t *testing.T) {
	lex := defaultLexicon()
	text := "Compra ora con lo sconto! https://promo.example grazie"
	f1, s1 := Classify(text, lex)
	f2, s2 := Classify(text, lex)
	assert.Equal(t, f1, f2)
	assert.Equal(t, s1, s2)
}

func TestClassify_ConcurrentUse(t *testing.T) {
	lex := defaultLexicon()
	want, wantSentiment := Classify("vaffanculo, buy now", lex)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, s := Classify("vaffanculo, buy now", lex)
			assert.Equal(t, want, got)
			assert.Equal(t, wantSentiment, s)
		}()
	}
	wg.Wait()
}

func TestNewLexicon_IgnoresBlankAndDuplicateKeywords(t *testing.T) {
	settings := models.ModerationSettings{
		SpamKeywords:      []string{"", "  ", "PROMO", "promo"},
		ProfanityKeywords: []string{"  "},
	}
	lex := NewLexicon(settings)

	flags, _ := Classify("nessuna promo qui", lex)
	assert.True(t, flags.IsSpam)
	assert.False(t, flags.HasProfanity)

	flags, _ = Classify("testo qualsiasi", lex)
	assert.False(t, flags.NeedsReview())
}

func TestExplain(t *testing.T) {
	matches := Explain("Vinci GRATIS su https://a.example e https://b.example", defaultLexicon())
	require.Len(t, matches, 2)

	assert.Equal(t, models.CategorySpam, matches[0].Category)
	assert.Equal(t, []string{"vinci", "gratis"}, matches[0].Terms)
	assert.Equal(t, models.CategoryLinks, matches[1].Category)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, matches[1].Terms)

	assert.Empty(t, Explain("", defaultLexicon()))
}
