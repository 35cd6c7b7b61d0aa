package workflow

import (
	"testing"

	"commentguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	c := models.Comment{
		ID:         "c1",
		AuthorID:   "u42",
		AuthorName: "Giulia Rossi",
		Text:       "Offerta SPECIALE su https://shop.example",
		Sentiment:  models.SentimentPositive,
		Flags:      models.Flags{HasLinks: true},
	}

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{"contains ignores case", models.Condition{Type: models.ConditionContains, Value: "speciale"}, true},
		{"contains miss", models.Condition{Type: models.ConditionContains, Value: "gratis"}, false},
		{"not contains", models.Condition{Type: models.ConditionNotContains, Value: "gratis"}, true},
		{"not contains hit", models.Condition{Type: models.ConditionNotContains, Value: "OFFERTA"}, false},
		{"user by id", models.Condition{Type: models.ConditionUser, Value: "u42"}, true},
		{"user by name", models.Condition{Type: models.ConditionUser, Value: "Giulia Rossi"}, true},
		{"other user", models.Condition{Type: models.ConditionUser, Value: "u7"}, false},
		{"sentiment", models.Condition{Type: models.ConditionSentiment, Value: "positive"}, true},
		{"sentiment miss", models.Condition{Type: models.ConditionSentiment, Value: "negative"}, false},
		{"has links", models.Condition{Type: models.ConditionHasLinks}, true},
		{"has profanity", models.Condition{Type: models.ConditionHasProfanity}, false},
		{"is spam", models.Condition{Type: models.ConditionIsSpam}, false},
		{"unknown", models.Condition{Type: "regex", Value: ".*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(c, tt.cond))
		})
	}
}

func TestMatches_NotContainsNeedsText(t *testing.T) {
	cond := models.Condition{Type: models.ConditionNotContains, Value: "x"}
	assert.False(t, Matches(models.Comment{}, cond))
}

func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - name: Hide links
    condition:
      type: has_links
    action:
      type: hide
  - name: Like fans
    active: false
    condition:
      type: sentiment
      value: positive
    action:
      type: like
`)
	rules, err := ParseRules(data)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, models.ConditionHasLinks, rules[0].Condition.Type)
	assert.Nil(t, rules[0].Active)
	require.NotNil(t, rules[1].Active)
	assert.False(t, *rules[1].Active)
	assert.Equal(t, "positive", rules[1].Condition.Value)

	_, err = ParseRules([]byte("rules:\n  - name: bad\n    condition: {type: regex}\n    action: {type: hide}\n"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = ParseRules([]byte("rules: [unterminated"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
