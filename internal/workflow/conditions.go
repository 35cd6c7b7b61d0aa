package workflow

import (
	"strings"

	"commentguard/internal/models"
)

// Matches reports whether c satisfies cond.
func Matches(c models.Comment, cond models.Condition) bool {
	switch cond.Type {
	case models.ConditionContains:
		return strings.Contains(strings.ToLower(c.Text), strings.ToLower(cond.Value))
	case models.ConditionNotContains:
		return c.Text != "" && !strings.Contains(strings.ToLower(c.Text), strings.ToLower(cond.Value))
	case models.ConditionUser:
		return c.AuthorID == cond.Value || c.AuthorName == cond.Value
	case models.ConditionSentiment:
		return string(c.Sentiment) == cond.Value
	case models.ConditionHasLinks:
		return c.Flags.HasLinks
	case models.ConditionHasProfanity:
		return c.Flags.HasProfanity
	case models.ConditionIsSpam:
		return c.Flags.IsSpam
	}
	return false
}
