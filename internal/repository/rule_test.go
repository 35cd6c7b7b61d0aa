package repository

import (
	"context"
	"testing"
	"time"

	"commentguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleRepository_SaveListDelete(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := context.Background()

	hide := &models.WorkflowRule{ID: "r1", Name: "Hide links", Active: true, Position: 1,
		Condition: models.Condition{Type: models.ConditionHasLinks}, Action: models.Action{Type: models.ActionHide}}
	like := &models.WorkflowRule{ID: "r2", Name: "Like fans", Active: false, Position: 0,
		Condition: models.Condition{Type: models.ConditionSentiment, Value: "positive"}, Action: models.Action{Type: models.ActionLike}}
	require.NoError(t, repo.Save(ctx, hide))
	require.NoError(t, repo.Save(ctx, like))

	ran := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	hide.RunCount = 3
	hide.LastRun = &ran
	require.NoError(t, repo.Save(ctx, hide))

	rules, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r2", rules[0].ID)
	assert.False(t, rules[0].Active)
	assert.Equal(t, "positive", rules[0].Condition.Value)
	assert.Equal(t, int64(3), rules[1].RunCount)
	require.NotNil(t, rules[1].LastRun)
	assert.True(t, ran.Equal(*rules[1].LastRun))

	require.NoError(t, repo.Delete(ctx, "r2"))
	rules, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, models.ActionHide, rules[0].Action.Type)
}
