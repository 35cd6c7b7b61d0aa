package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"commentguard/internal/config"
	"commentguard/internal/middleware"
	"commentguard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "test",
		JWTSecret:       testSecret,
		DBDriver:        "memory",
		ClassifyWorkers: 2,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*Server, *fiber.App) {
	t.Helper()
	s, err := NewServerWithDeps(cfg, nil, nil)
	require.NoError(t, err)
	return s, s.App()
}

func operatorToken(t *testing.T) string {
	t.Helper()
	token, err := middleware.IssueOperatorToken(testSecret, "alice", time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func ingest(t *testing.T, app *fiber.App, token string, inputs ...models.CommentInput) *http.Response {
	t.Helper()
	return doJSON(t, app, http.MethodPost, "/api/comments", token, ingestRequest{Comments: inputs})
}

func comment(id, postID, text string) models.CommentInput {
	return models.CommentInput{
		ID: id, PostID: postID, AuthorID: "u-" + id, AuthorName: "Author " + id,
		Text: text, CreatedAt: time.Now().Add(-time.Hour),
	}
}

func TestHealthChecks(t *testing.T) {
	_, app := newTestApp(t, testConfig())

	resp := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "disabled", body.Checks["database"])
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestMutationsRequireOperatorToken(t *testing.T) {
	_, app := newTestApp(t, testConfig())

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/comments"},
		{http.MethodPost, "/api/comments/c1/hide"},
		{http.MethodDelete, "/api/comments/c1"},
		{http.MethodPut, "/api/settings"},
		{http.MethodPost, "/api/rules"},
		{http.MethodPost, "/api/workflows/run"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := doJSON(t, app, tt.method, tt.path, "", map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	resp := doJSON(t, app, http.MethodGet, "/api/comments", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads stay public")
}

func TestIngestAndModerate(t *testing.T) {
	_, app := newTestApp(t, testConfig())
	token := operatorToken(t)

	resp := ingest(t, app, token,
		comment("c1", "p1", "Vinci un premio gratis, clicca qui!"),
		comment("c2", "p1", "Bellissimo, grazie!"),
		comment("c3", "p2", "guarda https://example.com"),
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result struct {
		Ingested   int `json:"ingested"`
		Flagged    int `json:"flagged"`
		AutoHidden int `json:"auto_hidden"`
	}
	decode(t, resp, &result)
	assert.Equal(t, 3, result.Ingested)
	assert.Equal(t, 2, result.Flagged)
	assert.Equal(t, 1, result.AutoHidden)

	resp = doJSON(t, app, http.MethodGet, "/api/comments/c1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var spam models.Comment
	decode(t, resp, &spam)
	assert.True(t, spam.Hidden)
	assert.True(t, spam.Flags.IsSpam)

	resp = doJSON(t, app, http.MethodGet, "/api/comments?include_hidden=false", "", nil)
	var list struct {
		Comments []models.Comment `json:"comments"`
		Total    int              `json:"total"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 2, list.Total)

	resp = doJSON(t, app, http.MethodGet, "/api/comments/c3/explain", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var explain struct {
		Matches []struct {
			Category string   `json:"category"`
			Terms    []string `json:"terms"`
		} `json:"matches"`
	}
	decode(t, resp, &explain)
	require.NotEmpty(t, explain.Matches)
	assert.Equal(t, models.CategoryLinks, explain.Matches[0].Category)

	resp = doJSON(t, app, http.MethodPost, "/api/comments/c3/hide", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hidden models.Comment
	decode(t, resp, &hidden)
	assert.True(t, hidden.Hidden)

	resp = doJSON(t, app, http.MethodPost, "/api/comments/c3/unhide", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/comments/c2", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/comments/c2", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngestRejectsInvalidBatch(t *testing.T) {
	_, app := newTestApp(t, testConfig())
	token := operatorToken(t)

	resp := ingest(t, app, token, comment("ok", "p1", "fine"), comment("bad", "", "no post"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/comments/ok", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nothing from a rejected batch is stored")

	resp = ingest(t, app, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestSettingsReplace(t *testing.T) {
	_, app := newTestApp(t, testConfig())
	token := operatorToken(t)

	next := models.DefaultSettings()
	next.AutoHideLinks = true
	resp := doJSON(t, app, http.MethodPut, "/api/settings", token, next)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/settings", "", nil)
	var got struct {
		Settings models.ModerationSettings `json:"settings"`
		Version  uint64                    `json:"version"`
	}
	decode(t, resp, &got)
	assert.True(t, got.Settings.AutoHideLinks)
	assert.Equal(t, uint64(2), got.Version)

	resp = ingest(t, app, token, comment("l1", "p1", "see https://example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/comments/l1", "", nil)
	var c models.Comment
	decode(t, resp, &c)
	assert.True(t, c.Hidden, "new settings apply to the next ingestion")
}

func TestRulesAndWorkflowRun(t *testing.T) {
	_, app := newTestApp(t, testConfig())
	token := operatorToken(t)

	resp := ingest(t, app, token,
		comment("a", "p1", "guarda https://example.com"),
		comment("b", "p1", "ciao a tutti"),
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/rules", token, models.RuleInput{
		Name:      "Hide links",
		Condition: models.Condition{Type: models.ConditionHasLinks},
		Action:    models.Action{Type: models.ActionHide},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rule models.WorkflowRule
	decode(t, resp, &rule)
	assert.True(t, rule.Active)
	assert.NotEmpty(t, rule.ID)

	resp = doJSON(t, app, http.MethodPost, "/api/rules", token, map[string]any{
		"name":      "Sneaky",
		"condition": map[string]any{"type": "has_links"},
		"action":    map[string]any{"type": "hide"},
		"run_count": 5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/workflows/run", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Matched   int `json:"matched"`
		Succeeded int `json:"succeeded"`
	}
	decode(t, resp, &report)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Succeeded)

	resp = doJSON(t, app, http.MethodGet, "/api/executions?limit=10", "", nil)
	var execs struct {
		Executions []models.WorkflowExecution `json:"executions"`
	}
	decode(t, resp, &execs)
	require.Len(t, execs.Executions, 1)
	assert.Equal(t, "a", execs.Executions[0].CommentID)
	assert.True(t, execs.Executions[0].Success)

	resp = doJSON(t, app, http.MethodPost, "/api/rules/"+rule.ID+"/deactivate", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled models.WorkflowRule
	decode(t, resp, &toggled)
	assert.False(t, toggled.Active)
	assert.Equal(t, int64(1), toggled.RunCount)

	resp = doJSON(t, app, http.MethodDelete, "/api/rules/"+rule.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/rules/"+rule.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/executions", "", nil)
	decode(t, resp, &execs)
	assert.Len(t, execs.Executions, 1, "executions outlive their rule")
}

func TestHideFailsWhenSinkRejects(t *testing.T) {
	platform := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer platform.Close()

	cfg := testConfig()
	cfg.ActionWebhookURL = platform.URL
	_, app := newTestApp(t, cfg)
	token := operatorToken(t)

	resp := ingest(t, app, token, comment("c1", "p1", "ciao"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/comments/c1/hide", token, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/comments/c1", "", nil)
	var c models.Comment
	decode(t, resp, &c)
	assert.False(t, c.Hidden)
}

func TestAnalyticsAndExport(t *testing.T) {
	_, app := newTestApp(t, testConfig())
	token := operatorToken(t)

	resp := ingest(t, app, token,
		comment("c1", "p1", "Bellissimo, grazie!"),
		comment("c2", "p1", "clicca qui gratis"),
		comment("c3", "p2", "ok"),
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/analytics?range=30d", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m struct {
		TotalComments  int `json:"total_comments"`
		HiddenComments int `json:"hidden_comments"`
		TotalPosts     int `json:"total_posts"`
	}
	decode(t, resp, &m)
	assert.Equal(t, 2, m.TotalComments)
	assert.Equal(t, 1, m.HiddenComments)
	assert.Equal(t, 2, m.TotalPosts)

	resp = doJSON(t, app, http.MethodGet, "/api/analytics?range=1y", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/analytics/export?format=csv&post_id=p1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,author"))

	resp = doJSON(t, app, http.MethodGet, "/api/analytics/export", "", nil)
	var rows struct {
		Total int `json:"total"`
	}
	decode(t, resp, &rows)
	assert.Equal(t, 3, rows.Total)
}

func TestFeatureFlags(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "workflows_on_ingest=true"
	_, app := newTestApp(t, cfg)

	resp := doJSON(t, app, http.MethodGet, "/api/feature-flags?post_id=p1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	decode(t, resp, &body)
	assert.True(t, body.Evaluated["workflows_on_ingest"])
}
