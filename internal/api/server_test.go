package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugsync/internal/config"
	"rugsync/internal/database"
	"rugsync/internal/logger"
	"rugsync/internal/models"
)

type fixedTracker struct {
	at time.Time
}

func (f fixedTracker) LastSuccessfulRun(context.Context, string) (*time.Time, error) {
	return &f.at, nil
}

func newTestServer(t *testing.T) (*Server, *database.Database) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New("sqlite://" + filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tracker := fixedTracker{at: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	return New(&config.Config{Env: "test"}, logger.Nop(), db, tracker), db
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	// non-JSON bodies leave body nil
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := get(t, srv.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestShopRoutes(t *testing.T) {
	srv, db := newTestServer(t)
	ctx := context.Background()

	shop := &models.Shop{Name: "Main", StoreURL: "main.myshopify.com", AccessToken: "shpat_secret", RugAPIKey: "key", Active: true}
	require.NoError(t, db.DB.Create(shop).Error)
	runs := database.NewRunStore(db.DB)
	require.NoError(t, runs.SaveRun(ctx, &models.SyncRun{RunID: "r1", ShopID: shop.ID, Status: models.SyncRunStatusCompleted, Inserted: 4, StartedAt: time.Now()}))

	t.Run("list hides credentials", func(t *testing.T) {
		rec, body := get(t, srv.Handler(), "/api/v1/shops")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "shpat_secret")

		data := body["data"].([]interface{})
		require.Len(t, data, 1)
		first := data[0].(map[string]interface{})
		assert.Equal(t, "Main", first["name"])
		assert.Equal(t, "2024-05-01T00:00:00Z", first["last_successful_run"])
	})

	t.Run("get unknown shop", func(t *testing.T) {
		rec, _ := get(t, srv.Handler(), "/api/v1/shops/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("runs are paginated", func(t *testing.T) {
		rec, body := get(t, srv.Handler(), "/api/v1/shops/"+shop.ID+"/runs?limit=5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, body["data"], 1)
		pagination := body["pagination"].(map[string]interface{})
		assert.EqualValues(t, 1, pagination["total"])
		assert.EqualValues(t, 5, pagination["limit"])
	})
}

func TestIssueRoutes(t *testing.T) {
	srv, db := newTestServer(t)
	runs := database.NewRunStore(db.DB)
	ctx := context.Background()

	issue := &models.SyncIssue{RunID: "r1", ShopID: "s1", SKU: "A", Code: models.IssueCodeWrite, Severity: models.IssueSeverityHigh, Explanation: "500"}
	require.NoError(t, runs.SaveIssue(ctx, issue))
	require.NoError(t, runs.SaveIssue(ctx, &models.SyncIssue{RunID: "r1", ShopID: "s1", SKU: "B", Code: models.IssueCodeValidation, Severity: models.IssueSeverityMedium, Explanation: "no images"}))

	rec, body := get(t, srv.Handler(), "/api/v1/issues?code=VALIDATION")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "B", data[0].(map[string]interface{})["sku"])

	res := httptest.NewRecorder()
	srv.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/v1/issues/"+issue.ID+"/resolve", nil))
	require.Equal(t, http.StatusOK, res.Code)

	_, body = get(t, srv.Handler(), "/api/v1/issues?resolved=false")
	assert.Len(t, body["data"], 1)

	res = httptest.NewRecorder()
	srv.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/v1/issues/missing/resolve", nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
