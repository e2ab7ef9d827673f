package analytics_api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-gatepass/internal/analytics"
	"ms-gatepass/internal/config"
	"ms-gatepass/internal/models"
	"ms-gatepass/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupHandler(t *testing.T) (*chi.Mux, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.VisitorPass)(nil)).Exec(context.Background())
	require.NoError(t, err)

	svc := analytics.NewService(bunDB, config.MetricsConfig{Timezone: "UTC"}, nil)
	svc.Now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)
	return r, bunDB
}

func TestGetDashboardMetrics(t *testing.T) {
	r, bunDB := setupHandler(t)

	_, err := bunDB.NewInsert().Model(&models.VisitorPass{
		Name:      "John Smith",
		Phone:     "555-0100",
		Address:   "1 Main St",
		Reason:    "meeting",
		DateStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DateEnd:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}).Exec(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard-metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"activePasses", "todayVisitors", "upcomingVisits", "completedVisits",
		"weeklyVisits", "monthlyVisits", "durationMetrics", "visitsByReason", "monthlyTrend"} {
		assert.Contains(t, body, key)
	}
	assert.NotContains(t, body, "hourlyDistribution")

	var bundle models.MetricsBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, 1, bundle.ActivePasses)
	assert.Equal(t, 1, bundle.TodayVisitors)
	assert.InDelta(t, 24.0, bundle.DurationMetrics.AvgDuration, 0.001)
	assert.Equal(t, []models.ReasonCount{{Reason: "meeting", Count: 1}}, bundle.VisitsByReason)
	assert.Equal(t, []models.MonthlyTrend{{Month: "2025-01", VisitCount: 1}}, bundle.MonthlyTrend)
}

func TestGetDashboardMetricsEmptyArrays(t *testing.T) {
	r, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard-metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"visitsByReason":[]`)
	assert.Contains(t, rec.Body.String(), `"monthlyTrend":[]`)
}

func TestGetDashboardMetricsStoreFailure(t *testing.T) {
	r, bunDB := setupHandler(t)
	require.NoError(t, bunDB.Close())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard-metrics", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch dashboard metrics", body.Error)
	assert.Equal(t, utils.CodeInternal, body.Code)
}
