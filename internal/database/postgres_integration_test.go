package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ms-gatepass/internal/analytics"
	"ms-gatepass/internal/config"
	"ms-gatepass/internal/database"
	"ms-gatepass/internal/database/migrations"
	"ms-gatepass/internal/models"
	pass_db "ms-gatepass/internal/passes/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) config.DatabaseConfig {
	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "gatepass",
				"POSTGRES_PASSWORD": "gatepass",
				"POSTGRES_DB":       "gatepass",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Driver:       "postgres",
		DSN:          fmt.Sprintf("postgres://gatepass:gatepass@%s:%s/gatepass?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		MaxLifetime:  time.Minute,
		ConnRetries:  5,
	}
}

func TestPostgresStoreAndMetrics(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	cfg := startPostgres(t)

	bunDB, err := database.Connect(ctx, cfg, nil)
	require.NoError(t, err)
	defer bunDB.Close()

	runner := migrations.NewRunner(cfg.PostgresDSN(), "../../migrations", nil)
	require.NoError(t, runner.MigrateUp())
	require.NoError(t, runner.MigrateUp())
	require.NoError(t, runner.Close())

	// the app pool survives the migrator closing its own connection
	require.NoError(t, bunDB.PingContext(ctx))

	store := &pass_db.DB{Bun: bunDB}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	insert := func(reason string, start, end time.Time) {
		require.NoError(t, store.InsertPass(ctx, &models.VisitorPass{
			Name: "Visitor", Phone: "555", Address: "addr", Reason: reason,
			DateStart: start, DateEnd: end, CreatedAt: now,
		}))
	}

	insert("meeting", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	insert("meeting", now.Add(-time.Hour), now)
	insert("delivery", now.Add(time.Hour), now.Add(3*time.Hour))
	insert("audit", time.Date(2024, 9, 3, 9, 0, 0, 0, time.UTC), time.Date(2024, 9, 3, 10, 0, 0, 0, time.UTC))

	// the window constraint rejects inverted dates
	err = store.InsertPass(ctx, &models.VisitorPass{
		Name: "Bad", Phone: "555", Address: "addr",
		DateStart: now, DateEnd: now.Add(-time.Hour), CreatedAt: now,
	})
	assert.Error(t, err)

	list, err := store.ListPasses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Greater(t, list[0].ID, list[1].ID)

	svc := analytics.NewService(bunDB, config.MetricsConfig{
		Timezone:            "UTC",
		HourlyDistribution:  true,
		WeekdayDistribution: true,
	}, nil)
	svc.Now = func() time.Time { return now }

	bundle, err := svc.GetDashboardMetrics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, bundle.ActivePasses)
	assert.Equal(t, 2, bundle.CompletedVisits)
	assert.Equal(t, 1, bundle.UpcomingVisits)
	assert.Equal(t, 3, bundle.TodayVisitors)
	assert.Equal(t, 3, bundle.MonthlyVisits)
	assert.InDelta(t, 24.0, bundle.DurationMetrics.MaxDuration, 0.001)
	assert.InDelta(t, 1.0, bundle.DurationMetrics.MinDuration, 0.001)
	assert.InDelta(t, 7.0, bundle.DurationMetrics.AvgDuration, 0.001)
	assert.Equal(t, []models.ReasonCount{
		{Reason: "meeting", Count: 2},
		{Reason: "audit", Count: 1},
		{Reason: "delivery", Count: 1},
	}, bundle.VisitsByReason)
	assert.Equal(t, []models.MonthlyTrend{
		{Month: "2024-09", VisitCount: 1},
		{Month: "2025-01", VisitCount: 3},
	}, bundle.MonthlyTrend)
	require.Len(t, bundle.WeeklyDistribution, 7)
	assert.Equal(t, 3, bundle.WeeklyDistribution[3]) // 2025-01-01 is a Wednesday
	assert.Equal(t, 1, bundle.WeeklyDistribution[2]) // 2024-09-03 is a Tuesday

	affected, err := store.DeletePass(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	runner = migrations.NewRunner(cfg.PostgresDSN(), "../../migrations", nil)
	require.NoError(t, runner.MigrateDown())
	require.NoError(t, runner.MigrateTo(1))
	require.NoError(t, runner.Close())

	count, err := store.CountPasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
