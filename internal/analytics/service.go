package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ms-gatepass/internal/config"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const topReasonsLimit = 5

// trendMonths is the number of calendar months in the trend, current month included
const trendMonths = 6

// Service computes the dashboard metrics bundle from the visitor_passes table
type Service struct {
	db        *bun.DB
	loc       *time.Location
	weekStart time.Weekday
	hourly    bool
	weekday   bool
	exprs     dateExprs
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService creates a new analytics service
func NewService(db *bun.DB, cfg config.MetricsConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		db:        db,
		loc:       cfg.Location(),
		weekStart: cfg.WeekStart,
		hourly:    cfg.HourlyDistribution,
		weekday:   cfg.WeekdayDistribution,
		exprs:     exprsFor(db.Dialect().Name()),
		Logger:    log,
		Now:       time.Now,
	}
}

// dateExprs holds the date arithmetic that differs between PostgreSQL and SQLite
type dateExprs struct {
	durationHours string
	month         string
	hour          string
	weekday       string
}

var postgresExprs = dateExprs{
	durationHours: "EXTRACT(EPOCH FROM (date_end - date_start)) / 3600",
	month:         "TO_CHAR(date_start AT TIME ZONE 'UTC', 'YYYY-MM')",
	hour:          "CAST(EXTRACT(HOUR FROM date_start AT TIME ZONE 'UTC') AS INTEGER)",
	weekday:       "CAST(EXTRACT(DOW FROM date_start AT TIME ZONE 'UTC') AS INTEGER)",
}

var sqliteExprs = dateExprs{
	durationHours: "(julianday(date_end) - julianday(date_start)) * 24",
	month:         "strftime('%Y-%m', date_start)",
	hour:          "CAST(strftime('%H', date_start) AS INTEGER)",
	weekday:       "CAST(strftime('%w', date_start) AS INTEGER)",
}

func exprsFor(name dialect.Name) dateExprs {
	if name == dialect.SQLite {
		return sqliteExprs
	}
	return postgresExprs
}

// window is the set of instants the bundle is computed against
type window struct {
	now        time.Time
	today      time.Time
	tomorrow   time.Time
	weekStart  time.Time
	weekEnd    time.Time
	monthStart time.Time
	monthEnd   time.Time
	trendStart time.Time
	trendEnd   time.Time
}

func (s *Service) windowAt(now time.Time) window {
	local := now.In(s.loc)
	y, m, d := local.Date()

	offset := (int(local.Weekday()) - int(s.weekStart) + 7) % 7

	// trend buckets are UTC calendar months
	utc := now.UTC()
	trendMonth := time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)

	return window{
		now:        now.UTC(),
		today:      time.Date(y, m, d, 0, 0, 0, 0, s.loc).UTC(),
		tomorrow:   time.Date(y, m, d+1, 0, 0, 0, 0, s.loc).UTC(),
		weekStart:  time.Date(y, m, d-offset, 0, 0, 0, 0, s.loc).UTC(),
		weekEnd:    time.Date(y, m, d-offset+7, 0, 0, 0, 0, s.loc).UTC(),
		monthStart: time.Date(y, m, 1, 0, 0, 0, 0, s.loc).UTC(),
		monthEnd:   time.Date(y, m+1, 1, 0, 0, 0, 0, s.loc).UTC(),
		trendStart: trendMonth.AddDate(0, -(trendMonths - 1), 0),
		trendEnd:   trendMonth.AddDate(0, 1, 0),
	}
}

// GetDashboardMetrics runs every aggregate query against the current store contents.
// Queries run one after another without a transaction.
func (s *Service) GetDashboardMetrics(ctx context.Context) (*models.MetricsBundle, error) {
	w := s.windowAt(s.now())
	bundle := &models.MetricsBundle{GeneratedAt: w.now}

	counts := []struct {
		name  string
		dest  *int
		where func(*bun.SelectQuery) *bun.SelectQuery
	}{
		{"active", &bundle.ActivePasses, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("date_start <= ?", w.now).Where("date_end >= ?", w.now)
		}},
		{"today", &bundle.TodayVisitors, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("date_start >= ?", w.today).Where("date_start < ?", w.tomorrow)
		}},
		{"upcoming", &bundle.UpcomingVisits, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("date_start >= ?", w.now)
		}},
		{"completed", &bundle.CompletedVisits, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("date_end <= ?", w.now)
		}},
		{"weekly", &bundle.WeeklyVisits, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("date_start >= ?", w.weekStart).Where("date_start < ?", w.weekEnd)
		}},
		{"monthly", &bundle.MonthlyVisits, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("date_start >= ?", w.monthStart).Where("date_start < ?", w.monthEnd)
		}},
	}

	for _, c := range counts {
		n, err := c.where(s.db.NewSelect().Model((*models.VisitorPass)(nil))).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s passes: %w", c.name, err)
		}
		*c.dest = n
	}

	var err error
	if bundle.DurationMetrics, err = s.durationMetrics(ctx); err != nil {
		return nil, err
	}
	if bundle.VisitsByReason, err = s.visitsByReason(ctx); err != nil {
		return nil, err
	}
	if bundle.MonthlyTrend, err = s.monthlyTrend(ctx, w); err != nil {
		return nil, err
	}
	if s.hourly {
		if bundle.HourlyDistribution, err = s.hourlyDistribution(ctx); err != nil {
			return nil, err
		}
	}
	if s.weekday {
		if bundle.WeeklyDistribution, err = s.weekdayDistribution(ctx); err != nil {
			return nil, err
		}
	}

	s.Logger.Debug("ANALYTICS", fmt.Sprintf("metrics computed: active=%d today=%d upcoming=%d completed=%d",
		bundle.ActivePasses, bundle.TodayVisitors, bundle.UpcomingVisits, bundle.CompletedVisits))

	return bundle, nil
}

func (s *Service) durationMetrics(ctx context.Context) (models.DurationMetrics, error) {
	type durationRaw struct {
		Avg sql.NullFloat64 `bun:"avg_duration"`
		Max sql.NullFloat64 `bun:"max_duration"`
		Min sql.NullFloat64 `bun:"min_duration"`
	}

	var raw durationRaw
	err := s.db.NewSelect().
		Model((*models.VisitorPass)(nil)).
		ColumnExpr("AVG(" + s.exprs.durationHours + ") AS avg_duration").
		ColumnExpr("MAX(" + s.exprs.durationHours + ") AS max_duration").
		ColumnExpr("MIN(" + s.exprs.durationHours + ") AS min_duration").
		Scan(ctx, &raw)
	if err != nil {
		return models.DurationMetrics{}, fmt.Errorf("duration metrics: %w", err)
	}

	// an empty table yields NULLs
	return models.DurationMetrics{
		AvgDuration: raw.Avg.Float64,
		MaxDuration: raw.Max.Float64,
		MinDuration: raw.Min.Float64,
	}, nil
}

func (s *Service) visitsByReason(ctx context.Context) ([]models.ReasonCount, error) {
	reasons := make([]models.ReasonCount, 0, topReasonsLimit)
	err := s.db.NewSelect().
		Model((*models.VisitorPass)(nil)).
		ColumnExpr("COALESCE(reason, '') AS reason").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("COALESCE(reason, '')").
		OrderExpr("count DESC, reason ASC").
		Limit(topReasonsLimit).
		Scan(ctx, &reasons)
	if err != nil {
		return nil, fmt.Errorf("visits by reason: %w", err)
	}
	return reasons, nil
}

func (s *Service) monthlyTrend(ctx context.Context, w window) ([]models.MonthlyTrend, error) {
	trend := make([]models.MonthlyTrend, 0, trendMonths)
	err := s.db.NewSelect().
		Model((*models.VisitorPass)(nil)).
		ColumnExpr(s.exprs.month+" AS month").
		ColumnExpr("COUNT(*) AS visit_count").
		Where("date_start >= ?", w.trendStart).
		Where("date_start < ?", w.trendEnd).
		GroupExpr(s.exprs.month).
		OrderExpr("month ASC").
		Scan(ctx, &trend)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	return trend, nil
}

func (s *Service) hourlyDistribution(ctx context.Context) ([]models.HourlyCount, error) {
	hours := make([]models.HourlyCount, 0, 24)
	err := s.db.NewSelect().
		Model((*models.VisitorPass)(nil)).
		ColumnExpr(s.exprs.hour+" AS hour").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr(s.exprs.hour).
		OrderExpr("hour ASC").
		Scan(ctx, &hours)
	if err != nil {
		return nil, fmt.Errorf("hourly distribution: %w", err)
	}
	return hours, nil
}

// weekdayDistribution returns seven counts, Sunday first
func (s *Service) weekdayDistribution(ctx context.Context) ([]int, error) {
	type weekdayRaw struct {
		Weekday int `bun:"weekday"`
		Count   int `bun:"count"`
	}

	var rows []weekdayRaw
	err := s.db.NewSelect().
		Model((*models.VisitorPass)(nil)).
		ColumnExpr(s.exprs.weekday+" AS weekday").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr(s.exprs.weekday).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("weekday distribution: %w", err)
	}

	dist := make([]int, 7)
	for _, row := range rows {
		if row.Weekday >= 0 && row.Weekday < 7 {
			dist[row.Weekday] = row.Count
		}
	}
	return dist, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
