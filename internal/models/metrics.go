package models

import "time"

// MetricsBundle is the aggregate statistics object served to the dashboard
type MetricsBundle struct {
	ActivePasses       int             `json:"activePasses"`
	TodayVisitors      int             `json:"todayVisitors"`
	UpcomingVisits     int             `json:"upcomingVisits"`
	CompletedVisits    int             `json:"completedVisits"`
	WeeklyVisits       int             `json:"weeklyVisits"`
	MonthlyVisits      int             `json:"monthlyVisits"`
	DurationMetrics    DurationMetrics `json:"durationMetrics"`
	VisitsByReason     []ReasonCount   `json:"visitsByReason"`
	MonthlyTrend       []MonthlyTrend  `json:"monthlyTrend"`
	HourlyDistribution []HourlyCount   `json:"hourlyDistribution,omitempty"`
	WeeklyDistribution []int           `json:"weeklyDistribution,omitempty"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}

// DurationMetrics holds pass validity lengths in hours
type DurationMetrics struct {
	AvgDuration float64 `json:"avg_duration"`
	MaxDuration float64 `json:"max_duration"`
	MinDuration float64 `json:"min_duration"`
}

type ReasonCount struct {
	Reason string `bun:"reason" json:"reason"`
	Count  int    `bun:"count" json:"count"`
}

// MonthlyTrend counts passes starting in a calendar month, Month is "YYYY-MM"
type MonthlyTrend struct {
	Month      string `bun:"month" json:"month"`
	VisitCount int    `bun:"visit_count" json:"visit_count"`
}

type HourlyCount struct {
	Hour  int `bun:"hour" json:"hour"`
	Count int `bun:"count" json:"count"`
}
