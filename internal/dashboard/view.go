package dashboard

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"ms-gatepass/internal/models"
)

// defaultGaugeMax is the duration gauge scale when no pass has a duration yet
const defaultGaugeMax = 24.0

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type Card struct {
	Title string
	Value string
}

type Slice struct {
	Name  string
	Value int
}

type Gauge struct {
	Value float64
	Max   float64
	Label string
}

type TrendPoint struct {
	Label string
	Count int
}

// View is everything the dashboard displays, derived from one bundle
type View struct {
	Loading     bool
	Error       string
	CanRetry    bool
	Cards       []Card
	VisitStatus []Slice
	Duration    Gauge
	Reasons     []models.ReasonCount
	Trend       []TrendPoint
	Hourly      []models.HourlyCount
	Weekdays    []Slice
	UpdatedAt   time.Time
}

// BuildView maps a bundle to display values; a nil bundle renders as zeros
func BuildView(b *models.MetricsBundle) View {
	if b == nil {
		b = &models.MetricsBundle{}
	}

	gaugeMax := b.DurationMetrics.MaxDuration
	if gaugeMax <= 0 {
		gaugeMax = defaultGaugeMax
	}

	v := View{
		Cards: []Card{
			{Title: "Active Passes", Value: fmt.Sprint(b.ActivePasses)},
			{Title: "This Week's Visits", Value: fmt.Sprint(b.WeeklyVisits)},
			{Title: "This Month's Visits", Value: fmt.Sprint(b.MonthlyVisits)},
			{Title: "Avg Duration", Value: FormatDuration(b.DurationMetrics.AvgDuration)},
		},
		VisitStatus: []Slice{
			{Name: "Active", Value: b.ActivePasses},
			{Name: "Upcoming", Value: b.UpcomingVisits},
			{Name: "Completed", Value: b.CompletedVisits},
		},
		Duration: Gauge{
			Value: b.DurationMetrics.AvgDuration,
			Max:   gaugeMax,
			Label: "Avg Duration",
		},
		Reasons: b.VisitsByReason,
		Hourly:  b.HourlyDistribution,
	}

	for _, t := range b.MonthlyTrend {
		v.Trend = append(v.Trend, TrendPoint{Label: monthLabel(t.Month), Count: t.VisitCount})
	}

	if len(b.WeeklyDistribution) == len(weekdayNames) {
		for i, n := range b.WeeklyDistribution {
			v.Weekdays = append(v.Weekdays, Slice{Name: weekdayNames[i], Value: n})
		}
	}
	return v
}

// FormatDuration renders hours as "Xd Yh", or "Yh" under a day
func FormatDuration(hours float64) string {
	if hours < 0 || math.IsNaN(hours) {
		hours = 0
	}
	days := int(math.Floor(hours / 24))
	remaining := int(math.Floor(math.Mod(hours, 24)))
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, remaining)
	}
	return fmt.Sprintf("%dh", remaining)
}

// monthLabel turns "2025-01" into "January 2025"
func monthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// Render writes the view as plain text
func (v View) Render(w io.Writer) error {
	if v.Loading {
		_, err := fmt.Fprintln(w, "Loading dashboard...")
		return err
	}
	if v.Error != "" {
		fmt.Fprintf(w, "%s", v.Error)
		if v.CanRetry {
			fmt.Fprint(w, " Press r to retry.")
		}
		fmt.Fprintln(w)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, c := range v.Cards {
		fmt.Fprintf(tw, "%s\t%s\n", c.Title, c.Value)
	}

	fmt.Fprintln(tw, "\nVISIT STATUS\t")
	for _, s := range v.VisitStatus {
		fmt.Fprintf(tw, "%s\t%d\n", s.Name, s.Value)
	}

	fmt.Fprintf(tw, "\nDURATION\t%s of %s\n", FormatDuration(v.Duration.Value), FormatDuration(v.Duration.Max))

	fmt.Fprintln(tw, "\nTOP REASONS\t")
	for _, r := range v.Reasons {
		reason := r.Reason
		if strings.TrimSpace(reason) == "" {
			reason = "(none)"
		}
		fmt.Fprintf(tw, "%s\t%d\n", reason, r.Count)
	}

	fmt.Fprintln(tw, "\nMONTHLY TREND\t")
	for _, t := range v.Trend {
		fmt.Fprintf(tw, "%s\t%d\n", t.Label, t.Count)
	}

	if len(v.Hourly) > 0 {
		fmt.Fprintln(tw, "\nBY HOUR (UTC)\t")
		for _, h := range v.Hourly {
			fmt.Fprintf(tw, "%02d:00\t%d\n", h.Hour, h.Count)
		}
	}

	if len(v.Weekdays) > 0 {
		fmt.Fprintln(tw, "\nBY WEEKDAY\t")
		for _, d := range v.Weekdays {
			fmt.Fprintf(tw, "%s\t%d\n", d.Name, d.Value)
		}
	}

	if !v.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "\nupdated\t%s\n", v.UpdatedAt.Format(time.RFC1123))
	}
	return tw.Flush()
}
