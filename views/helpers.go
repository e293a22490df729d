package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/eringen/readdash/dashboard"
)

// Trend chart geometry, in viewBox units.
const (
	chartWidth  = 640
	chartHeight = 240
	chartLeft   = 48
	chartRight  = 12
	chartTop    = 16
	chartBottom = 32
	maxTicks    = 6
)

// Usage chart geometry. Bars start at x=110 and the count label sits at x=418.
const (
	usageWidth  = 480
	usageRow    = 36
	usageBarMax = 300
)

var categoryLabels = map[string]string{
	dashboard.CategoryShort:     "Short sample",
	dashboard.CategoryMedium:    "Medium sample",
	dashboard.CategoryDifficult: "Difficult sample",
}

// NewStateView maps a controller state onto its render model.
func NewStateView(st dashboard.ViewState, apiURL, csrfToken string) StateView {
	v := StateView{
		Kind:      st.Kind.String(),
		Message:   st.Message,
		APIURL:    apiURL,
		CSRFToken: csrfToken,
	}
	snap, ok := st.Snapshot()
	if !ok {
		return v
	}
	dv := dashboard.Derive(snap)
	v.Cards = SummaryCards(dv.Summary)
	v.Metrics = MetricCards(dv.Summary)
	v.Trend = TrendChart(dv.Daily)
	v.Usage = SampleUsageChart(dv.SampleUsage)
	return v
}

// SummaryCards formats the four totals with thousands separators.
func SummaryCards(s dashboard.Summary) []Card {
	return []Card{
		{Label: "Total page views", Value: humanize.Comma(s.TotalPageViews)},
		{Label: "Total analyses", Value: humanize.Comma(s.TotalAnalyses)},
		{Label: "Unique sessions", Value: humanize.Comma(s.UniqueSessions)},
		{Label: "Errors", Value: humanize.Comma(s.ErrorCount)},
	}
}

// MetricCards formats the three averages.
func MetricCards(s dashboard.Summary) []Card {
	return []Card{
		{Label: "Average characters", Value: humanize.CommafWithDigits(s.AverageCharacterCount, 3)},
		{Label: "Average difficulty", Value: strconv.FormatFloat(s.AverageDifficultyScore, 'f', 1, 64)},
		{Label: "Average reading time", Value: FormatMinSec(s.AverageReadingTime)},
	}
}

// FormatMinSec renders a reading time as "2 min 5 sec".
func FormatMinSec(r dashboard.ReadingTime) string {
	return fmt.Sprintf("%d min %d sec", r.Minutes, r.Seconds)
}

// TrendChart projects the daily series into the chart viewBox. Points keep
// the service's order; a single point is centred.
func TrendChart(d dashboard.DailySeries) Chart {
	plotW := float64(chartWidth - chartLeft - chartRight)
	plotH := float64(chartHeight - chartTop - chartBottom)
	baseY := chartTop + plotH
	peak := d.Max()

	c := Chart{
		ViewBox: fmt.Sprintf("0 0 %d %d", chartWidth, chartHeight),
		Empty:   d.Len() == 0,
		Axis: Axis{
			X1:   strconv.Itoa(chartLeft),
			Y1:   coord(baseY),
			X2:   strconv.Itoa(chartWidth - chartRight),
			Y2:   coord(baseY),
			MaxX: strconv.Itoa(chartLeft - 6),
			MaxY: strconv.Itoa(chartTop + 4),
		},
		MaxText: humanize.Comma(peak),
	}
	if c.Empty {
		return c
	}

	n := d.Len()
	x := func(i int) float64 {
		if n == 1 {
			return chartLeft + plotW/2
		}
		return chartLeft + plotW*float64(i)/float64(n-1)
	}
	y := func(v int64) float64 {
		if peak == 0 {
			return baseY
		}
		return baseY - plotH*float64(v)/float64(peak)
	}

	c.Series = []Series{
		{Name: "Page views", Key: "views", Points: polyline(d.PageViews, x, y)},
		{Name: "Analyses", Key: "analyses", Points: polyline(d.Analyses, x, y)},
	}
	for _, i := range tickIndexes(n, maxTicks) {
		c.Ticks = append(c.Ticks, Tick{
			X:    coord(x(i)),
			Y:    strconv.Itoa(chartHeight - 10),
			Text: d.Labels[i],
		})
	}
	return c
}

// SampleUsageChart draws one bar per category, scaled to the largest raw count.
func SampleUsageChart(counts []dashboard.CategoryCount) UsageChart {
	var peak int64
	for _, c := range counts {
		peak = max(peak, c.Count)
	}
	u := UsageChart{ViewBox: fmt.Sprintf("0 0 %d %d", usageWidth, usageRow*len(counts))}
	for i, c := range counts {
		w := 0.0
		if peak > 0 {
			w = usageBarMax * float64(c.Count) / float64(peak)
		}
		top := i * usageRow
		label, ok := categoryLabels[c.Category]
		if !ok {
			label = c.Category
		}
		u.Bars = append(u.Bars, Bar{
			Label:    label,
			Category: c.Category,
			Count:    humanize.Comma(c.Count),
			Y:        strconv.Itoa(top + 8),
			TextY:    strconv.Itoa(top + usageRow/2 + 5),
			Width:    coord(w),
		})
	}
	return u
}

func polyline(vals []int64, x func(int) float64, y func(int64) float64) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(coord(x(i)))
		b.WriteByte(',')
		b.WriteString(coord(y(v)))
	}
	return b.String()
}

// tickIndexes picks at most k evenly spaced indexes out of n, always
// including the first and last.
func tickIndexes(n, k int) []int {
	if n <= k {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, k)
	for i := range out {
		out[i] = i * (n - 1) / (k - 1)
	}
	return out
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
