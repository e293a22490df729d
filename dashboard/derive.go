package dashboard

import (
	"fmt"
	"math"
)

// DailySeries holds the trend chart data: two series aligned by index on Labels.
type DailySeries struct {
	Labels    []string `json:"labels"`
	PageViews []int64  `json:"pageViews"`
	Analyses  []int64  `json:"analyses"`
}

// Len reports the number of points in each series.
func (d DailySeries) Len() int { return len(d.Labels) }

// Max returns the largest value across both series.
func (d DailySeries) Max() int64 {
	var m int64
	for i := range d.Labels {
		m = max(m, d.PageViews[i], d.Analyses[i])
	}
	return m
}

// Daily extracts the page-view and analysis series from dailyStats. Order and
// duplicates are kept exactly as the service sent them.
func Daily(s Snapshot) DailySeries {
	out := DailySeries{
		Labels:    make([]string, len(s.DailyStats)),
		PageViews: make([]int64, len(s.DailyStats)),
		Analyses:  make([]int64, len(s.DailyStats)),
	}
	for i, d := range s.DailyStats {
		out.Labels[i] = d.Date
		out.PageViews[i] = d.PageViews
		out.Analyses[i] = d.Analyses
	}
	return out
}

// Sample text categories, in display order.
const (
	CategoryShort     = "short"
	CategoryMedium    = "medium"
	CategoryDifficult = "difficult"
)

// CategoryCount is one slice of the sample-usage distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// SampleUsage returns the raw per-category counts; no normalization.
func SampleUsage(s Snapshot) []CategoryCount {
	return []CategoryCount{
		{Category: CategoryShort, Count: s.SampleTextUsage.Short},
		{Category: CategoryMedium, Count: s.SampleTextUsage.Medium},
		{Category: CategoryDifficult, Count: s.SampleTextUsage.Difficult},
	}
}

// ReadingTime is a duration split into whole minutes and leftover seconds.
type ReadingTime struct {
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

func (r ReadingTime) String() string {
	return fmt.Sprintf("%d minutes, %d seconds", r.Minutes, r.Seconds)
}

// maxReadingSeconds keeps the int64 conversion exact.
const maxReadingSeconds = 1 << 52

// FormatReadingTime truncates seconds to a whole number before splitting, so
// 125.9 becomes 2 minutes, 5 seconds.
func FormatReadingTime(seconds float64) ReadingTime {
	if math.IsNaN(seconds) || seconds <= 0 {
		return ReadingTime{}
	}
	if seconds > maxReadingSeconds {
		seconds = maxReadingSeconds
	}
	total := int64(seconds)
	return ReadingTime{Minutes: total / 60, Seconds: total % 60}
}

// Summary carries the scalar metrics shown on the cards.
type Summary struct {
	TotalPageViews         int64       `json:"totalPageViews"`
	TotalAnalyses          int64       `json:"totalAnalyses"`
	UniqueSessions         int64       `json:"uniqueSessions"`
	ErrorCount             int64       `json:"errorCount"`
	AverageCharacterCount  float64     `json:"averageCharacterCount"`
	AverageDifficultyScore float64     `json:"averageDifficultyScore"`
	AverageReadingTime     ReadingTime `json:"averageReadingTime"`
}

// Summarize picks the card metrics out of a snapshot.
func Summarize(s Snapshot) Summary {
	return Summary{
		TotalPageViews:         s.TotalPageViews,
		TotalAnalyses:          s.TotalAnalyses,
		UniqueSessions:         s.UniqueSessions,
		ErrorCount:             s.ErrorCount,
		AverageCharacterCount:  s.AverageCharacterCount,
		AverageDifficultyScore: s.AverageDifficultyScore,
		AverageReadingTime:     FormatReadingTime(s.AverageReadingTimeSeconds),
	}
}

// View is everything the renderer needs for a ready dashboard.
type View struct {
	Summary     Summary         `json:"summary"`
	Daily       DailySeries     `json:"daily"`
	SampleUsage []CategoryCount `json:"sampleUsage"`
}

// Derive builds the full render view for a snapshot.
func Derive(s Snapshot) View {
	return View{
		Summary:     Summarize(s),
		Daily:       Daily(s),
		SampleUsage: SampleUsage(s),
	}
}
