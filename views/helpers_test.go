package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eringen/readdash/dashboard"
)

var testSnapshot = dashboard.Snapshot{
	TotalPageViews:            1520,
	TotalAnalyses:             980,
	UniqueSessions:            311,
	AverageCharacterCount:     2345.6,
	AverageDifficultyScore:    3.26,
	AverageReadingTimeSeconds: 125.9,
	SampleTextUsage:           dashboard.SampleTextUsage{Short: 12, Medium: 7, Difficult: 3},
	ErrorCount:                4,
	DailyStats: []dashboard.DailyStat{
		{Date: "2024-05-01", PageViews: 50, Analyses: 30, UniqueSessions: 20},
		{Date: "2024-05-02", PageViews: 0, Analyses: 0, UniqueSessions: 0},
		{Date: "2024-05-03", PageViews: 100, Analyses: 25, UniqueSessions: 40},
	},
}

type stubFetcher struct {
	snap *dashboard.Snapshot
	err  error
}

func (f stubFetcher) FetchStatistics(context.Context, string) (*dashboard.Snapshot, error) {
	return f.snap, f.err
}

// resolvedState drives a real controller to a terminal state.
func resolvedState(t *testing.T, f dashboard.Fetcher) dashboard.ViewState {
	t.Helper()
	ctl := dashboard.NewController(dashboard.NewMemoryStore("https://stats.example.com"), f)
	t.Cleanup(ctl.Close)

	p, err := ctl.Initialize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
	return ctl.State()
}

func TestSummaryCardsUseThousandsSeparators(t *testing.T) {
	cards := SummaryCards(dashboard.Summary{
		TotalPageViews: 1234567,
		TotalAnalyses:  980,
		UniqueSessions: 1000,
		ErrorCount:     0,
	})
	require.Len(t, cards, 4)
	require.Equal(t, "1,234,567", cards[0].Value)
	require.Equal(t, "980", cards[1].Value)
	require.Equal(t, "1,000", cards[2].Value)
	require.Equal(t, "0", cards[3].Value)
}

func TestMetricCards(t *testing.T) {
	cards := MetricCards(dashboard.Summary{
		AverageCharacterCount:  2345.6,
		AverageDifficultyScore: 3.26,
		AverageReadingTime:     dashboard.FormatReadingTime(125.9),
	})
	require.Len(t, cards, 3)
	require.Equal(t, "2,345.6", cards[0].Value)
	require.Equal(t, "3.3", cards[1].Value)
	require.Equal(t, "2 min 5 sec", cards[2].Value)
}

func TestTrendChartProjectsPointsInOrder(t *testing.T) {
	c := TrendChart(dashboard.Daily(testSnapshot))

	require.False(t, c.Empty)
	require.Equal(t, "0 0 640 240", c.ViewBox)
	require.Equal(t, "100", c.MaxText)
	require.Len(t, c.Series, 2)
	// x runs 48..628, y runs 208 (zero) .. 16 (peak of 100).
	require.Equal(t, "48.0,112.0 338.0,208.0 628.0,16.0", c.Series[0].Points)
	require.Equal(t, "48.0,150.4 338.0,208.0 628.0,160.0", c.Series[1].Points)
	require.Len(t, c.Ticks, 3)
	require.Equal(t, "2024-05-01", c.Ticks[0].Text)
	require.Equal(t, "2024-05-03", c.Ticks[2].Text)
}

func TestTrendChartSinglePointAndZeroes(t *testing.T) {
	c := TrendChart(dashboard.DailySeries{
		Labels:    []string{"2024-05-01"},
		PageViews: []int64{0},
		Analyses:  []int64{0},
	})
	require.Equal(t, "338.0,208.0", c.Series[0].Points)
	require.Len(t, c.Ticks, 1)
}

func TestTrendChartEmpty(t *testing.T) {
	c := TrendChart(dashboard.Daily(dashboard.Snapshot{}))
	require.True(t, c.Empty)
	require.Empty(t, c.Series)
}

func TestTickIndexes(t *testing.T) {
	require.Equal(t, []int{0, 1, 2}, tickIndexes(3, 6))
	require.Equal(t, []int{0, 5, 11, 17, 23, 29}, tickIndexes(30, 6))
	require.Empty(t, tickIndexes(0, 6))
}

func TestSampleUsageChartScalesToLargestCount(t *testing.T) {
	u := SampleUsageChart(dashboard.SampleUsage(testSnapshot))

	require.Len(t, u.Bars, 3)
	require.Equal(t, "0 0 480 108", u.ViewBox)
	require.Equal(t, "Short sample", u.Bars[0].Label)
	require.Equal(t, "300.0", u.Bars[0].Width)
	require.Equal(t, "175.0", u.Bars[1].Width)
	require.Equal(t, "75.0", u.Bars[2].Width)
	require.Equal(t, "12", u.Bars[0].Count)
}

func TestSampleUsageChartAllZero(t *testing.T) {
	u := SampleUsageChart(dashboard.SampleUsage(dashboard.Snapshot{}))
	for _, b := range u.Bars {
		require.Equal(t, "0.0", b.Width)
		require.Equal(t, "0", b.Count)
	}
}

func TestNewStateView(t *testing.T) {
	snap := testSnapshot
	ready := NewStateView(resolvedState(t, stubFetcher{snap: &snap}), "https://stats.example.com", "tok")
	require.Equal(t, "ready", ready.Kind)
	require.Equal(t, "https://stats.example.com", ready.APIURL)
	require.Equal(t, "tok", ready.CSRFToken)
	require.Len(t, ready.Cards, 4)
	require.Len(t, ready.Metrics, 3)
	require.Len(t, ready.Usage.Bars, 3)

	empty := NewStateView(resolvedState(t, stubFetcher{err: dashboard.ErrNoData}), "", "")
	require.Equal(t, "empty", empty.Kind)
	require.Empty(t, empty.Cards)

	failed := NewStateView(resolvedState(t, stubFetcher{err: &dashboard.ServiceError{StatusCode: 200, Message: "database offline"}}), "", "")
	require.Equal(t, "error", failed.Kind)
	require.Equal(t, "database offline", failed.Message)
}
