package views

// Page carries the full dashboard document into the layout template.
type Page struct {
	Title     string
	CSRFToken string
	Flashes   []Flash
	State     StateView
}

// Flash is a one-shot notice read from the session after a redirect.
type Flash struct {
	Kind string // "info" or "error"
	Text string
}

// StateView is the render model for one dashboard view state. Every value is
// preformatted so templates only place strings.
type StateView struct {
	Kind      string // unconfigured, loading, error, empty, ready
	Message   string
	APIURL    string
	CSRFToken string

	Cards   []Card // totals row
	Metrics []Card // averages row
	Trend   Chart
	Usage   UsageChart
}

// Card is one labelled figure.
type Card struct {
	Label string
	Value string
}

// Chart is an inline SVG line chart of the daily series.
type Chart struct {
	ViewBox string
	Empty   bool
	Series  []Series
	Ticks   []Tick
	Axis    Axis
	MaxText string
}

// Series is one polyline, its points already projected into the viewBox.
type Series struct {
	Name   string
	Key    string // data-series value, used for styling
	Points string
}

// Tick is a date label under the x axis.
type Tick struct {
	X    string
	Y    string
	Text string
}

// Axis holds the baseline and max-label coordinates of the chart.
type Axis struct {
	X1, Y1, X2, Y2 string
	MaxX, MaxY     string
}

// UsageChart is a horizontal bar chart of raw sample-text counts.
type UsageChart struct {
	ViewBox string
	Bars    []Bar
}

// Bar is one category row of the usage chart.
type Bar struct {
	Label    string
	Category string
	Count    string
	Y        string
	TextY    string
	Width    string
}
