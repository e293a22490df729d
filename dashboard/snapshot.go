// Package dashboard owns the view-state machine of the statistics dashboard:
// it fetches the statistics envelope from the reading-time service, validates
// it against a strict schema and derives chart-ready series from the result.
package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Snapshot is one validated statistics payload as received from the service.
// A Snapshot is never mutated after validation; callers get copies.
type Snapshot struct {
	TotalPageViews            int64           `json:"totalPageViews"`
	TotalAnalyses             int64           `json:"totalAnalyses"`
	UniqueSessions            int64           `json:"uniqueSessions"`
	AverageCharacterCount     float64         `json:"averageCharacterCount"`
	AverageDifficultyScore    float64         `json:"averageDifficultyScore"`
	AverageReadingTimeSeconds float64         `json:"averageReadingTimeSeconds"`
	SampleTextUsage           SampleTextUsage `json:"sampleTextUsage"`
	ErrorCount                int64           `json:"errorCount"`
	DailyStats                []DailyStat     `json:"dailyStats"`
}

// SampleTextUsage counts how often each built-in sample text was analyzed.
type SampleTextUsage struct {
	Short     int64 `json:"short"`
	Medium    int64 `json:"medium"`
	Difficult int64 `json:"difficult"`
}

// DailyStat is one day of the trailing window, in the order the service sent it.
type DailyStat struct {
	Date           string `json:"date"`
	PageViews      int64  `json:"pageViews"`
	Analyses       int64  `json:"analyses"`
	UniqueSessions int64  `json:"uniqueSessions"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.DailyStats != nil {
		out.DailyStats = make([]DailyStat, len(s.DailyStats))
		copy(out.DailyStats, s.DailyStats)
	}
	return out
}

// SchemaError reports a payload that does not conform to the statistics schema.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid stats payload: %s: %s", e.Field, e.Reason)
}

// Wire shapes use pointers so that absent fields can be told apart from zeros.
type wireEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

type wireSnapshot struct {
	TotalPageViews            *float64         `json:"totalPageViews"`
	TotalAnalyses             *float64         `json:"totalAnalyses"`
	UniqueSessions            *float64         `json:"uniqueSessions"`
	AverageCharacterCount     *float64         `json:"averageCharacterCount"`
	AverageDifficultyScore    *float64         `json:"averageDifficultyScore"`
	AverageReadingTimeSeconds *float64         `json:"averageReadingTimeSeconds"`
	SampleTextUsage           *wireSampleUsage `json:"sampleTextUsage"`
	ErrorCount                *float64         `json:"errorCount"`
	DailyStats                *[]wireDailyStat `json:"dailyStats"`
}

type wireSampleUsage struct {
	Short     *float64 `json:"short"`
	Medium    *float64 `json:"medium"`
	Difficult *float64 `json:"difficult"`
}

type wireDailyStat struct {
	Date           *string  `json:"date"`
	PageViews      *float64 `json:"pageViews"`
	Analyses       *float64 `json:"analyses"`
	UniqueSessions *float64 `json:"uniqueSessions"`
}

// envelope is the decoded {success, data, error} wrapper.
type envelope struct {
	success bool
	errMsg  string
	data    json.RawMessage // nil when data is absent or null
}

func decodeEnvelope(body []byte) (envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(body, &w); err != nil {
		return envelope{}, fmt.Errorf("decode stats response: %w", err)
	}
	if w.Success == nil {
		return envelope{}, &SchemaError{Field: "success", Reason: "missing"}
	}
	env := envelope{success: *w.Success}
	if w.Error != nil {
		env.errMsg = *w.Error
	}
	if len(w.Data) > 0 && !bytes.Equal(bytes.TrimSpace(w.Data), []byte("null")) {
		env.data = w.Data
	}
	return env, nil
}

func decodeSnapshot(raw json.RawMessage) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode stats data: %w", err)
	}
	return w.validate()
}

func (w *wireSnapshot) validate() (*Snapshot, error) {
	var s Snapshot
	var err error
	if s.TotalPageViews, err = count("totalPageViews", w.TotalPageViews); err != nil {
		return nil, err
	}
	if s.TotalAnalyses, err = count("totalAnalyses", w.TotalAnalyses); err != nil {
		return nil, err
	}
	if s.UniqueSessions, err = count("uniqueSessions", w.UniqueSessions); err != nil {
		return nil, err
	}
	if s.AverageCharacterCount, err = measure("averageCharacterCount", w.AverageCharacterCount); err != nil {
		return nil, err
	}
	if s.AverageDifficultyScore, err = measure("averageDifficultyScore", w.AverageDifficultyScore); err != nil {
		return nil, err
	}
	if s.AverageReadingTimeSeconds, err = measure("averageReadingTimeSeconds", w.AverageReadingTimeSeconds); err != nil {
		return nil, err
	}
	if s.ErrorCount, err = count("errorCount", w.ErrorCount); err != nil {
		return nil, err
	}

	if w.SampleTextUsage == nil {
		return nil, &SchemaError{Field: "sampleTextUsage", Reason: "missing"}
	}
	if s.SampleTextUsage.Short, err = count("sampleTextUsage.short", w.SampleTextUsage.Short); err != nil {
		return nil, err
	}
	if s.SampleTextUsage.Medium, err = count("sampleTextUsage.medium", w.SampleTextUsage.Medium); err != nil {
		return nil, err
	}
	if s.SampleTextUsage.Difficult, err = count("sampleTextUsage.difficult", w.SampleTextUsage.Difficult); err != nil {
		return nil, err
	}

	if w.DailyStats == nil {
		return nil, &SchemaError{Field: "dailyStats", Reason: "missing"}
	}
	s.DailyStats = make([]DailyStat, len(*w.DailyStats))
	for i, d := range *w.DailyStats {
		prefix := fmt.Sprintf("dailyStats[%d]", i)
		if d.Date == nil || *d.Date == "" {
			return nil, &SchemaError{Field: prefix + ".date", Reason: "missing"}
		}
		day := DailyStat{Date: *d.Date}
		if day.PageViews, err = count(prefix+".pageViews", d.PageViews); err != nil {
			return nil, err
		}
		if day.Analyses, err = count(prefix+".analyses", d.Analyses); err != nil {
			return nil, err
		}
		if day.UniqueSessions, err = count(prefix+".uniqueSessions", d.UniqueSessions); err != nil {
			return nil, err
		}
		s.DailyStats[i] = day
	}
	return &s, nil
}

// maxCount is the largest count that survives a float64 round trip exactly.
const maxCount = 1 << 53

// count accepts any integral JSON number, so 1520 and 1520.0 both decode.
func count(field string, v *float64) (int64, error) {
	if v == nil {
		return 0, &SchemaError{Field: field, Reason: "missing"}
	}
	if *v < 0 {
		return 0, &SchemaError{Field: field, Reason: "must not be negative"}
	}
	if *v != math.Trunc(*v) {
		return 0, &SchemaError{Field: field, Reason: "must be an integer"}
	}
	if *v > maxCount {
		return 0, &SchemaError{Field: field, Reason: "out of range"}
	}
	return int64(*v), nil
}

func measure(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, &SchemaError{Field: field, Reason: "missing"}
	}
	if *v < 0 {
		return 0, &SchemaError{Field: field, Reason: "must not be negative"}
	}
	return *v, nil
}
