package cycle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yanqian/cyclegpt/pkg/util"
)

// Date is a calendar day in UTC serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Time: util.DateOnly(t)}
}

// ParseDate accepts YYYY-MM-DD and, for upstreams that send timestamps, RFC3339.
func ParseDate(value string) (Date, error) {
	trimmed := strings.TrimSpace(value)
	if ts, err := time.Parse(util.DateLayout, trimmed); err == nil {
		return DateOf(ts), nil
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", value)
	}
	return DateOf(ts), nil
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return util.DaysBetween(d.Time, other.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(util.DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Prediction is the forecast returned by the prediction endpoint.
type Prediction struct {
	UserID               int64   `json:"user_id,omitempty"`
	PredictedNextCycle   Date    `json:"predicted_next_cycle"`
	FertileWindowStart   Date    `json:"fertile_window_start"`
	FertileWindowEnd     Date    `json:"fertile_window_end"`
	PredictedCycleLength float64 `json:"predicted_cycle_length"`
	FertileWindowDays    int     `json:"fertile_window_days,omitempty"`
}

// Record is one row of the cycle dataset.
type Record struct {
	UserID            int64
	Age               float64
	BMI               float64
	StressLevel       float64
	SleepHours        float64
	Diet              string
	ExerciseFrequency string
	CycleStart        Date
	CycleLength       float64
	NextCycleStart    Date
}

// Phase names one of the four segments of the cycle timeline.
type Phase string

const (
	PhaseMenstruation Phase = "Menstruation"
	PhaseFollicular   Phase = "Follicular Phase"
	PhaseFertile      Phase = "Fertile Window"
	PhaseLuteal       Phase = "Luteal Phase"
)

// Segment is a date range of the timeline together with its chart coordinates.
type Segment struct {
	Phase       Phase  `json:"phase"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Start       Date   `json:"start"`
	End         Date   `json:"end"`
	StartDay    int    `json:"startCycleDay"`
	EndDay      int    `json:"endCycleDay"`
}

// Days is the inclusive length of the segment; negative for inverted inputs.
func (s Segment) Days() int {
	return s.Start.DaysUntil(s.End) + 1
}

// Timeline is the derived four-phase layout of a prediction.
type Timeline struct {
	Prediction  Prediction `json:"prediction"`
	CycleLength int        `json:"cycleLength"`
	FertileDays int        `json:"fertileDays"`
	Segments    []Segment  `json:"segments"`
}

// Span is the number of days from the first segment start to the last segment end.
func (t Timeline) Span() int {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[0].Start.DaysUntil(t.Segments[len(t.Segments)-1].End)
}

// Config wires runtime knobs for the cycle domain.
type Config struct {
	Model       string
	CacheTTL    time.Duration
	LutealDays  int
	FertileDays int
}
