package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk and wire format for calendar dates
const DateLayout = "2006-01-02"

// Period selects quarterly or annual analyst estimates
type Period string

const (
	PeriodQuarterly Period = "quarter"
	PeriodAnnual    Period = "annual"
)

// Periods lists the periods the tracker maintains, in processing order
var Periods = []Period{PeriodQuarterly, PeriodAnnual}

// String returns the human-readable period name
func (p Period) String() string {
	switch p {
	case PeriodQuarterly:
		return "quarterly"
	case PeriodAnnual:
		return "annual"
	}
	return string(p)
}

// Date is a calendar date without a time-of-day component (UTC midnight).
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MustParseDate parses YYYY-MM-DD and panics on failure. Intended for fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDate accepts YYYY-MM-DD and, for robustness against older logs, full
// timestamps whose date prefix is YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is strictly before other
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly after other
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Equal reports whether both dates denote the same day
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

// MarshalCSV implements gocsv.TypeMarshaller
func (d Date) MarshalCSV() (string, error) {
	return d.String(), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller
func (d *Date) UnmarshalCSV(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	return d.UnmarshalCSV(string(b))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalCSV(s)
}

// EstimateSnapshot is one observed analyst consensus for a target period.
// Rows are unique per (Symbol, TargetDate, TrackingDate) and never rewritten.
type EstimateSnapshot struct {
	Symbol         string  `csv:"symbol" json:"symbol"`
	TargetDate     Date    `csv:"target_date" json:"target_date"`
	TrackingDate   Date    `csv:"tracking_date" json:"tracking_date"`
	EpsAvg         float64 `csv:"estimatedEpsAvg" json:"estimatedEpsAvg"`
	EpsHigh        float64 `csv:"estimatedEpsHigh" json:"estimatedEpsHigh"`
	EpsLow         float64 `csv:"estimatedEpsLow" json:"estimatedEpsLow"`
	NumberAnalysts int     `csv:"numberAnalystsEstimatedEps" json:"numberAnalystsEstimatedEps"`
}

// Key identifies the revision series a snapshot belongs to
func (s EstimateSnapshot) Key() SeriesKey {
	return SeriesKey{Symbol: s.Symbol, TargetDate: s.TargetDate}
}

// SeriesKey groups snapshots of one symbol for one target period
type SeriesKey struct {
	Symbol     string
	TargetDate Date
}

// AnalystEstimate is a raw consensus row as returned by the data source.
type AnalystEstimate struct {
	Symbol         string   `json:"symbol"`
	Date           Date     `json:"date"`
	EpsAvg         *float64 `json:"estimatedEpsAvg"`
	EpsHigh        *float64 `json:"estimatedEpsHigh"`
	EpsLow         *float64 `json:"estimatedEpsLow"`
	NumberAnalysts int      `json:"numberAnalystsEstimatedEps"`
}

// EarningsSurprise is a reported-vs-expected earnings row from the data source.
// Nil pointers mark values the provider did not report.
type EarningsSurprise struct {
	Symbol    string   `json:"symbol"`
	Date      Date     `json:"date"`
	Actual    *float64 `json:"actualEarningResult"`
	Estimated *float64 `json:"estimatedEarning"`
}
