package models

import (
	"encoding/json"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the ISO calendar date format used by FRED and by all API surfaces.
const DateLayout = "2006-01-02"

// SeriesDescriptor describes one configured economic indicator.
type SeriesDescriptor struct {
	Name        string `json:"name"`
	SeriesID    string `json:"seriesId"`
	Units       string `json:"units"`
	Frequency   string `json:"frequency"`
	Description string `json:"description"`
	SourceURL   string `json:"sourceUrl"`
}

// Observation is a single dated data point. An invalid Value marks a missing observation.
type Observation struct {
	Date  time.Time
	Value null.Float
}

type observationJSON struct {
	Date  string     `json:"date"`
	Value null.Float `json:"value"`
}

func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(observationJSON{Date: o.Date.Format(DateLayout), Value: o.Value})
}

func (o *Observation) UnmarshalJSON(b []byte) error {
	var raw observationJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	o.Date = d
	o.Value = raw.Value
	return nil
}

// ObservationSeries is the cleaned, date-ordered set of observations for one series.
type ObservationSeries struct {
	SeriesID     string        `json:"seriesId"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations.
func (s ObservationSeries) Len() int { return len(s.Observations) }

// Empty reports whether the series has no observations.
func (s ObservationSeries) Empty() bool { return len(s.Observations) == 0 }

// DateRange is an inclusive calendar date interval. The zero value means unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no bounds are set.
func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// Contains reports whether d lies within the range, treating zero bounds as open.
func (r DateRange) Contains(d time.Time) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// String formats the range as "start..end" with empty sides for open bounds.
func (r DateRange) String() string {
	return formatDate(r.Start) + ".." + formatDate(r.End)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
