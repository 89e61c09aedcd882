package series

import (
	"time"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

// Filter returns the observations of s whose dates lie within r, inclusive.
// s must be sorted; the result shares no storage with s.
func Filter(s models.ObservationSeries, r models.DateRange) models.ObservationSeries {
	out := make([]models.Observation, 0, len(s.Observations))
	for _, o := range s.Observations {
		if r.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return models.ObservationSeries{SeriesID: s.SeriesID, Observations: out}
}

// Head returns at most the first n observations.
func Head(s models.ObservationSeries, n int) []models.Observation {
	if n <= 0 {
		return nil
	}
	if n > len(s.Observations) {
		n = len(s.Observations)
	}
	out := make([]models.Observation, n)
	copy(out, s.Observations[:n])
	return out
}

// Segment is a run of consecutive observations that all have values.
type Segment struct {
	Dates  []time.Time
	Values []float64
}

// Segments splits s at missing observations. Charts draw one line per segment so gaps stay visible.
func Segments(s models.ObservationSeries) []Segment {
	var out []Segment
	var cur Segment
	flush := func() {
		if len(cur.Dates) > 0 {
			out = append(out, cur)
		}
		cur = Segment{}
	}
	for _, o := range s.Observations {
		if !o.Value.Valid {
			flush()
			continue
		}
		cur.Dates = append(cur.Dates, o.Date)
		cur.Values = append(cur.Values, o.Value.Float64)
	}
	flush()
	return out
}

// Summary holds headline figures for a series.
type Summary struct {
	Count      int      `json:"count"`
	Missing    int      `json:"missing"`
	FirstDate  string   `json:"firstDate,omitempty"`
	LastDate   string   `json:"lastDate,omitempty"`
	Latest     *float64 `json:"latest"`
	LatestDate string   `json:"latestDate,omitempty"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
}

// Summarize computes a Summary over a sorted series.
func Summarize(s models.ObservationSeries) Summary {
	sum := Summary{Count: len(s.Observations)}
	if sum.Count == 0 {
		return sum
	}
	sum.FirstDate = s.Observations[0].Date.Format(models.DateLayout)
	sum.LastDate = s.Observations[sum.Count-1].Date.Format(models.DateLayout)
	for _, o := range s.Observations {
		if !o.Value.Valid {
			sum.Missing++
			continue
		}
		v := o.Value.Float64
		if sum.Min == nil || v < *sum.Min {
			sum.Min = ptr(v)
		}
		if sum.Max == nil || v > *sum.Max {
			sum.Max = ptr(v)
		}
		sum.Latest = ptr(v)
		sum.LatestDate = o.Date.Format(models.DateLayout)
	}
	return sum
}

func ptr(v float64) *float64 { return &v }
