// Package series converts raw FRED observations into cleaned, date-ordered series
// and provides the range filter and summaries used by the dashboard.
package series

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

// MissingSentinel is the string FRED uses for an unavailable observation.
const MissingSentinel = "."

// RawObservation is one observation as delivered by the provider, before cleaning.
type RawObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// ParseValue converts a provider value string to a float.
// The missing sentinel, any non-numeric string, and non-finite numbers map to an invalid null.Float.
func ParseValue(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" || s == MissingSentinel {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD) as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FromRaw converts provider observations into a cleaned series.
// A date that cannot be parsed fails the whole conversion; an unparseable value becomes missing.
func FromRaw(seriesID string, raw []RawObservation) (models.ObservationSeries, error) {
	obs := make([]models.Observation, 0, len(raw))
	for i, r := range raw {
		d, err := ParseDate(r.Date)
		if err != nil {
			return models.ObservationSeries{}, fmt.Errorf("observation %d: %w", i, err)
		}
		obs = append(obs, models.Observation{Date: d, Value: ParseValue(r.Value)})
	}
	return Clean(models.ObservationSeries{SeriesID: seriesID, Observations: obs}), nil
}

// Clean returns a copy of s ordered ascending by date. Missing values are kept as gaps.
// Clean is idempotent.
func Clean(s models.ObservationSeries) models.ObservationSeries {
	obs := make([]models.Observation, len(s.Observations))
	copy(obs, s.Observations)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	return models.ObservationSeries{SeriesID: s.SeriesID, Observations: obs}
}

// IsSorted reports whether observations are in ascending date order.
func IsSorted(s models.ObservationSeries) bool {
	return sort.SliceIsSorted(s.Observations, func(i, j int) bool {
		return s.Observations[i].Date.Before(s.Observations[j].Date)
	})
}
