package series

import (
	"reflect"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in        string
		wantValid bool
		want      float64
	}{
		{"4.33", true, 4.33},
		{"0", true, 0},
		{"-1.5", true, -1.5},
		{" 2.0 ", true, 2},
		{".", false, 0},
		{"", false, 0},
		{"n/a", false, 0},
		{"NaN", false, 0},
		{"Inf", false, 0},
	}
	for _, tt := range tests {
		got := ParseValue(tt.in)
		if got.Valid != tt.wantValid {
			t.Errorf("ParseValue(%q).Valid = %v, want %v", tt.in, got.Valid, tt.wantValid)
			continue
		}
		if got.Valid && got.Float64 != tt.want {
			t.Errorf("ParseValue(%q) = %v, want %v", tt.in, got.Float64, tt.want)
		}
	}
}

// TestParseValue_SentinelIsNeverZero verifies the missing sentinel never becomes a numeric zero.
func TestParseValue_SentinelIsNeverZero(t *testing.T) {
	v := ParseValue(MissingSentinel)
	if v.Valid {
		t.Fatalf("ParseValue(%q) is valid (%v), want missing", MissingSentinel, v.Float64)
	}
}

func TestFromRaw_SortsAscending(t *testing.T) {
	raw := []RawObservation{
		{Date: "2020-03-01", Value: "3"},
		{Date: "2020-01-01", Value: "1"},
		{Date: "2020-02-01", Value: "."},
	}
	s, err := FromRaw("UNRATE", raw)
	if err != nil {
		t.Fatalf("FromRaw() error = %v", err)
	}
	if s.Len() != len(raw) {
		t.Fatalf("Len() = %d, want %d", s.Len(), len(raw))
	}
	if !IsSorted(s) {
		t.Fatal("FromRaw() result is not sorted")
	}
	if !s.Observations[0].Date.Equal(date("2020-01-01")) {
		t.Errorf("first date = %v, want 2020-01-01", s.Observations[0].Date)
	}
	if s.Observations[1].Value.Valid {
		t.Error("2020-02-01 value should be missing")
	}
	if s.SeriesID != "UNRATE" {
		t.Errorf("SeriesID = %q, want UNRATE", s.SeriesID)
	}
}

func TestFromRaw_BadDate(t *testing.T) {
	_, err := FromRaw("DFF", []RawObservation{{Date: "01/02/2020", Value: "1"}})
	if err == nil {
		t.Fatal("FromRaw() expected error for non-ISO date, got nil")
	}
}

func TestClean_Idempotent(t *testing.T) {
	in := models.ObservationSeries{
		SeriesID: "DFF",
		Observations: []models.Observation{
			{Date: date("2021-01-03"), Value: null.FloatFrom(3)},
			{Date: date("2021-01-01"), Value: null.Float{}},
			{Date: date("2021-01-02"), Value: null.FloatFrom(2)},
		},
	}
	once := Clean(in)
	twice := Clean(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Clean(Clean(s)) = %+v, want %+v", twice, once)
	}
	if !IsSorted(once) {
		t.Error("Clean() result is not sorted")
	}
	if !in.Observations[0].Date.Equal(date("2021-01-03")) {
		t.Error("Clean() mutated its input")
	}
}
