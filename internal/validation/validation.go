package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

// ErrSeriesIDEmpty is returned when a series id is empty or whitespace-only after trim.
var ErrSeriesIDEmpty = errors.New("series id is required")

// ErrSeriesIDInvalid is returned when a series id is too long or contains disallowed characters.
var ErrSeriesIDInvalid = errors.New("series id contains invalid characters")

// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date")

// ErrRangeInverted is returned when the start date is not strictly before the end date.
var ErrRangeInverted = errors.New("start date must be before end date")

// maxSeriesIDLen bounds path input; FRED ids are well under this.
const maxSeriesIDLen = 64

// ValidateSeriesID trims the input and restricts it to letters, digits and underscore.
// Catalog membership is checked by the caller.
func ValidateSeriesID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrSeriesIDEmpty
	}
	if len(s) > maxSeriesIDLen {
		return "", ErrSeriesIDInvalid
	}
	for _, c := range s {
		if !isAllowedSeriesIDRune(c) {
			return "", ErrSeriesIDInvalid
		}
	}
	return s, nil
}

func isAllowedSeriesIDRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

// ParseDateRange parses start and end as YYYY-MM-DD. An empty side takes the value
// from def. The resulting range must have start strictly before end.
func ParseDateRange(start, end string, def models.DateRange) (models.DateRange, error) {
	r := def
	var err error
	if s := strings.TrimSpace(start); s != "" {
		if r.Start, err = parseDate(s); err != nil {
			return models.DateRange{}, fmt.Errorf("start: %w", err)
		}
	}
	if e := strings.TrimSpace(end); e != "" {
		if r.End, err = parseDate(e); err != nil {
			return models.DateRange{}, fmt.Errorf("end: %w", err)
		}
	}
	if err := CheckRange(r); err != nil {
		return models.DateRange{}, err
	}
	return r, nil
}

// CheckRange rejects ranges whose start is on or after the end.
func CheckRange(r models.DateRange) error {
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: %s", ErrRangeInverted, r)
	}
	return nil
}

// DefaultRange returns [today-years, today] in UTC calendar dates.
func DefaultRange(now time.Time, years int) models.DateRange {
	today := now.UTC().Truncate(24 * time.Hour)
	return models.DateRange{Start: today.AddDate(-years, 0, 0), End: today}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return t, nil
}
