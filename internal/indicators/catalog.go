package indicators

import (
	"errors"
	"strings"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

// ErrUnknownIndicator is returned when a name or series id is not in the catalog.
var ErrUnknownIndicator = errors.New("unknown indicator")

const sourceBaseURL = "https://fred.stlouisfed.org/series/"

// Catalog is the immutable set of indicators the service can display.
// Lookups accept either the display name or the FRED series id, case-insensitively.
type Catalog struct {
	ordered []models.SeriesDescriptor
	byKey   map[string]int
}

// NewCatalog builds a Catalog. Entries keep their given order; duplicate names or ids are rejected.
func NewCatalog(descriptors []models.SeriesDescriptor) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]models.SeriesDescriptor, 0, len(descriptors)),
		byKey:   make(map[string]int, 2*len(descriptors)),
	}
	for _, d := range descriptors {
		if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.SeriesID) == "" {
			return nil, errors.New("indicator name and series id are required")
		}
		if d.SourceURL == "" {
			d.SourceURL = sourceBaseURL + d.SeriesID
		}
		idx := len(c.ordered)
		for _, k := range []string{key(d.Name), key(d.SeriesID)} {
			if _, dup := c.byKey[k]; dup {
				return nil, errors.New("duplicate indicator: " + k)
			}
			c.byKey[k] = idx
		}
		c.ordered = append(c.ordered, d)
	}
	return c, nil
}

// Default returns the catalog of the five FRED series shown on the dashboard.
func Default() *Catalog {
	c, err := NewCatalog(defaultDescriptors)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup resolves a display name or series id.
func (c *Catalog) Lookup(nameOrID string) (models.SeriesDescriptor, error) {
	idx, ok := c.byKey[key(nameOrID)]
	if !ok {
		return models.SeriesDescriptor{}, ErrUnknownIndicator
	}
	return c.ordered[idx], nil
}

// Contains reports whether the series id (or name) is configured.
func (c *Catalog) Contains(nameOrID string) bool {
	_, ok := c.byKey[key(nameOrID)]
	return ok
}

// All returns a copy of the descriptors in display order.
func (c *Catalog) All() []models.SeriesDescriptor {
	out := make([]models.SeriesDescriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// First returns the indicator selected when none is requested.
func (c *Catalog) First() models.SeriesDescriptor {
	return c.ordered[0]
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var defaultDescriptors = []models.SeriesDescriptor{
	{
		Name:        "Federal Funds Rate",
		SeriesID:    "DFF",
		Units:       "Percent",
		Frequency:   "Daily",
		Description: "The effective federal funds rate, representing the target interest rate set by the Federal Open Market Committee (FOMC).",
	},
	{
		Name:        "Real Gross Domestic Product (GDP)",
		SeriesID:    "GDPC1",
		Units:       "Billions of Chained 2017 Dollars",
		Frequency:   "Quarterly",
		Description: "Real GDP, measuring the value of goods and services produced in the U.S. in constant dollars, adjusted for inflation.",
	},
	{
		Name:        "Unemployment Rate",
		SeriesID:    "UNRATE",
		Units:       "Percent",
		Frequency:   "Monthly",
		Description: "The percentage of the labor force that is unemployed.",
	},
	{
		Name:        "Consumer Price Index (CPI)",
		SeriesID:    "CPIAUCSL",
		Units:       "Index 1982-1984=100",
		Frequency:   "Monthly",
		Description: "A measure of the average change over time in the prices paid by urban consumers for a market basket of consumer goods and services.",
	},
	{
		Name:        "10-Year Treasury Yield",
		SeriesID:    "DGS10",
		Units:       "Percent",
		Frequency:   "Daily",
		Description: "The yield on the 10-Year Treasury Constant Maturity, widely used as a benchmark for mortgage rates and other interest rates.",
	},
}
