package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"github.com/kjstillabower/fred-dashboard-service/internal/dashboard"
	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/series"
)

// MissingMark is shown in place of a missing value.
const MissingMark = "—"

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"date":   func(t time.Time) string { return t.Format(models.DateLayout) },
	"value":  formatValue,
	"latest": formatLatest,
}

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(pageFuncs).ParseFS(templateFS, "templates/dashboard.html"))

// QuickRange is a preset link ending at the selected end date.
type QuickRange struct {
	Label string
	URL   string
}

// PageData is the template input for the dashboard page.
type PageData struct {
	View        dashboard.View
	Indicators  []models.SeriesDescriptor
	ChartURL    string
	ExportURL   string
	ChartWidth  int
	ChartHeight int
	QuickRanges []QuickRange
}

// NewPageData derives chart, export and quick-range links from v.
func NewPageData(v dashboard.View, indicators []models.SeriesDescriptor, chartSize ChartRenderer) PageData {
	d := PageData{
		View:        v,
		Indicators:  indicators,
		ChartWidth:  chartSize.Width,
		ChartHeight: chartSize.Height,
	}
	id := v.Indicator.SeriesID
	if id == "" || v.Range.IsZero() {
		return d
	}
	q := rangeQuery(v.Range)
	if v.Chartable() {
		d.ChartURL = "/chart/" + url.PathEscape(id) + "?" + q.Encode()
	}
	d.ExportURL = "/api/series/" + url.PathEscape(id) + "/export?" + q.Encode()
	d.QuickRanges = quickRanges(id, v.Range.End)
	return d
}

// RenderPage writes the dashboard HTML for d.
func RenderPage(w io.Writer, d PageData) error {
	if err := pageTemplate.Execute(w, d); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func rangeQuery(r models.DateRange) url.Values {
	q := url.Values{}
	q.Set("start", r.Start.Format(models.DateLayout))
	q.Set("end", r.End.Format(models.DateLayout))
	return q
}

func quickRanges(id string, end time.Time) []QuickRange {
	presets := []struct {
		label         string
		years, months int
	}{
		{"1m", 0, 1},
		{"6m", 0, 6},
		{"1y", 1, 0},
		{"5y", 5, 0},
		{"10y", 10, 0},
	}
	out := make([]QuickRange, 0, len(presets))
	for _, p := range presets {
		q := rangeQuery(models.DateRange{Start: end.AddDate(-p.years, -p.months, 0), End: end})
		q.Set("indicator", id)
		out = append(out, QuickRange{Label: p.label, URL: "/?" + q.Encode()})
	}
	return out
}

func formatValue(v null.Float) string {
	if !v.Valid {
		return MissingMark
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func formatLatest(s series.Summary) string {
	if s.Latest == nil {
		return MissingMark
	}
	return strconv.FormatFloat(*s.Latest, 'f', -1, 64) + " (" + s.LatestDate + ")"
}
