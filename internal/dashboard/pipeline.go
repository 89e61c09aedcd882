package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
	"github.com/kjstillabower/fred-dashboard-service/internal/series"
	"github.com/kjstillabower/fred-dashboard-service/internal/validation"
)

const (
	DefaultPreviewRows  = 10
	DefaultHistoryYears = 10
)

// Fetcher returns the cleaned series for an id. Implemented by service.SeriesService.
type Fetcher interface {
	GetSeries(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error)
}

// Selection is what the user picked. Empty fields take defaults.
type Selection struct {
	Indicator string
	Start     string
	End       string
}

// View is everything needed to draw one dashboard state.
type View struct {
	Indicator  models.SeriesDescriptor  `json:"indicator"`
	Start      string                   `json:"start"`
	End        string                   `json:"end"`
	Range      models.DateRange         `json:"-"`
	Series     models.ObservationSeries `json:"series"`
	Preview    []models.Observation     `json:"preview"`
	Summary    series.Summary           `json:"summary"`
	ChartTitle string                   `json:"chartTitle,omitempty"`
	Messages   []Message                `json:"messages"`
}

// Has reports whether v carries a message of kind k.
func (v View) Has(k Kind) bool {
	for _, m := range v.Messages {
		if m.Kind == k {
			return true
		}
	}
	return false
}

// Chartable reports whether the view has enough valid points to draw a line.
func (v View) Chartable() bool {
	n := 0
	for _, o := range v.Series.Observations {
		if o.Value.Valid {
			n++
		}
	}
	return n >= 2
}

// Options configures a Pipeline. Zero fields use defaults.
type Options struct {
	PreviewRows  int
	HistoryYears int
}

// Pipeline turns a Selection into a View: resolve, validate, fetch, filter, summarize.
// It holds no request state and is safe for concurrent use.
type Pipeline struct {
	catalog      *indicators.Catalog
	fetcher      Fetcher
	previewRows  int
	historyYears int
	now          func() time.Time
}

// NewPipeline creates a Pipeline over catalog and fetcher.
func NewPipeline(catalog *indicators.Catalog, fetcher Fetcher, opts Options) *Pipeline {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.HistoryYears <= 0 {
		opts.HistoryYears = DefaultHistoryYears
	}
	return &Pipeline{
		catalog:      catalog,
		fetcher:      fetcher,
		previewRows:  opts.PreviewRows,
		historyYears: opts.HistoryYears,
		now:          time.Now,
	}
}

// Catalog returns the indicators the pipeline can show.
func (p *Pipeline) Catalog() *indicators.Catalog {
	return p.catalog
}

// DefaultRange is the range used when the selection leaves dates empty.
func (p *Pipeline) DefaultRange() models.DateRange {
	return validation.DefaultRange(p.now(), p.historyYears)
}

// Build runs the pipeline for sel. Failures never escape: they become Messages on
// the returned View, whose series is then empty. Invalid selections and ranges are
// rejected before any fetch.
func (p *Pipeline) Build(ctx context.Context, sel Selection) View {
	logger := observability.LoggerFromContext(ctx)
	view := View{Start: sel.Start, End: sel.End, Messages: []Message{}}

	desc := p.catalog.First()
	if sel.Indicator != "" {
		var err error
		if desc, err = p.catalog.Lookup(sel.Indicator); err != nil {
			return p.fail(logger, view, Classify(err))
		}
	}
	view.Indicator = desc
	view.ChartTitle = desc.Name + " Historical Data"
	view.Series = models.ObservationSeries{SeriesID: desc.SeriesID, Observations: []models.Observation{}}

	r, err := validation.ParseDateRange(sel.Start, sel.End, p.DefaultRange())
	if err != nil {
		return p.fail(logger, view, Classify(err))
	}
	view.Range = r
	view.Start = r.Start.Format(models.DateLayout)
	view.End = r.End.Format(models.DateLayout)
	observability.SeriesQueriesTotal.WithLabelValues(desc.SeriesID).Inc()

	// The full history is fetched and filtered here, so an empty provider response
	// and an empty window stay distinguishable.
	full, err := p.fetcher.GetSeries(ctx, desc.SeriesID, models.DateRange{})
	if err != nil {
		logger.Warn("series fetch failed", zap.String("series", desc.SeriesID), zap.Error(err))
		return p.fail(logger, view, Classify(err))
	}
	if full.Empty() {
		return p.fail(logger, view, emptyResult(desc.Name))
	}

	filtered := series.Filter(series.Clean(full), r)
	view.Series = filtered
	view.Preview = series.Head(filtered, p.previewRows)
	view.Summary = series.Summarize(filtered)
	if filtered.Empty() {
		return p.fail(logger, view, emptyRange(desc.Name, view.Start, view.End))
	}
	return view
}

func (p *Pipeline) fail(logger *zap.Logger, view View, m Message) View {
	observability.DashboardMessagesTotal.WithLabelValues(string(m.Kind)).Inc()
	logger.Debug("dashboard message", zap.String("kind", string(m.Kind)), zap.String("level", string(m.Level)))
	view.Messages = append(view.Messages, m)
	if view.Series.Observations == nil {
		view.Series.Observations = []models.Observation{}
	}
	if view.Preview == nil {
		view.Preview = []models.Observation{}
	}
	return view
}
