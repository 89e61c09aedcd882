package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

// ErrUnsupportedFormat is returned by NewExporter for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter writes a series in one file format. Missing values stay missing in every format.
type Exporter interface {
	Write(w io.Writer, s models.ObservationSeries) error
	Extension() string
	ContentType() string
}

// NewExporter returns the exporter for format (csv, json, parquet). Empty means csv.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return CSVExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "parquet":
		return ParquetExporter{}, nil
	}
	return nil, fmt.Errorf("%w %q (use csv, json, parquet)", ErrUnsupportedFormat, format)
}

// Filename builds the download name for a series and range, e.g. UNRATE_2020-01-01_2020-12-31.csv.
func Filename(e Exporter, seriesID string, r models.DateRange) string {
	name := seriesID
	if !r.Start.IsZero() {
		name += "_" + r.Start.Format(models.DateLayout)
	}
	if !r.End.IsZero() {
		name += "_" + r.End.Format(models.DateLayout)
	}
	return name + "." + e.Extension()
}

// CSVExporter writes "date,value" rows. A missing value is an empty field.
type CSVExporter struct{}

func (CSVExporter) Extension() string   { return "csv" }
func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVExporter) Write(w io.Writer, s models.ObservationSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, o := range s.Observations {
		v := ""
		if o.Value.Valid {
			v = strconv.FormatFloat(o.Value.Float64, 'f', -1, 64)
		}
		if err := cw.Write([]string{o.Date.Format(models.DateLayout), v}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONExporter writes the series object with null for missing values.
type JSONExporter struct{}

func (JSONExporter) Extension() string   { return "json" }
func (JSONExporter) ContentType() string { return "application/json" }

func (JSONExporter) Write(w io.Writer, s models.ObservationSeries) error {
	if s.Observations == nil {
		s.Observations = []models.Observation{}
	}
	return json.NewEncoder(w).Encode(s)
}

// ParquetRow is the Parquet schema: one row per observation, value optional.
type ParquetRow struct {
	SeriesID string   `parquet:"series_id"`
	Date     string   `parquet:"date"`
	Value    *float64 `parquet:"value,optional"`
}

// ParquetExporter writes a single Parquet file.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string   { return "parquet" }
func (ParquetExporter) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetExporter) Write(w io.Writer, s models.ObservationSeries) error {
	rows := make([]ParquetRow, len(s.Observations))
	for i, o := range s.Observations {
		rows[i] = ParquetRow{SeriesID: s.SeriesID, Date: o.Date.Format(models.DateLayout), Value: o.Value.Ptr()}
	}
	return parquet.Write(w, rows)
}
