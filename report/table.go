package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

// optFloat renders an optional value as an empty CSV cell or a YAML null.
type optFloat struct {
	null.Float
}

func (f optFloat) MarshalCSV() (string, error) {
	if !f.Valid {
		return "", nil
	}
	return strconv.FormatFloat(f.Float64, 'g', -1, 64), nil
}

func (f optFloat) MarshalYAML() (interface{}, error) {
	if !f.Valid {
		return nil, nil
	}
	return f.Float64, nil
}

type statRow struct {
	Sample string   `csv:"sample" yaml:"sample"`
	Target string   `csv:"target" yaml:"target"`
	N      int      `csv:"n" yaml:"n"`
	Mean   float64  `csv:"mean" yaml:"mean"`
	Std    optFloat `csv:"std" yaml:"std"`
	CV     optFloat `csv:"cv" yaml:"cv"`
}

type resultRow struct {
	Sample               string   `csv:"sample" yaml:"sample"`
	Target               string   `csv:"target" yaml:"target"`
	DCt                  float64  `csv:"dct" yaml:"dct"`
	DDCt                 float64  `csv:"ddct" yaml:"ddct"`
	NormalizedExpression float64  `csv:"normalized_expression" yaml:"normalized_expression"`
	CombinedError        optFloat `csv:"combined_error" yaml:"combined_error"`
	RQMin                optFloat `csv:"rq_min" yaml:"rq_min"`
	RQMax                optFloat `csv:"rq_max" yaml:"rq_max"`
}

func newStatRows(stats []types.AggregatedStat) []*statRow {
	rows := make([]*statRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, &statRow{
			Sample: s.Sample,
			Target: s.Target,
			N:      s.N,
			Mean:   s.Mean,
			Std:    optFloat{s.Std},
			CV:     optFloat{s.CV},
		})
	}
	return rows
}

func newResultRows(results []types.QuantificationResult) []*resultRow {
	rows := make([]*resultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, &resultRow{
			Sample:               r.Sample,
			Target:               r.Target,
			DCt:                  r.DCt,
			DDCt:                 r.DDCt,
			NormalizedExpression: r.NormalizedExpression,
			CombinedError:        optFloat{r.CombinedError},
			RQMin:                optFloat{r.RQMin},
			RQMax:                optFloat{r.RQMax},
		})
	}
	return rows
}

// WriteStats writes the replicate statistics table in the given format.
func WriteStats(w io.Writer, format Format, stats []types.AggregatedStat) error {
	if format == FormatJSON {
		return writeJSON(w, stats)
	}
	return writeRows(w, format, newStatRows(stats))
}

// WriteResults writes the quantification table in the given format.
func WriteResults(w io.Writer, format Format, results []types.QuantificationResult) error {
	if format == FormatJSON {
		return writeJSON(w, results)
	}
	return writeRows(w, format, newResultRows(results))
}

func writeRows(w io.Writer, format Format, rows interface{}) error {
	switch format {
	case FormatCSV:
		if err := gocsv.Marshal(rows, w); err != nil {
			return fmt.Errorf("failed to write csv table: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to write yaml table: %w", err)
		}
		return enc.Close()

	default:
		return types.ErrUnsupportedFormat.Wrapf("table format %q", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write json table: %w", err)
	}
	return nil
}
