package report

import (
	"path/filepath"
	"strings"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

// Format defines the encoding of an exported table.
type Format string

// ChartFormat defines the encoding of a rendered chart.
type ChartFormat string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"

	ChartPNG ChartFormat = "png"
	ChartSVG ChartFormat = "svg"
	ChartPDF ChartFormat = "pdf"
)

// ParseFormat returns the table format named by s. An empty string selects
// CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case "yml":
		return FormatYAML, nil
	case FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", types.ErrUnsupportedFormat.Wrapf("table format %q", s)
	}
}

// ContentType returns the MIME type of the table format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/csv"
	}
}

// ParseChartFormat returns the chart format named by s. An empty string
// selects PNG.
func ParseChartFormat(s string) (ChartFormat, error) {
	switch f := ChartFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ChartPNG, nil
	case ChartPNG, ChartSVG, ChartPDF:
		return f, nil
	default:
		return "", types.ErrUnsupportedFormat.Wrapf("chart format %q", s)
	}
}

// ChartFormatFromPath returns the chart format implied by the extension of
// path.
func ChartFormatFromPath(path string) (ChartFormat, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", types.ErrUnsupportedFormat.Wrapf("chart file %s has no extension", path)
	}
	return ParseChartFormat(ext)
}

// ContentType returns the MIME type of the chart format.
func (f ChartFormat) ContentType() string {
	switch f {
	case ChartSVG:
		return "image/svg+xml"
	case ChartPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// ChartFileName returns the download name of a chart of target.
func ChartFileName(target string, format ChartFormat) string {
	return target + "." + string(format)
}
