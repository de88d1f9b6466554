package ingest

import (
	"strings"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

const (
	utf8BOM = "\ufeff"

	// The instrument export the tool was built around carries a metadata
	// preamble; its header is the eighth line and Sample Name, Target Name
	// and CT are the 2nd, 3rd and 10th columns.
	defaultHeaderRow        = 7
	defaultSampleColumn     = 1
	defaultTargetColumn     = 2
	defaultCtColumn         = 9
	defaultHeaderSearchRows = 50
)

var (
	sampleHeaders = map[string]struct{}{
		"sample": {}, "sample name": {}, "samplename": {}, "sample_name": {},
	}
	targetHeaders = map[string]struct{}{
		"target": {}, "target name": {}, "targetname": {}, "target_name": {}, "detector": {}, "gene": {},
	}
	ctHeaders = map[string]struct{}{
		"ct": {}, "cq": {}, "ct value": {}, "cq value": {}, "c_t": {},
	}
)

// Layout defines where readings are found in a table. Columns are located by
// header name when a recognizable header row appears within the first
// HeaderSearchRows rows; otherwise the fixed HeaderRow and column indices are
// used. Rows and columns are zero based.
type Layout struct {
	HeaderRow        int
	SampleColumn     int
	TargetColumn     int
	CtColumn         int
	HeaderSearchRows int
	Sheet            string
}

// DefaultLayout returns the layout of a preamble-prefixed instrument export.
func DefaultLayout() Layout {
	return Layout{
		HeaderRow:        defaultHeaderRow,
		SampleColumn:     defaultSampleColumn,
		TargetColumn:     defaultTargetColumn,
		CtColumn:         defaultCtColumn,
		HeaderSearchRows: defaultHeaderSearchRows,
	}
}

// Result defines the outcome of reading a table into readings. Malformed rows
// are excluded from Readings and reported one warning per row.
type Result struct {
	Readings  []types.Reading `json:"readings"`
	Malformed []types.Warning `json:"malformed"`
	Total     int             `json:"total"`
	Success   int             `json:"success"`
	Failed    int             `json:"failed"`
}

// Resolve returns the effective layout for grid: the header-detected columns
// if a header row is found, l itself otherwise.
func (l Layout) Resolve(grid [][]string) Layout {
	limit := l.HeaderSearchRows
	if limit > len(grid) {
		limit = len(grid)
	}

	for i := 0; i < limit; i++ {
		sample, target, ct := -1, -1, -1
		for j, cell := range grid[i] {
			name := normalizeHeader(cell)
			if _, ok := sampleHeaders[name]; ok && sample < 0 {
				sample = j
			}
			if _, ok := targetHeaders[name]; ok && target < 0 {
				target = j
			}
			if _, ok := ctHeaders[name]; ok && ct < 0 {
				ct = j
			}
		}
		if sample >= 0 && target >= 0 && ct >= 0 {
			resolved := l
			resolved.HeaderRow = i
			resolved.SampleColumn = sample
			resolved.TargetColumn = target
			resolved.CtColumn = ct
			return resolved
		}
	}

	return l
}

// Parse converts the data rows of grid into readings. Blank rows are skipped;
// rows whose Ct is not a finite non-negative number are reported as
// malformed. Reading IDs are the 1-based row numbers of the source table.
func (l Layout) Parse(grid [][]string) Result {
	layout := l.Resolve(grid)
	result := Result{}

	for i := layout.HeaderRow + 1; i < len(grid); i++ {
		row := grid[i]
		sample := cell(row, layout.SampleColumn)
		target := cell(row, layout.TargetColumn)
		ct := cell(row, layout.CtColumn)

		if sample == "" && target == "" && ct == "" {
			continue
		}

		result.Total++
		reading, err := types.NewReading(i+1, sample, target, ct)
		if err != nil {
			result.Failed++
			result.Malformed = append(result.Malformed, types.Warning{
				Kind:    types.WarningMalformedReading,
				Sample:  sample,
				Target:  target,
				Row:     i + 1,
				Message: err.Error(),
			})
			continue
		}

		result.Readings = append(result.Readings, reading)
		result.Success++
	}

	return result
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimPrefix(h, utf8BOM))), " ")
}
