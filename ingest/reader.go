package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

// xlsMaxCols is the BIFF8 column limit.
const xlsMaxCols = 256

var delimiters = []rune{',', '\t', ';', '|'}

// Read reads a table of readings from r. The format is chosen from the
// extension of name: .xlsx/.xlsm workbooks, legacy .xls workbooks, and
// delimited text for everything else.
func Read(name string, r io.Reader, layout Layout) (Result, error) {
	grid, err := ReadGrid(name, r, layout.Sheet)
	if err != nil {
		return Result{}, err
	}

	return layout.Parse(grid), nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, layout Layout) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, types.ErrUnreadableFile.Wrap(err.Error())
	}
	defer f.Close()

	return Read(filepath.Base(path), f, layout)
}

// ReadGrid returns the cells of a table as rows of strings. For workbooks the
// named sheet is read, or the first sheet when sheet is empty.
func ReadGrid(name string, r io.Reader, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r, sheet)
	case ".xls":
		return readXLS(r, sheet)
	default:
		return readDelimited(r)
	}
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, types.ErrUnreadableFile.Wrapf("xlsx: %s", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, types.ErrUnreadableFile.Wrap("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, types.ErrUnreadableFile.Wrapf("xlsx sheet %s: %s", sheet, err)
	}

	return rows, nil
}

func readXLS(r io.Reader, sheet string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, types.ErrUnreadableFile.Wrapf("xls: %s", err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, types.ErrUnreadableFile.Wrapf("xls: %s", err)
	}
	if wb == nil {
		return nil, types.ErrUnreadableFile.Wrap("xls: no workbook stream")
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s == nil {
			continue
		}
		if sheet == "" || s.Name == sheet {
			ws = s
			break
		}
	}
	if ws == nil {
		return nil, types.ErrUnreadableFile.Wrapf("xls: sheet %q not found", sheet)
	}

	grid := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := xlsRow(ws, i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		grid = append(grid, xlsCells(row))
	}

	return grid, nil
}

// xlsRow returns row i of ws, or nil if the sheet has no cells on that row.
// WorkSheet.Row dereferences the missing row.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// xlsCells reads every column of row up to the last non-empty one. Rows
// without a ROW record report LastCol 0, so the column count is not trusted.
func xlsCells(row *xls.Row) []string {
	cells := make([]string, 0, row.LastCol()+1)
	last := -1
	for j := 0; j < xlsMaxCols; j++ {
		v := row.Col(j)
		if v != "" {
			last = j
		}
		cells = append(cells, v)
	}
	return cells[:last+1]
}

func readDelimited(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, types.ErrUnreadableFile.Wrapf("csv: %s", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, types.ErrUnreadableFile.Wrapf("csv: %s", err)
	}

	return rows, nil
}

// DetectDelimiter guesses the field delimiter of delimited text. Candidates
// reported by the sniffer are accepted only if they are a common delimiter;
// otherwise the common delimiter occurring most often wins, with comma as the
// fallback.
func DetectDelimiter(data []byte) rune {
	for _, candidate := range detector.New().DetectDelimiter(bytes.NewReader(data), '"') {
		for _, d := range delimiters {
			if candidate == string(d) {
				return d
			}
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := bytes.Count(data, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}

	return best
}
