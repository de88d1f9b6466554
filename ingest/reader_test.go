package ingest_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/ingest"
)

const plateCSV = `Well,Sample Name,Target Name,CT
A1,S1,Ref,15.0
A2,S1,Ref,15.2

A3,S1,GeneA,20.0
A4,S1,GeneA,20.2
B1,S2,Ref,15.0
B2,S2,GeneA,18.0
B3,S2,GeneA,Undetermined
`

func TestReadHeaderDetected(t *testing.T) {
	result, err := ingest.Read("plate.csv", strings.NewReader(plateCSV), ingest.DefaultLayout())
	require.NoError(t, err)

	require.Equal(t, 7, result.Total)
	require.Equal(t, 6, result.Success)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Readings, 6)

	require.Equal(t, types.Reading{ID: 2, Sample: "S1", Target: "Ref", Ct: 15.0}, result.Readings[0])
	require.Equal(t, types.Reading{ID: 4, Sample: "S1", Target: "GeneA", Ct: 20.0}, result.Readings[2])

	require.Len(t, result.Malformed, 1)
	warning := result.Malformed[0]
	require.Equal(t, types.WarningMalformedReading, warning.Kind)
	// blank lines are not counted as table rows
	require.Equal(t, 8, warning.Row)
	require.Equal(t, "S2", warning.Sample)
	require.Equal(t, "GeneA", warning.Target)
}

func TestReadFixedLayout(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 7; i++ {
		b.WriteString("* Run Info,value\n")
	}
	b.WriteString("Well,Smp,Tgt,c3,c4,c5,c6,c7,c8,Threshold Cycle\n")
	b.WriteString("1,S1,Ref,,,,,,,15.5\n")
	b.WriteString("2,S1,GeneA,,,,,,,21.25\n")

	result, err := ingest.Read("export.txt", strings.NewReader(b.String()), ingest.DefaultLayout())
	require.NoError(t, err)
	require.Equal(t, []types.Reading{
		{ID: 9, Sample: "S1", Target: "Ref", Ct: 15.5},
		{ID: 10, Sample: "S1", Target: "GeneA", Ct: 21.25},
	}, result.Readings)
}

func TestReadTabDelimited(t *testing.T) {
	data := "Sample\tTarget\tCq\nS1\tRef\t15\nS1\tGeneA\t20.5\n"

	result, err := ingest.Read("plate.tsv", strings.NewReader(data), ingest.DefaultLayout())
	require.NoError(t, err)
	require.Len(t, result.Readings, 2)
	require.Equal(t, 20.5, result.Readings[1].Ct)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Well", "Sample Name", "Target Name", "CT"},
		{"A1", "S1", "Ref", 15.0},
		{"A2", "S1", "GeneA", 20.125},
		{"A3", "S2", "GeneA", "Undetermined"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	result, err := ingest.Read("plate.xlsx", bytes.NewReader(buf.Bytes()), ingest.DefaultLayout())
	require.NoError(t, err)
	require.Equal(t, []types.Reading{
		{ID: 2, Sample: "S1", Target: "Ref", Ct: 15.0},
		{ID: 3, Sample: "S1", Target: "GeneA", Ct: 20.125},
	}, result.Readings)
	require.Equal(t, 1, result.Failed)

	layout := ingest.DefaultLayout()
	layout.Sheet = "Missing"
	_, err = ingest.Read("plate.xlsx", bytes.NewReader(buf.Bytes()), layout)
	require.ErrorIs(t, err, types.ErrUnreadableFile)
}

func TestReadXLS(t *testing.T) {
	// row 3 is empty and row 6 has cells but no ROW record
	result, err := ingest.ReadFile("testdata/plate.xls", ingest.DefaultLayout())
	require.NoError(t, err)
	require.Equal(t, []types.Reading{
		{ID: 2, Sample: "S1", Target: "Ref", Ct: 15.25},
		{ID: 4, Sample: "S1", Target: "GeneA", Ct: 20.5},
		{ID: 6, Sample: "S2", Target: "Ref", Ct: 16},
	}, result.Readings)
	require.Equal(t, 4, result.Total)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Malformed, 1)
	require.Equal(t, 5, result.Malformed[0].Row)
	require.Equal(t, "GeneA", result.Malformed[0].Target)

	layout := ingest.DefaultLayout()
	layout.Sheet = "Plate"
	named, err := ingest.ReadFile("testdata/plate.xls", layout)
	require.NoError(t, err)
	require.Equal(t, result.Readings, named.Readings)

	layout.Sheet = "Missing"
	_, err = ingest.ReadFile("testdata/plate.xls", layout)
	require.ErrorIs(t, err, types.ErrUnreadableFile)
}

func TestReadUnreadable(t *testing.T) {
	_, err := ingest.Read("plate.xlsx", strings.NewReader("not a workbook"), ingest.DefaultLayout())
	require.ErrorIs(t, err, types.ErrUnreadableFile)

	_, err = ingest.Read("plate.xls", strings.NewReader("not a workbook"), ingest.DefaultLayout())
	require.ErrorIs(t, err, types.ErrUnreadableFile)

	_, err = ingest.ReadFile("/nonexistent/plate.csv", ingest.DefaultLayout())
	require.ErrorIs(t, err, types.ErrUnreadableFile)
}

func TestDetectDelimiter(t *testing.T) {
	testCases := []struct {
		name     string
		data     string
		expected rune
	}{
		{"comma", "a,b,c\n1,2,3\n4,5,6\n", ','},
		{"tab", "a\tb\tc\n1\t2\t3\n4\t5\t6\n", '\t'},
		{"semicolon", "a;b;c\n1;2;3\n4;5;6\n", ';'},
		{"single column", "a\n1\n2\n", ','},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, ingest.DetectDelimiter([]byte(tc.data)))
		})
	}
}

func TestLayoutResolve(t *testing.T) {
	grid := [][]string{
		{"Experiment", "plate-1"},
		{"", "Detector", "Sample", "Cq"},
	}

	resolved := ingest.DefaultLayout().Resolve(grid)
	require.Equal(t, 1, resolved.HeaderRow)
	require.Equal(t, 2, resolved.SampleColumn)
	require.Equal(t, 1, resolved.TargetColumn)
	require.Equal(t, 3, resolved.CtColumn)

	layout := ingest.DefaultLayout()
	layout.HeaderSearchRows = 1
	require.Equal(t, layout, layout.Resolve(grid))
}

func TestLayoutResolveCtAliases(t *testing.T) {
	for _, header := range []string{"CT", "Cq", "Ct Value", "CQ  value", "C_T", "\ufeffCt"} {
		t.Run(header, func(t *testing.T) {
			grid := [][]string{{"Sample", "Target", header}}
			resolved := ingest.DefaultLayout().Resolve(grid)
			require.Equal(t, 0, resolved.HeaderRow)
			require.Equal(t, 2, resolved.CtColumn)
		})
	}

	grid := [][]string{{"Sample", "Target", "Threshold"}}
	require.Equal(t, ingest.DefaultLayout(), ingest.DefaultLayout().Resolve(grid))
}
