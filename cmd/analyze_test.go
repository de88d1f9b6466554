package cmd_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/cmd"
)

const plateCSV = `Sample Name,Target Name,CT
S1,GeneA,20
S1,GeneA,21
S1,Ref,15
S1,Ref,15
S2,GeneA,22
S2,GeneA,22
S2,Ref,15
S2,Ref,16
`

func writePlate(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "plate.csv")
	require.NoError(t, os.WriteFile(path, []byte(plateCSV), 0o600))
	return dir, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))

	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeResults(t *testing.T) {
	dir, path := writePlate(t)

	out, err := execute(t, "analyze", path,
		"--reference-gene", "Ref",
		"--control-sample", "S1",
		"--format", "json",
		"--chart-out", dir,
	)
	require.NoError(t, err)

	var results []types.QuantificationResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.Equal(t, "S2", results[1].Sample)
	require.InDelta(t, 0.5, results[1].NormalizedExpression, 1e-9)

	info, err := os.Stat(filepath.Join(dir, "GeneA.pdf"))
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestAnalyzeStatsTable(t *testing.T) {
	_, path := writePlate(t)

	out, err := execute(t, "analyze", path, "--reference-gene", "Ref", "--table", "stats", "--exclude", "9")
	require.NoError(t, err)
	require.Contains(t, out, "sample,target,n,mean,std,cv")
	require.Contains(t, out, "S2,Ref,1,15,,")
}

func TestAnalyzeErrors(t *testing.T) {
	dir, path := writePlate(t)

	testCases := map[string][]string{
		"unknown reference gene": {"analyze", path, "--reference-gene", "GeneZ"},
		"reference chart target": {"analyze", path, "--reference-gene", "Ref", "--chart-target", "Ref", "--chart-out", dir},
		"invalid table":          {"analyze", path, "--table", "flags"},
		"invalid format":         {"analyze", path, "--format", "xml"},
		"missing file":           {"analyze", filepath.Join(dir, "missing.csv")},
	}

	for name, args := range testCases {
		args := args
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			require.Error(t, err)
		})
	}
}

func TestAnalyzeEmptyChartLeavesNoFile(t *testing.T) {
	dir, path := writePlate(t)
	chart := filepath.Join(dir, "GeneA.png")

	// without the S1 GeneA replicates the control has no GeneA data to chart
	_, err := execute(t, "analyze", path,
		"--reference-gene", "Ref",
		"--control-sample", "S1",
		"--exclude", "2,3",
		"--chart-out", chart,
	)
	require.ErrorIs(t, err, types.ErrEmptyChart)

	_, err = os.Stat(chart)
	require.True(t, os.IsNotExist(err), "unexpected chart file: %v", err)
}
