package analysis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qpcr-lab/rq-analyzer/analysis"
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

func TestRunExample(t *testing.T) {
	report, err := analysis.Run(exampleReadings(), types.Params{
		ReferenceGene: ref,
		ControlSample: "S1",
	}, analysis.DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, []string{"S1", "S2"}, report.Samples)
	require.Equal(t, []string{geneA, ref}, report.Targets)
	require.Len(t, report.Stats, 4)
	require.Empty(t, report.Warnings)

	require.Equal(t, geneA, report.Params.ChartTarget)
	require.Equal(t, []string{geneA, ref}, report.Params.Targets)

	rows := report.ChartRows()
	require.Len(t, rows, 2)
	require.Equal(t, 1.0, rows[0].NormalizedExpression)
	require.InDelta(t, 0.5, rows[1].NormalizedExpression, 1e-12)
}

func TestRunDefaults(t *testing.T) {
	testCases := map[string]struct {
		opts          analysis.Options
		referenceGene string
		controlSample string
	}{
		"first observed values": {
			opts:          analysis.DefaultOptions(),
			referenceGene: geneA,
			controlSample: "S1",
		},
		"configured defaults": {
			opts: analysis.Options{
				Defaults: types.Params{ReferenceGene: ref, ControlSample: "S2"},
				Flags:    analysis.DefaultFlagOptions(),
			},
			referenceGene: ref,
			controlSample: "S2",
		},
		"configured defaults not in data": {
			opts: analysis.Options{
				Defaults: types.Params{ReferenceGene: "ACTB", ControlSample: "WT"},
				Flags:    analysis.DefaultFlagOptions(),
			},
			referenceGene: geneA,
			controlSample: "S1",
		},
	}

	for name, tc := range testCases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			report, err := analysis.Run(exampleReadings(), types.Params{}, tc.opts)
			require.NoError(t, err)
			require.Equal(t, tc.referenceGene, report.Params.ReferenceGene)
			require.Equal(t, tc.controlSample, report.Params.ControlSample)
		})
	}
}

func TestRunInvalidParams(t *testing.T) {
	testCases := map[string]struct {
		params   types.Params
		expected error
	}{
		"unknown reference gene": {
			params:   types.Params{ReferenceGene: "ACTB", ControlSample: "S1"},
			expected: types.ErrUnknownReferenceGene,
		},
		"unknown control sample": {
			params:   types.Params{ReferenceGene: ref, ControlSample: "S9"},
			expected: types.ErrUnknownControlSample,
		},
		"unknown target": {
			params:   types.Params{ReferenceGene: ref, ControlSample: "S1", Targets: []string{"GeneZ"}},
			expected: types.ErrUnknownTarget,
		},
		"unknown chart target": {
			params:   types.Params{ReferenceGene: ref, ControlSample: "S1", ChartTarget: "GeneZ"},
			expected: types.ErrUnknownTarget,
		},
		"control sample deselected": {
			params:   types.Params{ReferenceGene: ref, ControlSample: "S1", Samples: []string{"S2"}},
			expected: types.ErrUnknownControlSample,
		},
	}

	for name, tc := range testCases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			report, err := analysis.Run(exampleReadings(), tc.params, analysis.DefaultOptions())
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expected), "unexpected error %v", err)
			require.Empty(t, report.Results)
			require.NotEmpty(t, report.Stats, "the stat table is still available for review")
		})
	}
}

func TestRunNoReadings(t *testing.T) {
	report, err := analysis.Run(nil, types.Params{ReferenceGene: ref}, analysis.DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, report.Stats)
	require.Empty(t, report.Results)
	require.True(t, report.HasWarning(types.WarningNoReadings))

	report, err = analysis.Run(exampleReadings(), types.Params{Samples: []string{"S9"}}, analysis.DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, report.Stats)
	require.True(t, report.HasWarning(types.WarningNoReadings))
}

func TestRunExclusionsRecompute(t *testing.T) {
	params := types.Params{ReferenceGene: ref, ControlSample: "S1"}

	// dropping one S2 reference replicate leaves a single-replicate group
	report, err := analysis.Run(exampleReadings(), types.Params{
		ReferenceGene: ref,
		ControlSample: "S1",
		Exclude:       []int{8},
	}, analysis.DefaultOptions())
	require.NoError(t, err)
	require.True(t, report.HasWarning(types.WarningInsufficientReplicates))

	rows := report.ResultsFor(geneA)
	require.Len(t, rows, 2)
	require.InDelta(t, 7.0, rows[1].DCt, 1e-12)
	require.False(t, rows[1].HasBounds())

	full, err := analysis.Run(exampleReadings(), params, analysis.DefaultOptions())
	require.NoError(t, err)
	require.True(t, full.ResultsFor(geneA)[1].HasBounds(), "every run starts from the full reading set")
}

func TestRunMissingControlWarning(t *testing.T) {
	readings := append(exampleReadings(),
		types.Reading{ID: 9, Sample: "S2", Target: geneB, Ct: 28},
		types.Reading{ID: 10, Sample: "S2", Target: geneB, Ct: 28.2},
	)

	report, err := analysis.Run(readings, types.Params{ReferenceGene: ref, ControlSample: "S1"}, analysis.DefaultOptions())
	require.NoError(t, err)
	require.True(t, report.HasWarning(types.WarningMissingControlData))
	require.Empty(t, report.ResultsFor(geneB))
	require.Len(t, report.ResultsFor(geneA), 2, "other targets proceed")

	for _, w := range report.Warnings {
		if w.Kind == types.WarningMissingControlData {
			require.Equal(t, geneB, w.Target)
			require.Equal(t, "S1", w.Sample)
		}
	}
}

func TestRunReferenceChartTarget(t *testing.T) {
	report, err := analysis.Run(exampleReadings(), types.Params{
		ReferenceGene: ref,
		ControlSample: "S1",
		ChartTarget:   ref,
	}, analysis.DefaultOptions())
	require.NoError(t, err)
	require.True(t, report.HasWarning(types.WarningReferenceTargetSelected))
	require.Empty(t, report.ChartRows())
	require.Len(t, report.Results, 2, "the computation itself is unaffected")
}

func TestReportCloneIsIndependent(t *testing.T) {
	report, err := analysis.Run(exampleReadings(), types.Params{ReferenceGene: ref, ControlSample: "S1"}, analysis.DefaultOptions())
	require.NoError(t, err)

	clone := report.Clone()
	clone.Results[0].NormalizedExpression = 42
	clone.Stats[0].Mean = 42

	require.Equal(t, 1.0, report.Results[0].NormalizedExpression)
	require.Equal(t, 20.5, report.Stats[0].Mean)
}
