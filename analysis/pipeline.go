package analysis

import (
	"errors"
	"sort"

	errorsmod "cosmossdk.io/errors"
	"github.com/samber/lo"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

// Options defines the analysis settings that do not come from the user on
// every interaction.
type Options struct {
	// Defaults holds the reference gene and control sample used when the
	// user has not picked one and the value is present in the data.
	Defaults types.Params
	Flags    FlagOptions
}

// DefaultOptions returns Options with the default flag thresholds.
func DefaultOptions() Options {
	return Options{Flags: DefaultFlagOptions()}
}

// Report is the complete outcome of one analysis run.
type Report struct {
	// Params are the resolved parameters the run was computed with.
	Params types.Params `json:"params"`

	// Samples lists every observed sample; Targets lists the targets of the
	// selected samples. Both feed the selection dropdowns.
	Samples []string `json:"samples"`
	Targets []string `json:"targets"`

	Flags    []types.ReadingFlag          `json:"flags"`
	Stats    []types.AggregatedStat       `json:"stats"`
	Results  []types.QuantificationResult `json:"results"`
	Warnings []types.Warning              `json:"warnings"`
}

// Run computes the aggregated statistics and the relative quantification of
// readings for the given params. It is a pure function: the interactive shell
// calls it again from scratch whenever readings or params change.
//
// Row, group and target level problems are reported as warnings and never
// abort the run. An error is returned only when params name a reference gene,
// control sample or target that is not in the data.
func Run(readings []types.Reading, params types.Params, opts Options) (Report, error) {
	report := Report{Params: params.Clone()}

	if len(readings) == 0 {
		report.Warnings = append(report.Warnings, noReadingsWarning())
		return report, nil
	}

	report.Flags = FlagReadings(readings, opts.Flags)
	report.Samples = sortedUniq(lo.Map(readings, func(r types.Reading, _ int) string { return r.Sample }))

	selected := selectReadings(readings, params)
	if len(selected) == 0 {
		report.Warnings = append(report.Warnings, noReadingsWarning())
		return report, nil
	}

	stats := Aggregate(selected)
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Sample != stats[j].Sample {
			return stats[i].Sample < stats[j].Sample
		}
		return stats[i].Target < stats[j].Target
	})
	report.Stats = stats
	report.Targets = lo.Uniq(lo.Map(stats, func(s types.AggregatedStat, _ int) string { return s.Target }))
	report.Warnings = append(report.Warnings, replicateWarnings(stats)...)

	resolved, err := resolveParams(params, opts.Defaults, stats, report.Targets)
	if err != nil {
		return report, err
	}
	report.Params = resolved

	results, errs := Quantify(stats, resolved.Targets, resolved.ReferenceGene, resolved.ControlSample)
	report.Results = results
	for _, err := range errs {
		report.Warnings = append(report.Warnings, controlWarning(err, resolved.ControlSample))
	}

	if resolved.ChartTarget != "" && resolved.ChartTarget == resolved.ReferenceGene {
		report.Warnings = append(report.Warnings, types.Warning{
			Kind:    types.WarningReferenceTargetSelected,
			Target:  resolved.ChartTarget,
			Message: "Please select a non-reference target gene.",
		})
	}

	return report, nil
}

// ChartRows returns copies of the results of the chart target. It returns no
// rows when the chart target is the reference gene.
func (r Report) ChartRows() []types.QuantificationResult {
	if r.Params.ChartTarget == "" || r.Params.ChartTarget == r.Params.ReferenceGene {
		return nil
	}
	return r.ResultsFor(r.Params.ChartTarget)
}

// ResultsFor returns copies of the results of a single target.
func (r Report) ResultsFor(target string) []types.QuantificationResult {
	return lo.Filter(r.Results, func(qr types.QuantificationResult, _ int) bool {
		return qr.Target == target
	})
}

// Clone returns a deep copy of the report.
func (r Report) Clone() Report {
	return Report{
		Params:   r.Params.Clone(),
		Samples:  append([]string(nil), r.Samples...),
		Targets:  append([]string(nil), r.Targets...),
		Flags:    append([]types.ReadingFlag(nil), r.Flags...),
		Stats:    append([]types.AggregatedStat(nil), r.Stats...),
		Results:  append([]types.QuantificationResult(nil), r.Results...),
		Warnings: append([]types.Warning(nil), r.Warnings...),
	}
}

// HasWarning returns true if the report carries a warning of the given kind.
func (r Report) HasWarning(kind types.WarningKind) bool {
	return lo.ContainsBy(r.Warnings, func(w types.Warning) bool {
		return w.Kind == kind
	})
}

// selectReadings drops excluded readings and, if a sample selection is given,
// every reading of an unselected sample.
func selectReadings(readings []types.Reading, params types.Params) []types.Reading {
	excluded := lo.SliceToMap(params.Exclude, func(id int) (int, struct{}) {
		return id, struct{}{}
	})
	samples := lo.SliceToMap(params.Samples, func(s string) (string, struct{}) {
		return s, struct{}{}
	})

	return lo.Filter(readings, func(r types.Reading, _ int) bool {
		if _, ok := excluded[r.ID]; ok {
			return false
		}
		if len(samples) > 0 {
			if _, ok := samples[r.Sample]; !ok {
				return false
			}
		}
		return true
	})
}

// resolveParams fills in unset params and validates the rest against the
// observed data. Unset values fall back to the configured defaults, then to
// the first observed target and sample.
func resolveParams(
	params types.Params,
	defaults types.Params,
	stats []types.AggregatedStat,
	targets []string,
) (types.Params, error) {
	resolved := params.Clone()
	samples := lo.Uniq(lo.Map(stats, func(s types.AggregatedStat, _ int) string { return s.Sample }))

	if resolved.ReferenceGene == "" {
		resolved.ReferenceGene = pick(defaults.ReferenceGene, targets)
	}
	if !lo.Contains(targets, resolved.ReferenceGene) {
		return params, errorsmod.Wrapf(types.ErrUnknownReferenceGene, "%s is not an observed target", resolved.ReferenceGene)
	}

	if resolved.ControlSample == "" {
		resolved.ControlSample = pick(defaults.ControlSample, samples)
	}
	if !lo.Contains(samples, resolved.ControlSample) {
		return params, errorsmod.Wrapf(types.ErrUnknownControlSample, "%s is not an observed sample", resolved.ControlSample)
	}

	if len(resolved.Targets) == 0 {
		resolved.Targets = append([]string(nil), targets...)
	}
	for _, target := range resolved.Targets {
		if !lo.Contains(targets, target) {
			return params, errorsmod.Wrapf(types.ErrUnknownTarget, "%s is not an observed target", target)
		}
	}

	if resolved.ChartTarget == "" {
		resolved.ChartTarget, _ = lo.Find(resolved.Targets, func(t string) bool {
			return t != resolved.ReferenceGene
		})
	} else if !lo.Contains(targets, resolved.ChartTarget) {
		return params, errorsmod.Wrapf(types.ErrUnknownTarget, "chart target %s is not an observed target", resolved.ChartTarget)
	}

	return resolved, nil
}

// pick returns preferred if it is one of options, otherwise the first option.
func pick(preferred string, options []string) string {
	if preferred != "" && lo.Contains(options, preferred) {
		return preferred
	}
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

func replicateWarnings(stats []types.AggregatedStat) []types.Warning {
	var warnings []types.Warning
	for _, s := range stats {
		if s.Std.Valid {
			continue
		}
		err := errorsmod.Wrapf(types.ErrInsufficientReplicates, "%s has %d replicate(s), standard deviation undefined", s.Key(), s.N)
		warnings = append(warnings, types.Warning{
			Kind:    types.WarningInsufficientReplicates,
			Sample:  s.Sample,
			Target:  s.Target,
			Message: err.Error(),
		})
	}
	return warnings
}

func controlWarning(err error, controlSample string) types.Warning {
	w := types.Warning{
		Kind:    types.WarningMissingControlData,
		Sample:  controlSample,
		Message: err.Error(),
	}
	var targetErr *TargetError
	if errors.As(err, &targetErr) {
		w.Target = targetErr.Target
	}
	return w
}

func noReadingsWarning() types.Warning {
	return types.Warning{
		Kind:    types.WarningNoReadings,
		Message: types.ErrNoReadings.Error(),
	}
}

func sortedUniq(values []string) []string {
	uniq := lo.Uniq(values)
	sort.Strings(uniq)
	return uniq
}
