package analysis

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

const (
	defaultMinCt              = 0.0
	defaultMaxCt              = 40.0
	defaultReplicateTolerance = 0.5

	// minFlagReplicates is the smallest group for which a median is a
	// meaningful reference point.
	minFlagReplicates = 3
)

// FlagOptions defines the thresholds used during outlier review.
type FlagOptions struct {
	MinCt              float64
	MaxCt              float64
	ReplicateTolerance float64
}

// DefaultFlagOptions returns the thresholds used when none are configured.
func DefaultFlagOptions() FlagOptions {
	return FlagOptions{
		MinCt:              defaultMinCt,
		MaxCt:              defaultMaxCt,
		ReplicateTolerance: defaultReplicateTolerance,
	}
}

// FlagReadings marks readings for outlier review without removing any of
// them. A reading is flagged when its Ct lies outside [MinCt, MaxCt], or when
// it is further than ReplicateTolerance cycles from the median of a group of
// at least three replicates.
func FlagReadings(readings []types.Reading, opts FlagOptions) []types.ReadingFlag {
	var flags []types.ReadingFlag

	medians := make(map[types.GroupKey]float64)
	for key, group := range lo.GroupBy(readings, func(r types.Reading) types.GroupKey { return r.Key() }) {
		if len(group) < minFlagReplicates {
			continue
		}
		cts := lo.Map(group, func(r types.Reading, _ int) float64 { return r.Ct })
		median, err := stats.Median(cts)
		if err != nil {
			continue
		}
		medians[key] = median
	}

	for _, r := range readings {
		if r.Ct < opts.MinCt || r.Ct > opts.MaxCt {
			flags = append(flags, newFlag(r, types.FlagCtOutOfRange))
		}

		median, ok := medians[r.Key()]
		if ok && math.Abs(r.Ct-median) > opts.ReplicateTolerance {
			flags = append(flags, newFlag(r, types.FlagReplicateDeviation))
		}
	}

	return flags
}

func newFlag(r types.Reading, reason types.FlagReason) types.ReadingFlag {
	return types.ReadingFlag{
		ReadingID: r.ID,
		Sample:    r.Sample,
		Target:    r.Target,
		Ct:        r.Ct,
		Reason:    reason,
	}
}
