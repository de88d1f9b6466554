package analysis

import (
	"github.com/samber/lo"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/util"
)

// Aggregate groups readings by exact (sample, target) pair and reduces each
// group to its mean and sample standard deviation. Groups are returned in the
// order of their first reading, so a fixed input order always yields the same
// output. A group with a single reading has a null standard deviation.
func Aggregate(readings []types.Reading) []types.AggregatedStat {
	groups := lo.GroupBy(readings, func(r types.Reading) types.GroupKey {
		return r.Key()
	})
	keys := lo.Uniq(lo.Map(readings, func(r types.Reading, _ int) types.GroupKey {
		return r.Key()
	}))

	stats := make([]types.AggregatedStat, 0, len(keys))
	for _, key := range keys {
		cts := lo.Map(groups[key], func(r types.Reading, _ int) float64 {
			return r.Ct
		})

		mean, std := util.CalcMeanStdDev(cts)
		stats = append(stats, types.AggregatedStat{
			Sample: key.Sample,
			Target: key.Target,
			N:      len(cts),
			Mean:   mean,
			Std:    std,
			CV:     util.CalcCoeficientOfVariation(mean, std),
		})
	}

	return stats
}
