package analysis

import (
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

// JoinedRow pairs the statistics of a target and of the reference gene for
// the same sample.
type JoinedRow struct {
	Sample    string
	Target    types.AggregatedStat
	Reference types.AggregatedStat
}

// DCt returns the target mean minus the reference mean.
func (jr JoinedRow) DCt() float64 {
	return jr.Target.Mean - jr.Reference.Mean
}

// JoinBySample inner joins target rows with reference rows on the sample
// identifier. Rows come out in target-row order. Samples present on only one
// side are dropped; a sample repeated on the reference side joins its first
// occurrence.
func JoinBySample(target, reference []types.AggregatedStat) []JoinedRow {
	referenceBySample := make(map[string]types.AggregatedStat, len(reference))
	for _, ref := range reference {
		if _, ok := referenceBySample[ref.Sample]; !ok {
			referenceBySample[ref.Sample] = ref
		}
	}

	joined := make([]JoinedRow, 0, len(target))
	for _, t := range target {
		ref, ok := referenceBySample[t.Sample]
		if !ok {
			continue
		}
		joined = append(joined, JoinedRow{
			Sample:    t.Sample,
			Target:    t,
			Reference: ref,
		})
	}

	return joined
}
