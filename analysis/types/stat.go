package types

import (
	"gopkg.in/guregu/null.v3"
)

// AggregatedStat defines the replicate statistics of one (sample, target)
// group. Std is the sample standard deviation (divisor n-1) and is null when
// fewer than two replicates remain; it is never coerced to zero.
type AggregatedStat struct {
	Sample string     `json:"sample"`
	Target string     `json:"target"`
	N      int        `json:"n"`
	Mean   float64    `json:"mean"`
	Std    null.Float `json:"std"`
	CV     null.Float `json:"cv"`
}

// Key returns the group key of the statistic.
func (s AggregatedStat) Key() GroupKey {
	return GroupKey{Sample: s.Sample, Target: s.Target}
}

// QuantificationResult defines the relative quantification of one sample for
// one non-reference target. CombinedError, RQMin and RQMax are null whenever
// either side of the join has no standard deviation.
type QuantificationResult struct {
	Sample               string     `json:"sample"`
	Target               string     `json:"target"`
	DCt                  float64    `json:"dct"`
	DDCt                 float64    `json:"ddct"`
	NormalizedExpression float64    `json:"normalized_expression"`
	CombinedError        null.Float `json:"combined_error"`
	RQMin                null.Float `json:"rq_min"`
	RQMax                null.Float `json:"rq_max"`
}

// HasBounds returns true if both error bar magnitudes are known.
func (r QuantificationResult) HasBounds() bool {
	return r.RQMin.Valid && r.RQMax.Valid
}
