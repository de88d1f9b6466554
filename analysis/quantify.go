package analysis

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	"github.com/samber/lo"
	"gopkg.in/guregu/null.v3"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

// Quantify computes the relative expression of every target against the
// reference gene, normalized to the control sample.
//
// The reference gene is skipped if present in targets. A target for which the
// control sample has no joined row fails as a whole with ErrMissingControlData;
// its *TargetError is returned and the remaining targets are still quantified.
//
// Ref: Livak & Schmittgen (2001), doi:10.1006/meth.2001.1262
func Quantify(
	stats []types.AggregatedStat,
	targets []string,
	referenceGene string,
	controlSample string,
) ([]types.QuantificationResult, []error) {
	var (
		results []types.QuantificationResult
		errs    []error
	)

	referenceRows := rowsForTarget(stats, referenceGene)

	for _, target := range lo.Uniq(targets) {
		if target == referenceGene {
			continue
		}

		rows, err := quantifyTarget(rowsForTarget(stats, target), referenceRows, target, controlSample)
		if err != nil {
			errs = append(errs, &TargetError{Target: target, Err: err})
			continue
		}
		results = append(results, rows...)
	}

	return results, errs
}

// TargetError reports the failure of a single target during quantification.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return e.Err.Error()
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

func quantifyTarget(
	targetRows []types.AggregatedStat,
	referenceRows []types.AggregatedStat,
	target string,
	controlSample string,
) ([]types.QuantificationResult, error) {
	joined := JoinBySample(targetRows, referenceRows)

	control, ok := lo.Find(joined, func(jr JoinedRow) bool {
		return jr.Sample == controlSample
	})
	if !ok {
		return nil, errorsmod.Wrapf(
			types.ErrMissingControlData,
			"target %s has no data for control sample %s",
			target,
			controlSample,
		)
	}
	controlDCt := control.DCt()

	results := make([]types.QuantificationResult, 0, len(joined))
	for _, jr := range joined {
		dCt := jr.DCt()
		ddCt := dCt - controlDCt
		combined := CombinedError(jr.Target.Std, jr.Reference.Std)
		norm, rqMin, rqMax := ExpressionBounds(ddCt, combined)

		results = append(results, types.QuantificationResult{
			Sample:               jr.Sample,
			Target:               target,
			DCt:                  dCt,
			DDCt:                 ddCt,
			NormalizedExpression: norm,
			CombinedError:        combined,
			RQMin:                rqMin,
			RQMax:                rqMax,
		})
	}

	return results, nil
}

// CombinedError propagates the target and reference deviations as
// sqrt(ref² + target²). It is null if either deviation is null.
func CombinedError(targetStd, referenceStd null.Float) null.Float {
	if !targetStd.Valid || !referenceStd.Valid {
		return null.Float{}
	}
	return null.FloatFrom(math.Sqrt(
		referenceStd.Float64*referenceStd.Float64 + targetStd.Float64*targetStd.Float64,
	))
}

// ExpressionBounds returns the normalized expression 2^-ddCt and the
// magnitudes of the lower and upper error bars:
//
//	rqMin = 2^-ddCt - 2^-(ddCt + e)
//	rqMax = 2^-(ddCt - e) - 2^-ddCt
//
// Neither bound is clamped. Both bounds are null when e is null.
func ExpressionBounds(ddCt float64, combinedError null.Float) (float64, null.Float, null.Float) {
	norm := math.Pow(2, -ddCt)
	if !combinedError.Valid {
		return norm, null.Float{}, null.Float{}
	}

	e := combinedError.Float64
	rqMin := norm - math.Pow(2, -(ddCt+e))
	rqMax := math.Pow(2, -(ddCt-e)) - norm

	return norm, null.FloatFrom(rqMin), null.FloatFrom(rqMax)
}

func rowsForTarget(stats []types.AggregatedStat, target string) []types.AggregatedStat {
	return lo.Filter(stats, func(s types.AggregatedStat, _ int) bool {
		return s.Target == target
	})
}
