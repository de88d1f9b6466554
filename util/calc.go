package util

import (
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

func CalcMean(numbers []float64) float64 {
	return stat.Mean(numbers, nil)
}

// CalcMeanStdDev returns the arithmetic mean and the sample standard deviation
// (divisor n-1) of numbers. The deviation is null when fewer than two numbers
// are given.
func CalcMeanStdDev(numbers []float64) (float64, null.Float) {
	if len(numbers) < 2 {
		return CalcMean(numbers), null.Float{}
	}
	mean, std := stat.MeanStdDev(numbers, nil)
	return mean, null.FloatFrom(std)
}

// CalcCoeficientOfVariation returns the percent coefficient of variation for
// a replicate group, null when the deviation is unknown or the mean is zero.
func CalcCoeficientOfVariation(mean float64, std null.Float) null.Float {
	if !std.Valid || mean == 0 {
		return null.Float{}
	}
	return null.FloatFrom((std.Float64 / mean) * 100)
}
