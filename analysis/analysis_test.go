package analysis_test

import (
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

const (
	geneA = "GeneA"
	geneB = "GeneB"
	ref   = "Ref"
)

// exampleReadings is the two-sample, two-target plate used across tests.
func exampleReadings() []types.Reading {
	return []types.Reading{
		{ID: 1, Sample: "S1", Target: geneA, Ct: 20},
		{ID: 2, Sample: "S1", Target: geneA, Ct: 21},
		{ID: 3, Sample: "S1", Target: ref, Ct: 15},
		{ID: 4, Sample: "S1", Target: ref, Ct: 15},
		{ID: 5, Sample: "S2", Target: geneA, Ct: 22},
		{ID: 6, Sample: "S2", Target: geneA, Ct: 22},
		{ID: 7, Sample: "S2", Target: ref, Ct: 15},
		{ID: 8, Sample: "S2", Target: ref, Ct: 16},
	}
}
