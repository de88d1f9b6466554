package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// Reading defines a single raw Ct measurement of one well. Readings that share
// a (Sample, Target) pair are replicates of each other.
type Reading struct {
	ID     int     `json:"id"`
	Sample string  `json:"sample"`
	Target string  `json:"target"`
	Ct     float64 `json:"ct"`
}

// Key returns the replicate group key of the reading.
func (r Reading) Key() GroupKey {
	return GroupKey{Sample: r.Sample, Target: r.Target}
}

// GroupKey defines the (sample, target) pair replicates are grouped by.
type GroupKey struct {
	Sample string
	Target string
}

// String implements the Stringer interface.
func (k GroupKey) String() string {
	return k.Sample + "/" + k.Target
}

// NewReading parses a raw Ct cell into a Reading. The Ct must be a finite,
// non-negative number; anything else is an ErrMalformedReading.
func NewReading(id int, sample, target, ct string) (Reading, error) {
	sample = strings.TrimSpace(sample)
	target = strings.TrimSpace(target)
	ct = strings.TrimSpace(ct)

	if sample == "" {
		return Reading{}, errorsmod.Wrapf(ErrMalformedReading, "row %d: empty sample", id)
	}
	if target == "" {
		return Reading{}, errorsmod.Wrapf(ErrMalformedReading, "row %d: empty target", id)
	}

	value, err := strconv.ParseFloat(ct, 64)
	if err != nil {
		return Reading{}, errorsmod.Wrapf(ErrMalformedReading, "row %d: failed to parse Ct (%s)", id, ct)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return Reading{}, errorsmod.Wrapf(ErrMalformedReading, "row %d: Ct out of domain (%s)", id, ct)
	}

	return Reading{ID: id, Sample: sample, Target: target, Ct: value}, nil
}

// String implements the Stringer interface.
func (r Reading) String() string {
	return fmt.Sprintf("#%d %s/%s Ct=%g", r.ID, r.Sample, r.Target, r.Ct)
}
