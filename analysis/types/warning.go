package types

type WarningKind string

const (
	WarningMalformedReading        = WarningKind("malformed_reading")
	WarningInsufficientReplicates  = WarningKind("insufficient_replicates")
	WarningMissingControlData      = WarningKind("missing_control_data")
	WarningReferenceTargetSelected = WarningKind("reference_target_selected")
	WarningNoReadings              = WarningKind("no_readings")
)

// String cast WarningKind to string.
func (wk WarningKind) String() string {
	return string(wk)
}

// Warning defines a recoverable problem found during ingest or analysis. It is
// attached to the smallest unit that caused it: a row, a group or a target.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Sample  string      `json:"sample,omitempty"`
	Target  string      `json:"target,omitempty"`
	Row     int         `json:"row,omitempty"`
	Message string      `json:"message"`
}

type FlagReason string

const (
	FlagCtOutOfRange       = FlagReason("ct_out_of_range")
	FlagReplicateDeviation = FlagReason("replicate_deviation")
)

// ReadingFlag marks a reading for outlier review. Flagged readings stay in the
// analysis until the user excludes them.
type ReadingFlag struct {
	ReadingID int        `json:"reading_id"`
	Sample    string     `json:"sample"`
	Target    string     `json:"target"`
	Ct        float64    `json:"ct"`
	Reason    FlagReason `json:"reason"`
}
