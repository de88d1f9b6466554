package types

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "rq-analyzer"

// Analysis errors
var (
	ErrMalformedReading        = errorsmod.Register(ModuleName, 2, "malformed reading")
	ErrInsufficientReplicates  = errorsmod.Register(ModuleName, 3, "insufficient replicates")
	ErrMissingControlData      = errorsmod.Register(ModuleName, 4, "missing control data")
	ErrReferenceTargetSelected = errorsmod.Register(ModuleName, 5, "reference gene selected as chart target")
	ErrUnknownReferenceGene    = errorsmod.Register(ModuleName, 6, "unknown reference gene")
	ErrUnknownControlSample    = errorsmod.Register(ModuleName, 7, "unknown control sample")
	ErrUnknownTarget           = errorsmod.Register(ModuleName, 8, "unknown target")
	ErrNoReadings              = errorsmod.Register(ModuleName, 9, "no valid readings")
	ErrUnreadableFile          = errorsmod.Register(ModuleName, 10, "unreadable file")
)

// Output errors
var (
	ErrUnsupportedFormat = errorsmod.Register(ModuleName, 11, "unsupported output format")
	ErrEmptyChart        = errorsmod.Register(ModuleName, 12, "no rows to chart")
)
