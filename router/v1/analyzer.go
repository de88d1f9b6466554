package v1

import (
	"io"
	"time"

	"github.com/qpcr-lab/rq-analyzer/analysis"
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/ingest"
	"github.com/qpcr-lab/rq-analyzer/telemetry"
)

// Analyzer defines the Analyzer interface contract that the v1 router depends
// on.
type Analyzer interface {
	LastUpdated() time.Time
	Source() string
	Report() analysis.Report
	Ingest(name string, r io.Reader) (analysis.Report, ingest.Result, error)
	SetParams(params types.Params) (analysis.Report, error)
}

// Metrics defines the Metrics interface contract that the v1 router depends
// on.
type Metrics interface {
	Gather(format string) (telemetry.GatherResponse, error)
	RecordChart(format string)
}
