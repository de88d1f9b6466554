package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	metrics "github.com/armon/go-metrics"
)

const (
	FormatDefault = ""
	FormatJSON    = "json"
	FormatText    = "text"

	defaultInterval = 10 * time.Second
)

var ErrDisabled = errors.New("telemetry is disabled")

// Metric keys
var (
	KeyAnalysisRuns     = []string{"analysis", "runs"}
	KeyAnalysisFailures = []string{"analysis", "failures"}
	KeyAnalysisTime     = []string{"analysis", "time"}
	KeyWarnings         = []string{"analysis", "warnings"}
	KeyReadingsIngested = []string{"ingest", "readings"}
	KeyReadingsRejected = []string{"ingest", "rejected"}
	KeyCharts           = []string{"chart", "rendered"}
)

// GatherResponse is the response type of registered metrics.
type GatherResponse struct {
	Metrics     []byte
	ContentType string
}

// Metrics records analysis activity in an in-memory sink. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sink    *metrics.InmemSink
	metrics *metrics.Metrics
}

// New creates a metrics recorder that retains aggregated intervals for
// retain.
func New(serviceName string, retain time.Duration) (*Metrics, error) {
	if retain < defaultInterval {
		retain = defaultInterval
	}

	sink := metrics.NewInmemSink(defaultInterval, retain)

	cfg := metrics.DefaultConfig(serviceName)
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false

	m, err := metrics.New(cfg, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return &Metrics{sink: sink, metrics: m}, nil
}

// IncrCounter increments a counter by val.
func (m *Metrics) IncrCounter(key []string, val float32, labels ...metrics.Label) {
	if m == nil {
		return
	}
	m.metrics.IncrCounterWithLabels(key, val, labels)
}

// MeasureSince records the time elapsed since start.
func (m *Metrics) MeasureSince(key []string, start time.Time) {
	if m == nil {
		return
	}
	m.metrics.MeasureSince(key, start)
}

// RecordRun records one analysis run and the kinds of the warnings it
// produced.
func (m *Metrics) RecordRun(start time.Time, warningKinds []string, failed bool) {
	m.IncrCounter(KeyAnalysisRuns, 1)
	if failed {
		m.IncrCounter(KeyAnalysisFailures, 1)
	}
	for _, kind := range warningKinds {
		m.IncrCounter(KeyWarnings, 1, metrics.Label{Name: "kind", Value: kind})
	}
	m.MeasureSince(KeyAnalysisTime, start)
}

// RecordIngest records the accepted and rejected rows of one upload.
func (m *Metrics) RecordIngest(accepted, rejected int) {
	m.IncrCounter(KeyReadingsIngested, float32(accepted))
	m.IncrCounter(KeyReadingsRejected, float32(rejected))
}

// RecordChart records one rendered chart.
func (m *Metrics) RecordChart(format string) {
	m.IncrCounter(KeyCharts, 1, metrics.Label{Name: "format", Value: format})
}

// Gather returns the summary of the most recent metrics interval as JSON or
// plain text.
func (m *Metrics) Gather(format string) (GatherResponse, error) {
	if m == nil {
		return GatherResponse{}, ErrDisabled
	}

	raw, err := m.sink.DisplayMetrics(nil, nil)
	if err != nil {
		return GatherResponse{}, fmt.Errorf("failed to gather in-memory metrics: %w", err)
	}
	summary, ok := raw.(metrics.MetricsSummary)
	if !ok {
		return GatherResponse{}, fmt.Errorf("unexpected metrics summary type %T", raw)
	}

	switch format {
	case FormatDefault, FormatJSON:
		bz, err := json.Marshal(summary)
		if err != nil {
			return GatherResponse{}, fmt.Errorf("failed to encode metrics: %w", err)
		}
		return GatherResponse{Metrics: bz, ContentType: "application/json"}, nil

	case FormatText:
		return GatherResponse{Metrics: []byte(formatText(summary)), ContentType: "text/plain"}, nil

	default:
		return GatherResponse{}, fmt.Errorf("unsupported metrics format: %s", format)
	}
}

func formatText(summary metrics.MetricsSummary) string {
	var b strings.Builder
	write := func(kind string, values []metrics.SampledValue) {
		for _, v := range values {
			if v.AggregateSample == nil {
				continue
			}
			fmt.Fprintf(&b, "%s %s%s count=%d sum=%g mean=%g\n",
				kind, v.Name, formatLabels(v.DisplayLabels), v.Count, v.Sum, v.Mean)
		}
	}
	write("counter", summary.Counters)
	write("sample", summary.Samples)
	for _, g := range summary.Gauges {
		fmt.Fprintf(&b, "gauge %s%s value=%g\n", g.Name, formatLabels(g.DisplayLabels), g.Value)
	}
	return b.String()
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}
