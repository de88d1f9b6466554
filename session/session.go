package session

import (
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/qpcr-lab/rq-analyzer/analysis"
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/ingest"
	"github.com/qpcr-lab/rq-analyzer/telemetry"
)

// Session holds the readings and parameters of one interactive analysis and
// the report computed from them. Every update recomputes the report from
// scratch; readers always receive copies.
type Session struct {
	logger  zerolog.Logger
	layout  ingest.Layout
	opts    analysis.Options
	metrics *telemetry.Metrics

	mtx         sync.RWMutex
	source      string
	readings    []types.Reading
	malformed   []types.Warning
	params      types.Params
	report      analysis.Report
	lastUpdated time.Time
}

// New returns a session without readings. metrics may be nil.
func New(logger zerolog.Logger, layout ingest.Layout, opts analysis.Options, metrics *telemetry.Metrics) *Session {
	s := &Session{
		logger:  logger.With().Str("module", "session").Logger(),
		layout:  layout,
		opts:    opts,
		metrics: metrics,
	}

	// Without readings Run reports no_readings and cannot fail.
	s.report, _ = s.compute(nil, nil, types.Params{})
	s.lastUpdated = time.Now()

	return s
}

// Ingest replaces the session readings with the table read from r. Params are
// reset since row IDs and selections refer to the previous table. On error
// the session is left unchanged.
func (s *Session) Ingest(name string, r io.Reader) (analysis.Report, ingest.Result, error) {
	result, err := ingest.Read(name, r, s.layout)
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to read readings")
		return analysis.Report{}, ingest.Result{}, err
	}

	return s.load(name, result)
}

// IngestFile is Ingest for a table on disk.
func (s *Session) IngestFile(path string) (analysis.Report, ingest.Result, error) {
	result, err := ingest.ReadFile(path, s.layout)
	if err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("failed to read readings")
		return analysis.Report{}, ingest.Result{}, err
	}

	return s.load(filepath.Base(path), result)
}

func (s *Session) load(name string, result ingest.Result) (analysis.Report, ingest.Result, error) {
	s.metrics.RecordIngest(result.Success, result.Failed)
	s.logger.Info().
		Str("file", name).
		Int("total", result.Total).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("readings ingested")

	s.mtx.Lock()
	defer s.mtx.Unlock()

	report, err := s.compute(result.Readings, result.Malformed, types.Params{})
	if err != nil {
		return analysis.Report{}, result, err
	}

	s.source = name
	s.readings = result.Readings
	s.malformed = result.Malformed
	s.params = types.Params{}
	s.setReport(report)

	return report.Clone(), result, nil
}

// SetParams recomputes the report with params. Invalid params are rejected
// and the previous params and report are kept.
func (s *Session) SetParams(params types.Params) (analysis.Report, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	report, err := s.compute(s.readings, s.malformed, params)
	if err != nil {
		s.logger.Info().Err(err).Msg("rejected analysis parameters")
		return analysis.Report{}, err
	}

	s.params = params.Clone()
	s.setReport(report)

	return report.Clone(), nil
}

// Report returns a copy of the current report.
func (s *Session) Report() analysis.Report {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.report.Clone()
}

// Source returns the name of the table the readings were read from.
func (s *Session) Source() string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.source
}

// LastUpdated returns the time the report was last recomputed.
func (s *Session) LastUpdated() time.Time {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.lastUpdated
}

func (s *Session) setReport(report analysis.Report) {
	s.report = report
	s.lastUpdated = time.Now()
}

// compute runs the analysis and prepends the ingest warnings to the report.
// It does not touch session state.
func (s *Session) compute(
	readings []types.Reading,
	malformed []types.Warning,
	params types.Params,
) (analysis.Report, error) {
	start := time.Now()

	report, err := analysis.Run(readings, params, s.opts)
	if err != nil {
		s.metrics.RecordRun(start, nil, true)
		return analysis.Report{}, err
	}

	report.Warnings = append(append([]types.Warning(nil), malformed...), report.Warnings...)

	s.metrics.RecordRun(start, lo.Map(report.Warnings, func(w types.Warning, _ int) string {
		return w.Kind.String()
	}), false)

	for _, w := range report.Warnings {
		s.logger.Warn().
			Str("kind", w.Kind.String()).
			Str("sample", w.Sample).
			Str("target", w.Target).
			Int("row", w.Row).
			Msg(w.Message)
	}

	s.logger.Debug().
		Str("reference_gene", report.Params.ReferenceGene).
		Str("control_sample", report.Params.ControlSample).
		Int("stats", len(report.Stats)).
		Int("results", len(report.Results)).
		Dur("duration", time.Since(start)).
		Msg("analysis computed")

	return report, nil
}
