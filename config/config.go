package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qpcr-lab/rq-analyzer/analysis"
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/ingest"
	"github.com/qpcr-lab/rq-analyzer/report"
)

const (
	defaultListenAddr      = "0.0.0.0:7171"
	defaultSrvWriteTimeout = 15 * time.Second
	defaultSrvReadTimeout  = 15 * time.Second
	defaultMaxUploadMB     = 32

	defaultTelemetryService = "rq-analyzer"
	defaultTelemetryRetain  = time.Hour

	SampleConfigPath = "rq-analyzer.example.toml"
)

var (
	validate = validator.New()

	// ErrEmptyConfigPath defines a sentinel error for an empty config path.
	ErrEmptyConfigPath = errors.New("empty configuration file path")
)

type (
	// Config defines all necessary rq-analyzer configuration parameters.
	Config struct {
		Server    Server    `mapstructure:"server"`
		Ingest    Ingest    `mapstructure:"ingest"`
		Analysis  Analysis  `mapstructure:"analysis"`
		Chart     Chart     `mapstructure:"chart"`
		Telemetry Telemetry `mapstructure:"telemetry"`
	}

	// Server defines the API server configuration.
	Server struct {
		ListenAddr     string        `mapstructure:"listen_addr"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		VerboseCORS    bool          `mapstructure:"verbose_cors"`
		AllowedOrigins []string      `mapstructure:"allowed_origins"`
		MaxUploadMB    int64         `mapstructure:"max_upload_mb" validate:"gte=0"`
	}

	// Ingest defines where the Sample, Target and Ct columns of an uploaded
	// table are found when no recognizable header row is present.
	Ingest struct {
		HeaderRow        int    `mapstructure:"header_row" validate:"gte=0"`
		SampleColumn     int    `mapstructure:"sample_column" validate:"gte=0"`
		TargetColumn     int    `mapstructure:"target_column" validate:"gte=0"`
		CtColumn         int    `mapstructure:"ct_column" validate:"gte=0"`
		HeaderSearchRows int    `mapstructure:"header_search_rows" validate:"gte=0"`
		Sheet            string `mapstructure:"sheet"`
	}

	// Analysis defines the defaults and outlier review thresholds of the
	// analysis pipeline.
	Analysis struct {
		ReferenceGene      string   `mapstructure:"reference_gene"`
		ControlSample      string   `mapstructure:"control_sample"`
		MinCt              *float64 `mapstructure:"min_ct"`
		MaxCt              *float64 `mapstructure:"max_ct"`
		ReplicateTolerance *float64 `mapstructure:"replicate_tolerance"`
	}

	// Chart defines the rendering options of the expression chart and of its
	// PDF page.
	Chart struct {
		Width        int     `mapstructure:"width" validate:"gte=0"`
		Height       int     `mapstructure:"height" validate:"gte=0"`
		Transparent  *bool   `mapstructure:"transparent"`
		PageWidthMM  float64 `mapstructure:"page_width_mm" validate:"gte=0"`
		PageHeightMM float64 `mapstructure:"page_height_mm" validate:"gte=0"`
		MarginMM     float64 `mapstructure:"margin_mm" validate:"gte=0"`
	}

	// Telemetry defines the in-memory metrics configuration.
	Telemetry struct {
		Enabled     bool          `mapstructure:"enabled"`
		ServiceName string        `mapstructure:"service_name"`
		Retain      time.Duration `mapstructure:"retain"`
	}
)

// Default returns the configuration used when no config file is given.
func Default() Config {
	layout := ingest.DefaultLayout()
	cfg := Config{
		Ingest: Ingest{
			HeaderRow:        layout.HeaderRow,
			SampleColumn:     layout.SampleColumn,
			TargetColumn:     layout.TargetColumn,
			CtColumn:         layout.CtColumn,
			HeaderSearchRows: layout.HeaderSearchRows,
		},
	}
	cfg.setDefaults()
	return cfg
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() (err error) {
	if err = c.validateIngest(); err != nil {
		return err
	}

	if err = c.validateAnalysis(); err != nil {
		return err
	}

	if err = c.validateChart(); err != nil {
		return err
	}

	return validate.Struct(c)
}

func (c Config) validateIngest() error {
	columns := map[int]string{}
	for name, col := range map[string]int{
		"sample_column": c.Ingest.SampleColumn,
		"target_column": c.Ingest.TargetColumn,
		"ct_column":     c.Ingest.CtColumn,
	} {
		if other, ok := columns[col]; ok {
			return fmt.Errorf("ingest %s and %s cannot share column %d", name, other, col)
		}
		columns[col] = name
	}
	return nil
}

func (c Config) validateAnalysis() error {
	flags := c.FlagOptions()
	if flags.MinCt < 0 {
		return fmt.Errorf("analysis min_ct must not be negative")
	}
	if flags.MaxCt <= flags.MinCt {
		return fmt.Errorf("analysis max_ct must be greater than min_ct")
	}
	if flags.ReplicateTolerance < 0 {
		return fmt.Errorf("analysis replicate_tolerance must not be negative")
	}
	return nil
}

func (c Config) validateChart() error {
	if 2*c.Chart.MarginMM >= c.Chart.PageWidthMM || 2*c.Chart.MarginMM >= c.Chart.PageHeightMM {
		return fmt.Errorf("chart margins must leave room on a %gx%gmm page", c.Chart.PageWidthMM, c.Chart.PageHeightMM)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultSrvWriteTimeout
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultSrvReadTimeout
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}

	if c.Ingest.HeaderSearchRows == 0 {
		c.Ingest.HeaderSearchRows = ingest.DefaultLayout().HeaderSearchRows
	}

	flags := analysis.DefaultFlagOptions()
	if c.Analysis.MinCt == nil {
		c.Analysis.MinCt = &flags.MinCt
	}
	if c.Analysis.MaxCt == nil {
		c.Analysis.MaxCt = &flags.MaxCt
	}
	if c.Analysis.ReplicateTolerance == nil {
		c.Analysis.ReplicateTolerance = &flags.ReplicateTolerance
	}

	chart := report.DefaultChartOptions()
	if c.Chart.Width == 0 {
		c.Chart.Width = chart.Width
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = chart.Height
	}
	if c.Chart.Transparent == nil {
		c.Chart.Transparent = &chart.Transparent
	}
	if c.Chart.PageWidthMM == 0 {
		c.Chart.PageWidthMM = chart.Page.WidthMM
	}
	if c.Chart.PageHeightMM == 0 {
		c.Chart.PageHeightMM = chart.Page.HeightMM
	}
	if c.Chart.MarginMM == 0 {
		c.Chart.MarginMM = chart.Page.MarginMM
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultTelemetryService
	}
	if c.Telemetry.Retain == 0 {
		c.Telemetry.Retain = defaultTelemetryRetain
	}
}

// Layout converts the ingest section into an ingest.Layout.
func (c Config) Layout() ingest.Layout {
	return ingest.Layout{
		HeaderRow:        c.Ingest.HeaderRow,
		SampleColumn:     c.Ingest.SampleColumn,
		TargetColumn:     c.Ingest.TargetColumn,
		CtColumn:         c.Ingest.CtColumn,
		HeaderSearchRows: c.Ingest.HeaderSearchRows,
		Sheet:            c.Ingest.Sheet,
	}
}

// FlagOptions converts the analysis thresholds into analysis.FlagOptions.
func (c Config) FlagOptions() analysis.FlagOptions {
	flags := analysis.DefaultFlagOptions()
	if c.Analysis.MinCt != nil {
		flags.MinCt = *c.Analysis.MinCt
	}
	if c.Analysis.MaxCt != nil {
		flags.MaxCt = *c.Analysis.MaxCt
	}
	if c.Analysis.ReplicateTolerance != nil {
		flags.ReplicateTolerance = *c.Analysis.ReplicateTolerance
	}
	return flags
}

// AnalysisOptions returns the pipeline options for this configuration.
func (c Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		Defaults: types.Params{
			ReferenceGene: c.Analysis.ReferenceGene,
			ControlSample: c.Analysis.ControlSample,
		},
		Flags: c.FlagOptions(),
	}
}

// ChartOptions converts the chart section into report.ChartOptions.
func (c Config) ChartOptions() report.ChartOptions {
	opts := report.DefaultChartOptions()
	opts.Width = c.Chart.Width
	opts.Height = c.Chart.Height
	if c.Chart.Transparent != nil {
		opts.Transparent = *c.Chart.Transparent
	}
	opts.Page = report.PageOptions{
		WidthMM:  c.Chart.PageWidthMM,
		HeightMM: c.Chart.PageHeightMM,
		MarginMM: c.Chart.MarginMM,
	}
	return opts
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
