package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qpcr-lab/rq-analyzer/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfig_Valid(t *testing.T) {
	path := writeConfig(t, "rq-analyzer.toml", `
[server]
listen_addr = "127.0.0.1:8080"
read_timeout = "20s"
write_timeout = "5s"
verbose_cors = true
allowed_origins = ["http://localhost:3000"]
max_upload_mb = 8

[ingest]
header_row = 0
sample_column = 0
target_column = 1
ct_column = 2
sheet = "Results"

[analysis]
reference_gene = "GAPDH"
control_sample = "WT"
max_ct = 38.0
replicate_tolerance = 0.3

[chart]
width = 800
height = 480
transparent = false
margin_mm = 5.0

[telemetry]
enabled = true
retain = "10m"
`)

	cfg, err := config.ParseConfig(path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:8080", cfg.Server.ListenAddr)
	require.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, 5*time.Second, cfg.Server.WriteTimeout)
	require.True(t, cfg.Server.VerboseCORS)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	require.Equal(t, int64(8<<20), cfg.MaxUploadBytes())

	layout := cfg.Layout()
	require.Equal(t, 0, layout.HeaderRow)
	require.Equal(t, 0, layout.SampleColumn)
	require.Equal(t, 1, layout.TargetColumn)
	require.Equal(t, 2, layout.CtColumn)
	require.Equal(t, "Results", layout.Sheet)

	opts := cfg.AnalysisOptions()
	require.Equal(t, "GAPDH", opts.Defaults.ReferenceGene)
	require.Equal(t, "WT", opts.Defaults.ControlSample)
	require.Equal(t, 0.0, opts.Flags.MinCt)
	require.Equal(t, 38.0, opts.Flags.MaxCt)
	require.Equal(t, 0.3, opts.Flags.ReplicateTolerance)

	chart := cfg.ChartOptions()
	require.Equal(t, 800, chart.Width)
	require.Equal(t, 480, chart.Height)
	require.False(t, chart.Transparent)
	require.Equal(t, 5.0, chart.Page.MarginMM)

	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, "rq-analyzer", cfg.Telemetry.ServiceName)
	require.Equal(t, 10*time.Minute, cfg.Telemetry.Retain)
}

func TestParseConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "rq-analyzer.toml", `
[analysis]
reference_gene = "ACTB"
`)

	cfg, err := config.ParseConfig(path)
	require.NoError(t, err)

	defaults := config.Default()
	require.Equal(t, defaults.Server, cfg.Server)
	require.Equal(t, defaults.Layout(), cfg.Layout())
	require.Equal(t, defaults.ChartOptions(), cfg.ChartOptions())
	require.Equal(t, defaults.FlagOptions(), cfg.FlagOptions())
	require.Equal(t, "ACTB", cfg.Analysis.ReferenceGene)
}

func TestParseConfig_PartialIngest(t *testing.T) {
	path := writeConfig(t, "rq-analyzer.toml", `
[ingest]
header_row = 0
ct_column = 5
`)

	cfg, err := config.ParseConfig(path)
	require.NoError(t, err)

	defaults := config.Default()
	require.Equal(t, 0, cfg.Ingest.HeaderRow)
	require.Equal(t, 5, cfg.Ingest.CtColumn)
	require.Equal(t, defaults.Ingest.SampleColumn, cfg.Ingest.SampleColumn)
	require.Equal(t, defaults.Ingest.TargetColumn, cfg.Ingest.TargetColumn)
	require.Equal(t, defaults.Ingest.HeaderSearchRows, cfg.Ingest.HeaderSearchRows)
}

func TestParseConfigs_Merge(t *testing.T) {
	base := writeConfig(t, "base.toml", `
[server]
listen_addr = "127.0.0.1:8080"

[analysis]
reference_gene = "GAPDH"
`)
	override := writeConfig(t, "override.toml", `
[analysis]
reference_gene = "ACTB"
`)

	cfg, err := config.ParseConfigs([]string{base, override})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Server.ListenAddr)
	require.Equal(t, "ACTB", cfg.Analysis.ReferenceGene)
}

func TestParseConfig_Invalid(t *testing.T) {
	testCases := map[string]string{
		"inverted ct range": `
[analysis]
min_ct = 30.0
max_ct = 20.0
`,
		"negative tolerance": `
[analysis]
replicate_tolerance = -1.0
`,
		"shared columns": `
[ingest]
sample_column = 2
target_column = 2
ct_column = 3
`,
		"margins too large": `
[chart]
page_width_mm = 100.0
page_height_mm = 100.0
margin_mm = 60.0
`,
		"negative column": `
[ingest]
sample_column = -1
`,
	}

	for name, content := range testCases {
		content := content

		t.Run(name, func(t *testing.T) {
			_, err := config.ParseConfig(writeConfig(t, "rq-analyzer.toml", content))
			require.Error(t, err)
		})
	}
}

func TestParseConfig_EmptyPath(t *testing.T) {
	_, err := config.ParseConfig("")
	require.ErrorIs(t, err, config.ErrEmptyConfigPath)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestParseConfig_Sample(t *testing.T) {
	cfg, err := config.ParseConfig(filepath.Join("..", config.SampleConfigPath))
	require.NoError(t, err)
	require.Equal(t, config.Default().Layout(), cfg.Layout())
	require.Equal(t, "GAPDH", cfg.Analysis.ReferenceGene)
	require.True(t, cfg.Telemetry.Enabled)
}
