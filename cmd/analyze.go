package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/qpcr-lab/rq-analyzer/analysis"
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/report"
	"github.com/qpcr-lab/rq-analyzer/session"
)

const (
	flagConfig        = "config"
	flagReferenceGene = "reference-gene"
	flagControlSample = "control-sample"
	flagSamples       = "samples"
	flagTargets       = "targets"
	flagExclude       = "exclude"
	flagTable         = "table"
	flagFormat        = "format"
	flagChartTarget   = "chart-target"
	flagChartOut      = "chart-out"
	flagOutput        = "output"

	tableStats   = "stats"
	tableResults = "results"
)

func getAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [data-file]",
		Args:  cobra.ExactArgs(1),
		Short: "Run a one-shot ddCt analysis of a table of readings",
		Long: `Read a table of readings (xlsx, xls, csv or tab separated text), compute
replicate statistics and the relative expression of every target against the
reference gene and control sample, and write the chosen table. With --chart-out
the chart of the chart target is also written; its format follows the file
extension, and a directory receives <target>.pdf.`,
		RunE: analyzeCmdHandler,
	}

	analyzeCmd.Flags().String(flagConfig, "", "config file with ingest layout, analysis defaults and chart options")
	analyzeCmd.Flags().String(flagReferenceGene, "", "reference (housekeeping) gene")
	analyzeCmd.Flags().String(flagControlSample, "", "control sample")
	analyzeCmd.Flags().StringSlice(flagSamples, nil, "samples to include; all when empty")
	analyzeCmd.Flags().StringSlice(flagTargets, nil, "targets to quantify; all when empty")
	analyzeCmd.Flags().IntSlice(flagExclude, nil, "row numbers of readings to exclude")
	analyzeCmd.Flags().String(flagTable, tableResults, "table to write; must be either stats or results")
	analyzeCmd.Flags().String(flagFormat, string(report.FormatCSV), "table format; one of csv, json or yaml")
	analyzeCmd.Flags().String(flagChartTarget, "", "target to chart; the first non-reference target when empty")
	analyzeCmd.Flags().String(flagChartOut, "", "chart file (.png, .svg or .pdf) or directory")
	analyzeCmd.Flags().StringP(flagOutput, "o", "", "table file; standard output when empty")

	return analyzeCmd
}

func analyzeCmdHandler(cmd *cobra.Command, args []string) error {
	logger, err := getLogger(cmd)
	if err != nil {
		return err
	}

	configPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return err
	}
	var configArgs []string
	if configPath != "" {
		configArgs = append(configArgs, configPath)
	}
	cfg, err := loadConfig(configArgs)
	if err != nil {
		return err
	}

	params, err := paramsFromFlags(cmd)
	if err != nil {
		return err
	}

	table, err := cmd.Flags().GetString(flagTable)
	if err != nil {
		return err
	}
	if table != tableStats && table != tableResults {
		return fmt.Errorf("invalid table: %s", table)
	}

	formatStr, err := cmd.Flags().GetString(flagFormat)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	s := session.New(logger, cfg.Layout(), cfg.AnalysisOptions(), nil)
	if _, _, err := s.IngestFile(args[0]); err != nil {
		return err
	}

	rep, err := s.SetParams(params)
	if err != nil {
		return err
	}

	if err := writeTable(cmd, rep, table, format); err != nil {
		return err
	}

	chartOut, err := cmd.Flags().GetString(flagChartOut)
	if err != nil {
		return err
	}
	if chartOut == "" {
		return nil
	}

	path, err := writeChart(rep, chartOut, cfg.ChartOptions())
	if err != nil {
		return err
	}
	logger.Info().Str("target", rep.Params.ChartTarget).Str("file", path).Msg("chart written")

	return nil
}

func paramsFromFlags(cmd *cobra.Command) (types.Params, error) {
	var (
		params types.Params
		err    error
	)

	if params.ReferenceGene, err = cmd.Flags().GetString(flagReferenceGene); err != nil {
		return params, err
	}
	if params.ControlSample, err = cmd.Flags().GetString(flagControlSample); err != nil {
		return params, err
	}
	if params.Samples, err = cmd.Flags().GetStringSlice(flagSamples); err != nil {
		return params, err
	}
	if params.Targets, err = cmd.Flags().GetStringSlice(flagTargets); err != nil {
		return params, err
	}
	if params.Exclude, err = cmd.Flags().GetIntSlice(flagExclude); err != nil {
		return params, err
	}
	if params.ChartTarget, err = cmd.Flags().GetString(flagChartTarget); err != nil {
		return params, err
	}

	return params, nil
}

func writeTable(cmd *cobra.Command, rep analysis.Report, table string, format report.Format) error {
	output, err := cmd.Flags().GetString(flagOutput)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if table == tableStats {
		return report.WriteStats(w, format, rep.Stats)
	}
	return report.WriteResults(w, format, rep.Results)
}

// writeChart renders the chart of the report's chart target and returns the
// path written. A directory receives <target>.pdf.
func writeChart(rep analysis.Report, out string, opts report.ChartOptions) (string, error) {
	target := rep.Params.ChartTarget
	if rep.HasWarning(types.WarningReferenceTargetSelected) {
		return "", types.ErrReferenceTargetSelected.Wrap("Please select a non-reference target gene.")
	}

	path := out
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		path = filepath.Join(out, report.ChartFileName(target, report.ChartPDF))
	}

	format, err := report.ChartFormatFromPath(path)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := report.RenderChart(f, format, target, rep.ChartRows(), opts); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}

	return path, f.Close()
}
