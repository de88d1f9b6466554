package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/qpcr-lab/rq-analyzer/config"
	v1 "github.com/qpcr-lab/rq-analyzer/router/v1"
	"github.com/qpcr-lab/rq-analyzer/session"
	"github.com/qpcr-lab/rq-analyzer/telemetry"
)

const (
	logLevelJSON = "json"
	logLevelText = "text"

	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagData      = "data"

	shutdownTimeout = 5 * time.Second
)

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "rq-analyzer",
		Short:        "rq-analyzer computes the relative quantification of RT-qPCR readings with the ddCt method",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, logLevelText, "logging format; must be either json or text")

	rootCmd.AddCommand(getStartCmd())
	rootCmd.AddCommand(getAnalyzeCmd())
	rootCmd.AddCommand(getVersionCmd())

	return rootCmd
}

// Execute executes the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func getStartCmd() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start [config-file]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Start the rq-analyzer service",
		Long: `Start the rq-analyzer HTTP service. Readings are uploaded to the
service, analysis parameters are changed through the API or a websocket, and
every change recomputes the report. Without a config file the defaults are used.`,
		RunE: startCmdHandler,
	}

	startCmd.Flags().String(flagData, "", "table of readings to load on start")

	return startCmd
}

func startCmdHandler(cmd *cobra.Command, args []string) error {
	logger, err := getLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	g, ctx := errgroup.WithContext(ctx)

	// listen for and trap any OS signal to gracefully shutdown and exit
	trapSignal(cancel, logger)

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = telemetry.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Retain)
		if err != nil {
			return err
		}
	}

	s := session.New(logger, cfg.Layout(), cfg.AnalysisOptions(), metrics)

	dataPath, err := cmd.Flags().GetString(flagData)
	if err != nil {
		return err
	}
	if dataPath != "" {
		if _, _, err := s.IngestFile(dataPath); err != nil {
			return err
		}
	}

	g.Go(func() error {
		// start the process that serves the API
		return startServer(ctx, logger, cfg, s, metrics)
	})

	// Block main process until all spawned goroutines have gracefully exited and
	// signal has been captured in the main process or if an error occurs.
	return g.Wait()
}

func startServer(
	ctx context.Context,
	logger zerolog.Logger,
	cfg config.Config,
	s *session.Session,
	metrics *telemetry.Metrics,
) error {
	rtr := mux.NewRouter()
	v1Router := v1.New(logger, cfg, s, metrics)
	v1Router.RegisterRoutes(rtr, v1.APIPathPrefix)

	srvErrCh := make(chan error, 1)
	srv := &http.Server{
		Handler:           rtr,
		Addr:              cfg.Server.ListenAddr,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("starting rq-analyzer server...")
		srvErrCh <- srv.ListenAndServe()
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("shutting down rq-analyzer server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("failed to gracefully shutdown rq-analyzer server")
				return err
			}

			return nil

		case err := <-srvErrCh:
			logger.Error().Err(err).Msg("failed to start rq-analyzer server")
			return err
		}
	}
}

func getLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}

	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Nop(), err
	}

	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Nop(), err
	}

	var logWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logLevelJSON:
		logWriter = os.Stderr

	case logLevelText:
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}

	default:
		return zerolog.Nop(), fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

// loadConfig parses the config file given as the only argument, or returns
// the defaults when there is none.
func loadConfig(args []string) (config.Config, error) {
	if len(args) == 0 {
		return config.Default(), nil
	}
	return config.ParseConfig(args[0])
}

// trapSignal will listen for any OS signal and cancel the main context
// allowing the main process to gracefully exit.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("caught signal; shutting down...")
		cancel()
	}()
}
