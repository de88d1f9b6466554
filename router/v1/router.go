package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
	"github.com/qpcr-lab/rq-analyzer/config"
	"github.com/qpcr-lab/rq-analyzer/report"
	"github.com/qpcr-lab/rq-analyzer/router/middleware"
)

const (
	APIPathPrefix = "/api/v1"

	uploadField = "file"
)

// Router defines a router wrapper used for registering v1 API routes.
type Router struct {
	logger   zerolog.Logger
	cfg      config.Config
	analyzer Analyzer
	metrics  Metrics
}

func New(logger zerolog.Logger, cfg config.Config, analyzer Analyzer, metrics Metrics) *Router {
	return &Router{
		logger:   logger.With().Str("module", "router").Logger(),
		cfg:      cfg,
		analyzer: analyzer,
		metrics:  metrics,
	}
}

// RegisterRoutes register v1 API routes on the provided sub-router.
func (r *Router) RegisterRoutes(rtr *mux.Router, prefix string) {
	v1Router := rtr.PathPrefix(prefix).Subrouter()

	// build middleware chain
	mChain := middleware.Build(r.logger, r.cfg)

	// handle all preflight request
	v1Router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
			w.Header().Add("Access-Control-Allow-Methods", method)
		}
		w.WriteHeader(http.StatusOK)
	})

	v1Router.Handle("/healthz", mChain.ThenFunc(r.createHealthzHandler())).Methods(http.MethodGet)
	v1Router.Handle("/readings", mChain.ThenFunc(r.createReadingsHandler())).Methods(http.MethodPost)
	v1Router.Handle("/report", mChain.ThenFunc(r.createReportHandler())).Methods(http.MethodGet)
	v1Router.Handle("/params", mChain.ThenFunc(r.createParamsHandler())).Methods(http.MethodPut)
	v1Router.Handle("/stats", mChain.ThenFunc(r.createStatsHandler())).Methods(http.MethodGet)
	v1Router.Handle("/results", mChain.ThenFunc(r.createResultsHandler())).Methods(http.MethodGet)
	v1Router.Handle("/chart/{target}", mChain.ThenFunc(r.createChartHandler())).Methods(http.MethodGet)
	v1Router.Handle("/metrics", mChain.ThenFunc(r.createMetricsHandler())).Methods(http.MethodGet)

	// The websocket handshake needs the raw connection, which the access log
	// wrapper does not expose.
	v1Router.HandleFunc("/ws", r.createWebsocketHandler()).Methods(http.MethodGet)
}

func (r *Router) createHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		resp := HealthZResponse{
			Status:      StatusAvailable,
			Source:      r.analyzer.Source(),
			LastUpdated: r.analyzer.LastUpdated().Format(time.RFC3339),
		}

		writeResponse(w, r.logger, http.StatusOK, resp)
	}
}

func (r *Router) createReadingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxUploadBytes())

		file, header, err := req.FormFile(uploadField)
		if err != nil {
			writeErrorResponse(w, r.logger, http.StatusBadRequest, fmt.Sprintf("missing upload field %q: %s", uploadField, err))
			return
		}
		defer file.Close()

		rep, result, err := r.analyzer.Ingest(header.Filename, file)
		if err != nil {
			writeErrorResponse(w, r.logger, statusFor(err), err.Error())
			return
		}

		writeResponse(w, r.logger, http.StatusOK, ReadingsResponse{
			Total:   result.Total,
			Success: result.Success,
			Failed:  result.Failed,
			Report:  rep,
		})
	}
}

func (r *Router) createReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeResponse(w, r.logger, http.StatusOK, r.analyzer.Report())
	}
}

func (r *Router) createParamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var params types.Params
		if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
			writeErrorResponse(w, r.logger, http.StatusBadRequest, fmt.Sprintf("invalid params: %s", err))
			return
		}

		rep, err := r.analyzer.SetParams(params)
		if err != nil {
			writeErrorResponse(w, r.logger, statusFor(err), err.Error())
			return
		}

		writeResponse(w, r.logger, http.StatusOK, rep)
	}
}

func (r *Router) createStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		format, err := report.ParseFormat(req.FormValue("format"))
		if err != nil {
			writeErrorResponse(w, r.logger, http.StatusBadRequest, err.Error())
			return
		}

		var buf bytes.Buffer
		if err := report.WriteStats(&buf, format, r.analyzer.Report().Stats); err != nil {
			writeErrorResponse(w, r.logger, http.StatusInternalServerError, err.Error())
			return
		}

		r.writeBody(w, format.ContentType(), "", buf.Bytes())
	}
}

func (r *Router) createResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		format, err := report.ParseFormat(req.FormValue("format"))
		if err != nil {
			writeErrorResponse(w, r.logger, http.StatusBadRequest, err.Error())
			return
		}

		rep := r.analyzer.Report()
		results := rep.Results
		if target := strings.TrimSpace(req.FormValue("target")); target != "" {
			if !lo.Contains(rep.Targets, target) {
				writeErrorResponse(w, r.logger, http.StatusNotFound, types.ErrUnknownTarget.Wrap(target).Error())
				return
			}
			results = rep.ResultsFor(target)
		}

		var buf bytes.Buffer
		if err := report.WriteResults(&buf, format, results); err != nil {
			writeErrorResponse(w, r.logger, http.StatusInternalServerError, err.Error())
			return
		}

		r.writeBody(w, format.ContentType(), "", buf.Bytes())
	}
}

func (r *Router) createChartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		target := mux.Vars(req)["target"]

		format, err := report.ParseChartFormat(req.FormValue("format"))
		if err != nil {
			writeErrorResponse(w, r.logger, http.StatusBadRequest, err.Error())
			return
		}

		rep := r.analyzer.Report()
		switch {
		case !lo.Contains(rep.Targets, target):
			writeErrorResponse(w, r.logger, http.StatusNotFound, types.ErrUnknownTarget.Wrap(target).Error())
			return

		case target == rep.Params.ReferenceGene:
			writeErrorResponse(w, r.logger, http.StatusBadRequest,
				types.ErrReferenceTargetSelected.Wrap("Please select a non-reference target gene.").Error())
			return
		}

		var buf bytes.Buffer
		if err := report.RenderChart(&buf, format, target, rep.ResultsFor(target), r.cfg.ChartOptions()); err != nil {
			writeErrorResponse(w, r.logger, statusFor(err), err.Error())
			return
		}
		r.metrics.RecordChart(string(format))

		r.writeBody(w, format.ContentType(), report.ChartFileName(target, format), buf.Bytes())
	}
}

func (r *Router) createMetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		format := strings.TrimSpace(req.FormValue("format"))

		gr, err := r.metrics.Gather(format)
		if err != nil {
			writeErrorResponse(w, r.logger, http.StatusBadRequest, fmt.Sprintf("failed to gather metrics: %s", err))
			return
		}

		r.writeBody(w, gr.ContentType, "", gr.Metrics)
	}
}

func (r *Router) writeBody(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(body); err != nil {
		r.logger.Error().Err(err).Msg("failed to write response")
	}
}

// statusFor maps analysis errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrUnknownReferenceGene),
		errors.Is(err, types.ErrUnknownControlSample),
		errors.Is(err, types.ErrUnknownTarget),
		errors.Is(err, types.ErrUnreadableFile),
		errors.Is(err, types.ErrUnsupportedFormat),
		errors.Is(err, types.ErrReferenceTargetSelected):
		return http.StatusBadRequest

	case errors.Is(err, types.ErrEmptyChart):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
