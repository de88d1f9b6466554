package v1

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qpcr-lab/rq-analyzer/analysis"
)

// Response constants
const (
	StatusAvailable = "available"
)

type (
	// HealthZResponse defines the response type for the healthy API handler.
	HealthZResponse struct {
		Status      string `json:"status" yaml:"status"`
		Source      string `json:"source,omitempty" yaml:"source,omitempty"`
		LastUpdated string `json:"last_updated" yaml:"last_updated"`
	}

	// ReadingsResponse defines the response type for an uploaded table: the
	// row counts of the upload and the report recomputed from it.
	ReadingsResponse struct {
		Total   int             `json:"total"`
		Success int             `json:"success"`
		Failed  int             `json:"failed"`
		Report  analysis.Report `json:"report"`
	}

	// ErrorResponse defines the attributes of a JSON error response.
	ErrorResponse struct {
		Code  int    `json:"code,omitempty"`
		Error string `json:"error"`
	}
)

// writeErrorResponse writes an error message in a format defined by the
// ErrorResponse type.
func writeErrorResponse(w http.ResponseWriter, logger zerolog.Logger, status int, err string) {
	writeResponse(w, logger, status, ErrorResponse{Code: status, Error: err})
}

// writeResponse writes a JSON encoded response body with the given status.
func writeResponse(w http.ResponseWriter, logger zerolog.Logger, status int, resp interface{}) {
	bz, err := json.Marshal(resp)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(bz); err != nil {
		logger.Error().Err(err).Msg("failed to write response")
	}
}
