package middleware

import (
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/qpcr-lab/rq-analyzer/config"
)

// Build returns the middleware chain shared by every API route: CORS handling
// followed by structured access logging.
func Build(logger zerolog.Logger, cfg config.Config) alice.Chain {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowCredentials: true,
		Debug:            cfg.Server.VerboseCORS,
	})

	return alice.New(
		c.Handler,
		hlog.NewHandler(logger),
		hlog.RemoteAddrHandler("remote_addr"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request served")
		}),
	)
}
