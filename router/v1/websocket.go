package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/qpcr-lab/rq-analyzer/analysis"
	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

const (
	wsMaxMessageSize = 64 * 1024
	wsWriteTimeout   = 10 * time.Second
	wsPongTimeout    = 60 * time.Second
	wsPingPeriod     = wsPongTimeout * 9 / 10

	MessageTypeReport = "report"
	MessageTypeError  = "error"
)

// WebsocketMessage defines a message pushed to websocket clients: either the
// recomputed report or the reason params were rejected.
type WebsocketMessage struct {
	Type   string           `json:"type"`
	Report *analysis.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// createWebsocketHandler serves the interactive channel. The current report
// is pushed on connect; every params message the client sends triggers a
// recompute whose report (or error) is pushed back.
func (r *Router) createWebsocketHandler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     r.checkOrigin,
	}

	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
			return
		}
		defer conn.Close()

		logger := r.logger.With().Str("remote_addr", req.RemoteAddr).Logger()
		logger.Debug().Msg("websocket client connected")

		conn.SetReadLimit(wsMaxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})

		done := make(chan struct{})
		defer close(done)
		writerDone := make(chan struct{})
		msgs := make(chan WebsocketMessage, 1)

		current := r.analyzer.Report()
		msgs <- WebsocketMessage{Type: MessageTypeReport, Report: &current}

		// all writes happen in one goroutine
		go r.websocketWriter(conn, msgs, done, writerDone)

		for {
			_, bz, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Error().Err(err).Msg("websocket read failed")
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

			msg := r.handleParamsMessage(bz)
			select {
			case msgs <- msg:
			case <-writerDone:
				return
			}
		}
	}
}

func (r *Router) handleParamsMessage(bz []byte) WebsocketMessage {
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return WebsocketMessage{Type: MessageTypeError, Error: "invalid params: " + err.Error()}
	}

	rep, err := r.analyzer.SetParams(params)
	if err != nil {
		return WebsocketMessage{Type: MessageTypeError, Error: err.Error()}
	}

	return WebsocketMessage{Type: MessageTypeReport, Report: &rep}
}

// wsConn is the write side of a websocket connection.
type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// websocketWriter sends msgs and keepalive pings until done is closed or a
// write fails. A failed write closes conn so the pending read returns;
// writerDone is closed on exit.
func (r *Router) websocketWriter(conn wsConn, msgs <-chan WebsocketMessage, done <-chan struct{}, writerDone chan<- struct{}) {
	defer close(writerDone)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteTimeout),
			)
			return

		case msg := <-msgs:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				r.logger.Error().Err(err).Msg("failed to write websocket message")
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				r.logger.Error().Err(err).Msg("failed to ping websocket client")
				_ = conn.Close()
				return
			}
		}
	}
}

// checkOrigin accepts same-origin requests and requests from the configured
// allowed origins.
func (r *Router) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" || origin == "http://"+req.Host || origin == "https://"+req.Host {
		return true
	}
	return lo.Contains(r.cfg.Server.AllowedOrigins, "*") || lo.Contains(r.cfg.Server.AllowedOrigins, origin)
}
