// Package server exposes the relay over HTTP: the webhook verification
// handshake, webhook delivery, a direct send endpoint for smoke testing,
// and health/metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"warelay/internal/config"
	"warelay/internal/domain"
	"warelay/internal/metrics"
	"warelay/internal/relay"
	"warelay/internal/whatsapp"
)

// Server wires the dispatcher and sender into HTTP handlers.
type Server struct {
	cfg        *config.Config
	dispatcher *relay.Dispatcher
	sender     domain.Sender
	logger     *slog.Logger
	mux        *http.ServeMux
	httpServer *http.Server
}

type Config struct {
	Config     *config.Config
	Dispatcher *relay.Dispatcher
	Sender     domain.Sender
	Logger     *slog.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:        cfg.Config,
		dispatcher: cfg.Dispatcher,
		sender:     cfg.Sender,
		logger:     cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /webhook", s.handleVerification)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("POST /send_message", s.handleSendMessage)
	if cfg.Config.Metrics.Enabled {
		endpoint := cfg.Config.Metrics.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		mux.HandleFunc("GET "+endpoint, metrics.Collector.Handler())
	}
	s.mux = mux

	return s
}

// Handler returns the HTTP handler (exported for tests).
func (s *Server) Handler() http.Handler { return s.mux }

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.General.Host, s.cfg.General.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("server starting", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
}

func (s *Server) handleRoot(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"message": "Welcome to warelay"})
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVerification answers the subscription handshake: echo the challenge
// when the mode and shared secret match, otherwise 403 with no more detail
// than a generic message.
func (s *Server) handleVerification(rw http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == s.cfg.WhatsApp.VerifyToken {
		s.logger.Info("webhook verified")
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		fmt.Fprint(rw, challenge)
		return
	}

	s.logger.Warn("webhook verification failed", "mode", mode)
	writeDetail(rw, http.StatusForbidden, "invalid verify token or mode")
}

// handleWebhook decodes the event and hands it to the dispatcher. Once the
// body parses, the response is 200 EVENT_RECEIVED no matter how individual
// messages fared — an erroring webhook gets disabled or retry-stormed by
// the platform.
func (s *Server) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB max
	if err != nil {
		writeDetail(rw, http.StatusBadRequest, "cannot read request body")
		return
	}
	defer r.Body.Close()

	var event whatsapp.Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Warn("webhook body is not valid JSON", "err", err)
		writeDetail(rw, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	if err := s.dispatcher.Process(r.Context(), event); err != nil {
		var payloadErr *relay.PayloadError
		if errors.As(err, &payloadErr) {
			s.logger.Warn("webhook payload rejected", "err", payloadErr)
			writeDetail(rw, http.StatusBadRequest, payloadErr.Error())
			return
		}
		// Process only returns PayloadError; anything else would be a bug,
		// but the webhook must still be acknowledged.
		s.logger.Error("unexpected dispatch error", "err", err)
	}

	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "EVENT_RECEIVED")
}

// sendMessageRequest is the direct test endpoint body.
type sendMessageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	UserID string `json:"user_id"`
	Reply  string `json:"reply"`
}

// handleSendMessage triggers an outbound send without going through the
// webhook pipeline. Useful only for manual smoke testing.
func (s *Server) handleSendMessage(rw http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(rw, http.StatusBadRequest, "invalid body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeDetail(rw, http.StatusBadRequest, "user_id and message are required")
		return
	}

	if err := s.sender.SendText(r.Context(), req.UserID, req.Message); err != nil {
		s.logger.Error("direct send failed", "user", req.UserID, "err", err)
		writeDetail(rw, http.StatusInternalServerError, "failed to send message")
		return
	}

	writeJSON(rw, http.StatusOK, sendMessageResponse{UserID: req.UserID, Reply: req.Message})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

// writeDetail writes an error response in the {"detail": "..."} shape.
func writeDetail(rw http.ResponseWriter, status int, detail string) {
	writeJSON(rw, status, map[string]string{"detail": detail})
}
