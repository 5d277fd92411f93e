package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/openclaw/clawtrace/rollout"
	"github.com/openclaw/clawtrace/rollout/trace"
)

const shutdownGrace = 5 * time.Second

// Server forwards web-UI chat turns to an agent and writes a trace file for
// every chat, successful or not. Endpoint and credential can arrive in the
// request body or fall back to the server's config.
type Server struct {
	cfg      *rollout.Config
	agent    rollout.Agent
	store    *trace.Store
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewServer wires a bridge server. cfg should be normalized; its gateway
// fields may be empty when every request carries its own.
func NewServer(cfg *rollout.Config, agent rollout.Agent, store *trace.Store) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		agent:    agent,
		store:    store,
		metrics:  NewMetrics(registry),
		registry: registry,
	}
}

// Handler returns the bridge's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"clawtrace-bridge"}`))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("bridge listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("bridge shutdown: %w", err)
		}
		logrus.Info("bridge stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge serve: %w", err)
	}
}

type chatRequest struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey"`
	GatewayBaseURL string `json:"gatewayBaseUrl"`
	InternalSecret string `json:"internalSecret"`
}

type chatResponse struct {
	OK           bool   `json:"ok"`
	ResponseText string `json:"responseText,omitempty"`
	RunID        string `json:"runId,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	s.metrics.ChatsInFlight.Inc()
	defer s.metrics.ChatsInFlight.Dec()
	defer func() {
		s.metrics.ChatDuration.Observe(time.Since(started).Seconds())
	}()

	if r.Method != http.MethodPost {
		s.metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusMethodNotAllowed, chatResponse{Error: "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: fmt.Sprintf("Invalid JSON: %v", err)})
		return
	}

	input, err := s.resolveInput(&req)
	if err != nil {
		s.metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: err.Error()})
		return
	}

	logrus.Debugf("chat request for session %s", input.SessionKey)
	resp := s.agent.Send(r.Context(), input)

	rolloutID := s.writeTrace(input, resp)

	status := "ok"
	if !resp.OK {
		status = "error"
	}
	s.metrics.ChatRequestsTotal.WithLabelValues(status).Inc()
	writeJSON(w, http.StatusOK, chatResponse{
		OK:           true,
		ResponseText: resp.Text,
		RunID:        rolloutID,
	})
}

// resolveInput merges the request body with config defaults and validates
// the result.
func (s *Server) resolveInput(req *chatRequest) (trace.TaskInput, error) {
	baseURL := strings.TrimRight(req.GatewayBaseURL, "/")
	if baseURL == "" {
		baseURL = s.cfg.GatewayBaseURL
	}
	secret := req.InternalSecret
	if secret == "" {
		secret = s.cfg.InternalSecret
	}
	sessionKey := req.SessionKey
	if sessionKey == "" {
		sessionKey = s.cfg.SessionKey
	}
	if sessionKey == "" || req.Message == "" || baseURL == "" {
		return trace.TaskInput{}, fmt.Errorf("sessionKey, message, and gatewayBaseUrl required")
	}

	key := req.IdempotencyKey
	if key == "" {
		key = "bridge-" + uuid.NewString()
	}
	mode := s.cfg.Mode
	if mode == "" {
		mode = rollout.DefaultMode
	}
	return trace.TaskInput{
		Input:          req.Message,
		GatewayBaseURL: baseURL,
		InternalSecret: secret,
		SessionKey:     sessionKey,
		Message:        req.Message,
		IdempotencyKey: key,
		Mode:           mode,
	}, nil
}

// writeTrace persists the chat, synthesizing a rollout id when the agent
// returned none, and returns the id the trace was filed under. Write
// failures are logged and swallowed: the chat response must go out
// regardless.
func (s *Server) writeTrace(input trace.TaskInput, resp *rollout.Response) string {
	rolloutID := resp.RunID
	if rolloutID == "" {
		rolloutID = "bridge-" + uuid.NewString()
	}
	status := trace.StatusSucceeded
	if !resp.OK {
		status = trace.StatusFailed
	}

	rec := trace.NewRecord(rolloutID, uuid.NewString(), status, input, rollout.BuildSpans(resp))
	path, err := s.store.Write(rec)
	if err != nil {
		logrus.Errorf("trace write failed: %v", err)
		return rolloutID
	}
	s.metrics.TracesWrittenTotal.Inc()
	logrus.Debugf("trace written to %s", path)
	return rolloutID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("encoding response: %v", err)
	}
}
