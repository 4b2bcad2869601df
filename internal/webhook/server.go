package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/notify"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/obs"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

const (
	respSuccess     = "Success"
	respFail        = "Fail"
	respUnsupported = "Content-Type not supported!"

	maxBodyBytes = 1 << 20
)

// Relay handles decoded webhook payloads
type Relay interface {
	PatchRecord(ctx context.Context, ev record.Event) (notify.Report, error)
	ReportedLog(ctx context.Context, r record.ReportedLog) error
	InternalMessage(ctx context.Context, m record.InternalMessage) error
}

// HealthFunc reports whether the process can serve requests
type HealthFunc func(ctx context.Context) error

// Server receives pushes from the stats site
type Server struct {
	relay  Relay
	health HealthFunc
	srv    *http.Server
}

// NewServer creates the webhook server listening on addr. health may be nil.
func NewServer(addr string, relay Relay, health HealthFunc) *Server {
	s := &Server{relay: relay, health: health}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, "Hello World")
	})
	mux.HandleFunc("POST /patchrecord/", s.handlePatchRecord)
	mux.HandleFunc("POST /reportlog/", s.handleReportLog)
	mux.HandleFunc("POST /internalmessage/", s.handleInternalMessage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe serves until Shutdown is called
func (s *Server) ListenAndServe() error {
	slog.Info("Webhook server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePatchRecord(w http.ResponseWriter, r *http.Request) {
	const endpoint = "patchrecord"
	reqID, body, ok := s.readJSON(w, r, endpoint)
	if !ok {
		return
	}

	ev, err := record.DecodeEvent(body)
	if err != nil {
		s.fail(w, endpoint, reqID, body, err)
		return
	}

	report, err := s.relay.PatchRecord(r.Context(), ev)
	switch {
	case err == nil:
		obs.WebhookRequest(endpoint, "delivered")
		slog.Debug("Patch record handled", "request_id", reqID, "boss", ev.Head().BossID, "channels", len(report.Channels))
	case errors.Is(err, record.ErrStaleEra), errors.Is(err, notify.ErrSuppressed):
		obs.WebhookRequest(endpoint, "dropped")
		slog.Debug("Patch record dropped", "request_id", reqID, "boss", ev.Head().BossID, "reason", err)
	default:
		s.fail(w, endpoint, reqID, body, err)
		return
	}
	writeText(w, respSuccess)
}

func (s *Server) handleReportLog(w http.ResponseWriter, r *http.Request) {
	const endpoint = "reportlog"
	reqID, body, ok := s.readJSON(w, r, endpoint)
	if !ok {
		return
	}

	var payload record.ReportedLog
	if err := json.Unmarshal(body, &payload); err != nil {
		s.fail(w, endpoint, reqID, body, fmt.Errorf("%w: %v", record.ErrInvalidArgument, err))
		return
	}
	if err := s.relay.ReportedLog(r.Context(), payload); err != nil {
		s.fail(w, endpoint, reqID, body, err)
		return
	}
	obs.WebhookRequest(endpoint, "delivered")
	writeText(w, respSuccess)
}

func (s *Server) handleInternalMessage(w http.ResponseWriter, r *http.Request) {
	const endpoint = "internalmessage"
	reqID, body, ok := s.readJSON(w, r, endpoint)
	if !ok {
		return
	}

	var payload record.InternalMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		s.fail(w, endpoint, reqID, body, fmt.Errorf("%w: %v", record.ErrInvalidArgument, err))
		return
	}
	if err := s.relay.InternalMessage(r.Context(), payload); err != nil {
		s.fail(w, endpoint, reqID, body, err)
		return
	}
	obs.WebhookRequest(endpoint, "delivered")
	writeText(w, respSuccess)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.health(ctx); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	writeText(w, "ok")
}

// readJSON checks the content type and reads the body. On false the response
// has already been written.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, endpoint string) (string, []byte, bool) {
	reqID := uuid.NewString()

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		obs.WebhookRequest(endpoint, "unsupported")
		slog.Warn("Rejected webhook with unsupported content type", "request_id", reqID, "endpoint", endpoint, "content_type", r.Header.Get("Content-Type"))
		writeText(w, respUnsupported)
		return "", nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, endpoint, reqID, nil, fmt.Errorf("%w: read body: %v", record.ErrInvalidArgument, err))
		return "", nil, false
	}
	return reqID, body, true
}

func (s *Server) fail(w http.ResponseWriter, endpoint, reqID string, body []byte, err error) {
	obs.WebhookRequest(endpoint, "failed")
	slog.Error("Webhook request failed", "request_id", reqID, "endpoint", endpoint, "error", err, "payload", string(body))
	writeText(w, respFail)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s)
}
