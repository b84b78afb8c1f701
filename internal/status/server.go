// ABOUTME: Local status HTTP endpoint
// ABOUTME: Serves health, connection and built-in player state, and Prometheus metrics
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/mahub-go/pkg/builtin"
	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

// Hub reports connection state
type Hub interface {
	State() protocol.ConnectionState
	PendingCount() int
}

// Config holds status server configuration
type Config struct {
	Hub Hub

	// Builtin returns the built-in player state; nil when none runs
	Builtin func() builtin.Status

	// Gatherer serves /metrics; nil disables the route
	Gatherer prometheus.Gatherer
}

// StateResponse is the /state body
type StateResponse struct {
	Status          string               `json:"status"`
	Attempt         int                  `json:"attempt,omitempty"`
	RetryIn         string               `json:"retry_in,omitempty"`
	Error           string               `json:"error,omitempty"`
	Server          *protocol.ServerInfo `json:"server,omitempty"`
	PendingCommands int                  `json:"pending_commands"`
	BuiltinPlayer   *BuiltinState        `json:"builtin_player,omitempty"`
}

// BuiltinState is the built-in player part of /state
type BuiltinState struct {
	Registration string  `json:"registration"`
	PlayerID     string  `json:"player_id,omitempty"`
	MediaURL     string  `json:"media_url,omitempty"`
	Powered      bool    `json:"powered"`
	Playing      bool    `json:"playing"`
	Paused       bool    `json:"paused"`
	Position     float64 `json:"position"`
	Volume       int     `json:"volume"`
	Muted        bool    `json:"muted"`
}

// NewRouter builds the status routes
func NewRouter(config Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if config.Hub.State().Status != protocol.StatusConnected {
			http.Error(w, "not connected", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	})

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(buildState(config)); err != nil {
			log.Printf("Failed to write state: %v", err)
		}
	})

	if config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func buildState(config Config) StateResponse {
	s := config.Hub.State()
	resp := StateResponse{
		Status:          s.Status.String(),
		Attempt:         s.Attempt,
		Server:          s.ServerInfo,
		PendingCommands: config.Hub.PendingCount(),
	}
	if s.Status == protocol.StatusReconnecting {
		resp.RetryIn = s.Delay.String()
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}

	if config.Builtin != nil {
		b := config.Builtin()
		resp.BuiltinPlayer = &BuiltinState{
			Registration: b.Registration.String(),
			PlayerID:     b.PlayerID,
			MediaURL:     b.MediaURL,
			Powered:      b.Powered,
			Playing:      b.Playing,
			Paused:       b.Paused,
			Position:     b.Position,
			Volume:       b.Volume,
			Muted:        b.Muted,
		}
	}
	return resp
}

// Serve listens on addr until ctx ends
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Status endpoint listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
