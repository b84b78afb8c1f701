// ABOUTME: Hub connection helpers shared by commands
// ABOUTME: Resolves the hub address, connects and serves the status endpoint
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Resonate-Protocol/mahub-go/internal/discovery"
	"github.com/Resonate-Protocol/mahub-go/internal/status"
	"github.com/Resonate-Protocol/mahub-go/pkg/builtin"
	"github.com/Resonate-Protocol/mahub-go/pkg/mahub"
)

// session is a connected hub client plus its metrics registry
type session struct {
	client   *mahub.Client
	registry *prometheus.Registry
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolveHub returns the configured host and port, discovering the hub via
// mDNS when no host was given
func resolveHub(ctx context.Context, opts *globalOptions) (string, int, error) {
	if opts.host != "" {
		return opts.host, opts.port, nil
	}

	log.Printf("No host given, browsing for %s", discovery.ServiceType)
	hub, err := discovery.Lookup(ctx, discovery.DefaultTimeout)
	if err != nil {
		return "", 0, fmt.Errorf("hub discovery failed (use --host): %w", err)
	}
	log.Printf("Discovered hub %s at %s", hub.Name, hub.Addr())
	return hub.Host, hub.Port, nil
}

// connect resolves and connects to the hub
func connect(ctx context.Context, opts *globalOptions) (*session, error) {
	host, port, err := resolveHub(ctx, opts)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := mahub.NewClient(host, port,
		mahub.WithTimeout(opts.timeout),
		mahub.WithRegisterer(reg),
	)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s:%d: %w", host, port, err)
	}
	return &session{client: client, registry: reg}, nil
}

// serveStatus starts the status endpoint when --metrics-addr is set
func (s *session) serveStatus(ctx context.Context, opts *globalOptions, player *builtin.Player) {
	if opts.metricsAddr == "" {
		return
	}

	config := status.Config{Hub: s.client, Gatherer: s.registry}
	if player != nil {
		config.Builtin = player.State
	}

	go func() {
		if err := status.Serve(ctx, opts.metricsAddr, status.NewRouter(config)); err != nil {
			log.Printf("Status endpoint error: %v", err)
		}
	}()
}

// withHub runs fn against a connected client and disconnects afterwards
func withHub(opts *globalOptions, fn func(ctx context.Context, c *mahub.Client) error) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer s.client.Disconnect()

	return fn(ctx, s.client)
}
