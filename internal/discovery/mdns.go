// ABOUTME: mDNS discovery of hubs on the local network
// ABOUTME: Browses the hub's zeroconf service and reports host, port and TXT info
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the zeroconf service hubs advertise
const ServiceType = "_mass._tcp"

// DefaultTimeout is how long one browse round listens for answers
const DefaultTimeout = 3 * time.Second

// Config holds discovery configuration
type Config struct {
	// Timeout bounds each browse round (default 3s)
	Timeout time.Duration
}

// HubInfo describes a discovered hub
type HubInfo struct {
	Name          string
	Host          string
	Port          int
	ServerID      string
	ServerVersion string
	BaseURL       string
}

// Addr returns host:port
func (h *HubInfo) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// Manager browses for hubs
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	hubs   chan *HubInfo

	mu   sync.Mutex
	seen map[string]bool
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		hubs:   make(chan *HubInfo, 10),
		seen:   make(map[string]bool),
	}
}

// Browse searches for hubs until Stop. Each hub is reported once.
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		for _, hub := range query(m.config.Timeout) {
			if !m.markSeen(hub) {
				continue
			}
			log.Printf("Discovered hub: %s at %s", hub.Name, hub.Addr())

			select {
			case m.hubs <- hub:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

func (m *Manager) markSeen(hub *HubInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := hub.Addr()
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	return true
}

// Hubs returns the channel of discovered hubs
func (m *Manager) Hubs() <-chan *HubInfo {
	return m.hubs
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// Lookup runs one browse round and returns the first hub found
func Lookup(ctx context.Context, timeout time.Duration) (*HubInfo, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	found := make(chan []*HubInfo, 1)
	go func() { found <- query(timeout) }()

	select {
	case hubs := <-found:
		if len(hubs) == 0 {
			return nil, fmt.Errorf("no hub found via mDNS (%s)", ServiceType)
		}
		return hubs[0], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// query runs a single mDNS query for ServiceType
func query(timeout time.Duration) []*HubInfo {
	entries := make(chan *mdns.ServiceEntry, 16)
	var hubs []*HubInfo
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if hub := hubFromEntry(entry); hub != nil {
				hubs = append(hubs, hub)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true
	if err := mdns.Query(params); err != nil {
		log.Printf("mDNS query failed: %v", err)
	}
	close(entries)
	<-done
	return hubs
}

// hubFromEntry converts a service entry, skipping other services and
// entries without an IPv4 address
func hubFromEntry(entry *mdns.ServiceEntry) *HubInfo {
	if entry == nil || !strings.Contains(entry.Name, ServiceType) {
		return nil
	}
	if entry.AddrV4 == nil || entry.Port == 0 {
		return nil
	}

	hub := &HubInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "id", "server_id":
			hub.ServerID = value
		case "server_version":
			hub.ServerVersion = value
		case "base_url":
			hub.BaseURL = value
		}
	}
	return hub
}
