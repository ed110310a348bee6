// Package monitor holds the portal's polling instantiations: online
// status checks, the solicitação history tracker and the batch progress
// monitor. Each one is a thin state holder around a poller.Poller.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/portalxml/portal-api/internal/poller"
	"github.com/portalxml/portal-api/internal/portal"
	"github.com/sirupsen/logrus"
)

// ConnectedFetcher fetches the set of online client ids
type ConnectedFetcher interface {
	ClientesConectados(ctx context.Context) (portal.ConnectedSet, error)
}

// ClientStatusSnapshot is the published state of a single-client check
type ClientStatusSnapshot struct {
	ClienteID    string    `json:"cliente_id"`
	Online       bool      `json:"online"`
	AtualizadoEm time.Time `json:"atualizado_em"`
	Stale        bool      `json:"stale"`
}

// ClientStatus polls the connected set and keeps the online flag of one
// client (client detail screen, 3s interval).
type ClientStatus struct {
	clienteID      string
	fetcher        ConnectedFetcher
	poller         *poller.Poller
	staleThreshold int

	mu           sync.RWMutex
	online       bool
	atualizadoEm time.Time
}

// NewClientStatus creates a single-client status monitor
func NewClientStatus(clienteID string, interval time.Duration, staleThreshold int, fetcher ConnectedFetcher, logger *logrus.Logger) *ClientStatus {
	m := &ClientStatus{
		clienteID:      clienteID,
		fetcher:        fetcher,
		staleThreshold: staleThreshold,
	}
	m.poller = poller.New("client-status:"+clienteID, interval, m.tick, logger)
	return m
}

func (m *ClientStatus) tick(ctx context.Context, seq uint64) error {
	set, err := m.fetcher.ClientesConectados(ctx)
	if err != nil {
		return err
	}
	m.poller.Apply(seq, func() {
		m.mu.Lock()
		m.online = set.Contains(m.clienteID)
		m.atualizadoEm = time.Now()
		m.mu.Unlock()
	})
	return nil
}

// Snapshot returns the current state. Stale is set after the configured
// number of consecutive failed ticks.
func (m *ClientStatus) Snapshot() ClientStatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ClientStatusSnapshot{
		ClienteID:    m.clienteID,
		Online:       m.online,
		AtualizadoEm: m.atualizadoEm,
		Stale:        m.poller.ConsecutiveFailures() >= m.staleThreshold,
	}
}

// Start activates the monitor
func (m *ClientStatus) Start(ctx context.Context) { m.poller.Start(ctx) }

// Stop tears the monitor down
func (m *ClientStatus) Stop() { m.poller.Stop() }

// Suspend pauses scheduling (page hidden)
func (m *ClientStatus) Suspend() { m.poller.Suspend() }

// Resume fetches immediately and resumes scheduling (page visible)
func (m *ClientStatus) Resume() { m.poller.Resume() }

// Refresh forces an immediate fetch
func (m *ClientStatus) Refresh() { m.poller.Refresh() }

// FleetStatusSnapshot is the published state of the dashboard-wide check
type FleetStatusSnapshot struct {
	Online       map[string]bool `json:"online"`
	AtualizadoEm time.Time       `json:"atualizado_em"`
	Stale        bool            `json:"stale"`
}

// FleetStatus polls the connected set once for the whole dashboard
// (5s interval) and answers membership for any listed client.
type FleetStatus struct {
	fetcher        ConnectedFetcher
	poller         *poller.Poller
	staleThreshold int

	mu           sync.RWMutex
	connected    portal.ConnectedSet
	atualizadoEm time.Time
}

// NewFleetStatus creates the fleet-wide status monitor
func NewFleetStatus(interval time.Duration, staleThreshold int, fetcher ConnectedFetcher, logger *logrus.Logger) *FleetStatus {
	m := &FleetStatus{
		fetcher:        fetcher,
		staleThreshold: staleThreshold,
		connected:      portal.ConnectedSet{},
	}
	m.poller = poller.New("fleet-status", interval, m.tick, logger)
	return m
}

func (m *FleetStatus) tick(ctx context.Context, seq uint64) error {
	set, err := m.fetcher.ClientesConectados(ctx)
	if err != nil {
		return err
	}
	m.poller.Apply(seq, func() {
		m.mu.Lock()
		m.connected = set
		m.atualizadoEm = time.Now()
		m.mu.Unlock()
	})
	return nil
}

// Connected returns the last observed connected set
func (m *FleetStatus) Connected() portal.ConnectedSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// OnlineFor builds the per-client badge map for the given ids
func (m *FleetStatus) OnlineFor(ids []string) FleetStatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	online := make(map[string]bool, len(ids))
	for _, id := range ids {
		online[id] = m.connected.Contains(id)
	}
	return FleetStatusSnapshot{
		Online:       online,
		AtualizadoEm: m.atualizadoEm,
		Stale:        m.poller.ConsecutiveFailures() >= m.staleThreshold,
	}
}

// Start activates the monitor
func (m *FleetStatus) Start(ctx context.Context) { m.poller.Start(ctx) }

// Stop tears the monitor down
func (m *FleetStatus) Stop() { m.poller.Stop() }

// Suspend pauses scheduling
func (m *FleetStatus) Suspend() { m.poller.Suspend() }

// Resume fetches immediately and resumes scheduling
func (m *FleetStatus) Resume() { m.poller.Resume() }

// Refresh forces an immediate fetch
func (m *FleetStatus) Refresh() { m.poller.Refresh() }
