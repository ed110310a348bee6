package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/portalxml/portal-api/internal/logger"
	"github.com/portalxml/portal-api/internal/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConectados struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeConectados) ClientesConectados(ctx context.Context) (portal.ConnectedSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	set := make(portal.ConnectedSet, len(f.ids))
	for _, id := range f.ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (f *fakeConectados) define(ids ...string) {
	f.mu.Lock()
	f.ids = ids
	f.mu.Unlock()
}

func TestClientStatusOnlineOffline(t *testing.T) {
	fake := &fakeConectados{}
	fake.define("cli-1", "cli-9")

	m := NewClientStatus("cli-1", 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Snapshot().Online
	}, 2*time.Second, time.Millisecond)

	fake.define("cli-9")
	require.Eventually(t, func() bool {
		return !m.Snapshot().Online
	}, 2*time.Second, time.Millisecond)
}

func TestFleetStatusBadges(t *testing.T) {
	fake := &fakeConectados{}
	fake.define("cli-1", "cli-3")

	m := NewFleetStatus(10*time.Millisecond, 3, fake, logger.New("error", "text"))
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.Connected()) == 2
	}, 2*time.Second, time.Millisecond)

	snap := m.OnlineFor([]string{"cli-1", "cli-2", "cli-3"})
	assert.True(t, snap.Online["cli-1"])
	assert.False(t, snap.Online["cli-2"])
	assert.True(t, snap.Online["cli-3"])
	assert.False(t, snap.Stale)
}
