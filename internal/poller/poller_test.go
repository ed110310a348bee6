package poller

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/portalxml/portal-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFetch(calls *atomic.Int64) Fetch {
	return func(ctx context.Context, seq uint64) error {
		calls.Add(1)
		return nil
	}
}

func TestImmediateFetchOnStart(t *testing.T) {
	var calls atomic.Int64
	p := New("teste", time.Hour, countingFetch(&calls), logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestVisibilityGating(t *testing.T) {
	var calls atomic.Int64
	p := New("teste", 30*time.Millisecond, countingFetch(&calls), logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	// aguarda a busca imediata
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)

	p.Suspend()
	require.Eventually(t, func() bool { return p.Suspended() }, time.Second, time.Millisecond)

	// enquanto oculto nenhum tick ocorre, independente do tempo decorrido
	base := calls.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, base, calls.Load())

	// ao voltar a ficar visível a busca é imediata
	p.Resume()
	assert.Eventually(t, func() bool { return calls.Load() == base+1 }, time.Second, time.Millisecond)
}

func TestIdempotentStart(t *testing.T) {
	var calls atomic.Int64
	p := New("teste", 40*time.Millisecond, countingFetch(&calls), logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	assert.False(t, p.Start(context.Background()))
	defer p.Stop()

	// janela amostrada: imediata + ~2 ticks; um segundo agendamento dobraria
	time.Sleep(110 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int64(4))
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestStopCancelsSchedule(t *testing.T) {
	var calls atomic.Int64
	p := New("teste", 20*time.Millisecond, countingFetch(&calls), logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)

	p.Stop()
	base := calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, base, calls.Load())

	// Stop é idempotente
	p.Stop()
}

func TestRefreshRunsOutOfSchedule(t *testing.T) {
	var calls atomic.Int64
	p := New("teste", time.Hour, countingFetch(&calls), logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	p.Refresh()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestFailureKeepsSchedule(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, seq uint64) error {
		n := calls.Add(1)
		if n <= 2 {
			return fmt.Errorf("tick %d falhou", n)
		}
		return nil
	}
	p := New("teste", 15*time.Millisecond, fetch, logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	// falhas não interrompem o agendamento e o contador zera após sucesso
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return p.ConsecutiveFailures() == 0 }, time.Second, time.Millisecond)
}

func TestApplyDiscardsStaleSequence(t *testing.T) {
	seqs := make(chan uint64, 16)
	fetch := func(ctx context.Context, seq uint64) error {
		seqs <- seq
		return nil
	}
	p := New("teste", time.Hour, fetch, logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	first := <-seqs
	p.Refresh()
	second := <-seqs
	require.Greater(t, second, first)

	// resposta atrasada da invocação antiga é descartada
	applied := p.Apply(first, func() { t.Fatal("resultado obsoleto aplicado") })
	assert.False(t, applied)

	ok := false
	assert.True(t, p.Apply(second, func() { ok = true }))
	assert.True(t, ok)
}

func TestApplyDiscardsAfterStop(t *testing.T) {
	seqs := make(chan uint64, 16)
	fetch := func(ctx context.Context, seq uint64) error {
		seqs <- seq
		return nil
	}
	p := New("teste", time.Hour, fetch, logger.New("error", "text"))
	require.True(t, p.Start(context.Background()))
	seq := <-seqs
	p.Stop()

	assert.False(t, p.Apply(seq, func() { t.Fatal("aplicado após teardown") }))
}
