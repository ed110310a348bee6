package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/portalxml/portal-api/internal/logger"
	"github.com/portalxml/portal-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLote serves a fixed lote and mutable per-member solicitações
type fakeLote struct {
	mu           sync.Mutex
	lote         models.Lote
	solicitacoes map[string][]models.Solicitacao
	chamadasLote int
}

func (f *fakeLote) Lote(ctx context.Context, id string) (*models.Lote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chamadasLote++
	lote := f.lote
	return &lote, nil
}

func (f *fakeLote) Solicitacoes(ctx context.Context, clienteID string) ([]models.Solicitacao, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lista := make([]models.Solicitacao, len(f.solicitacoes[clienteID]))
	copy(lista, f.solicitacoes[clienteID])
	return lista, nil
}

func (f *fakeLote) concluir(clienteID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lista := f.solicitacoes[clienteID]
	if len(lista) > 0 {
		lista[0].XMLURL = &url
		lista[0].Status = models.StatusConcluida
	}
}

func novoFakeLote(membros ...string) *fakeLote {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f := &fakeLote{
		lote:         models.Lote{ID: "lote-1", CriadoEm: base, Status: "processando"},
		solicitacoes: make(map[string][]models.Solicitacao),
	}
	for _, id := range membros {
		f.lote.Itens = append(f.lote.Itens, models.LoteItem{ClienteID: id, ClienteNome: "Cliente " + id})
		f.solicitacoes[id] = []models.Solicitacao{{
			ID:        "sol-" + id,
			ClienteID: id,
			CriadaEm:  base,
			Status:    models.StatusPendente,
		}}
	}
	return f
}

func TestProgresso(t *testing.T) {
	assert.Equal(t, 0, Progresso(0, 0))
	assert.Equal(t, 67, Progresso(2, 3))
	assert.Equal(t, 33, Progresso(1, 3))
	assert.Equal(t, 100, Progresso(4, 4))
	assert.Equal(t, 0, Progresso(0, 5))
}

func TestBatchProgressoParcial(t *testing.T) {
	fake := novoFakeLote("cli-1", "cli-2", "cli-3")
	fake.concluir("cli-1", "https://storage.example.com/1.zip")
	fake.concluir("cli-2", "https://storage.example.com/2.zip")

	b := NewBatch("lote-1", 20*time.Millisecond, 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool {
		return len(b.Snapshot().Membros) == 3 && !b.Snapshot().AtualizadoEm.IsZero()
	}, 2*time.Second, time.Millisecond)

	snap := b.Snapshot()
	assert.Equal(t, 67, snap.Progresso)
	assert.False(t, snap.Completo)

	// membros na ordem do lote
	require.Len(t, snap.Membros, 3)
	assert.Equal(t, "cli-1", snap.Membros[0].ClienteID)
	assert.True(t, snap.Membros[0].Concluido)
	assert.False(t, snap.Membros[2].Concluido)
}

func TestBatchCompletoEhReducaoAND(t *testing.T) {
	fake := novoFakeLote("cli-1", "cli-2")
	fake.concluir("cli-1", "https://storage.example.com/1.zip")

	b := NewBatch("lote-1", 20*time.Millisecond, 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool {
		return b.Snapshot().Progresso == 50
	}, 2*time.Second, time.Millisecond)
	assert.False(t, b.Snapshot().Completo)

	fake.concluir("cli-2", "https://storage.example.com/2.zip")
	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return snap.Completo && snap.Progresso == 100
	}, 2*time.Second, time.Millisecond)
}

func TestBatchTerminalSuspendeAgregado(t *testing.T) {
	fake := novoFakeLote("cli-1")
	fake.concluir("cli-1", "https://storage.example.com/1.zip")

	b := NewBatch("lote-1", 10*time.Millisecond, 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool {
		return b.Snapshot().Completo
	}, 2*time.Second, time.Millisecond)

	// com o lote terminal o poller agregado para de agendar
	require.Eventually(t, func() bool {
		return b.agregado.Suspended()
	}, 2*time.Second, time.Millisecond)

	fake.mu.Lock()
	base := fake.chamadasLote
	fake.mu.Unlock()
	time.Sleep(60 * time.Millisecond)
	fake.mu.Lock()
	depois := fake.chamadasLote
	fake.mu.Unlock()
	assert.Equal(t, base, depois)
}

func TestBatchMembroURL(t *testing.T) {
	fake := novoFakeLote("cli-1", "cli-2")
	fake.concluir("cli-1", "https://storage.example.com/1.zip")

	b := NewBatch("lote-1", 20*time.Millisecond, 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool {
		_, ok := b.MembroURL("cli-1")
		return ok
	}, 2*time.Second, time.Millisecond)

	url, ok := b.MembroURL("cli-1")
	require.True(t, ok)
	assert.Equal(t, "https://storage.example.com/1.zip", url)

	_, ok = b.MembroURL("cli-2")
	assert.False(t, ok)
}

func TestBatchSemMembros(t *testing.T) {
	fake := novoFakeLote()

	b := NewBatch("lote-1", 20*time.Millisecond, 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool {
		return !b.Snapshot().AtualizadoEm.IsZero()
	}, 2*time.Second, time.Millisecond)

	snap := b.Snapshot()
	assert.Equal(t, 0, snap.Progresso)
	assert.False(t, snap.Completo)
}
