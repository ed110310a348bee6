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

// fakeSolicitacoes serves scripted responses, one per tick
type fakeSolicitacoes struct {
	mu        sync.Mutex
	respostas [][]models.Solicitacao
	chamadas  int
}

func (f *fakeSolicitacoes) Solicitacoes(ctx context.Context, clienteID string) ([]models.Solicitacao, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.chamadas
	if idx >= len(f.respostas) {
		idx = len(f.respostas) - 1
	}
	f.chamadas++
	resposta := make([]models.Solicitacao, len(f.respostas[idx]))
	copy(resposta, f.respostas[idx])
	return resposta, nil
}

func solicitacao(id string, criadaEm time.Time, xmlURL *string) models.Solicitacao {
	status := models.StatusPendente
	if xmlURL != nil {
		status = models.StatusConcluida
	}
	return models.Solicitacao{
		ID:        id,
		ClienteID: "cli-1",
		CriadaEm:  criadaEm,
		Status:    status,
		XMLURL:    xmlURL,
	}
}

func strPtr(s string) *string { return &s }

func aguardaChamadas(t *testing.T, f *fakeSolicitacoes, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.chamadas >= n
	}, 2*time.Second, time.Millisecond)
}

func TestHistoryNotificaTransicao(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeSolicitacoes{respostas: [][]models.Solicitacao{
		{solicitacao("s1", base, nil)},
		{solicitacao("s1", base, strPtr("https://storage.example.com/s1.zip"))},
	}}

	h := NewHistory("cli-1", 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	h.Start(context.Background())
	defer h.Stop()

	aguardaChamadas(t, fake, 2)

	require.Eventually(t, func() bool {
		snap := h.Snapshot()
		return len(snap.Solicitacoes) == 1 && snap.Solicitacoes[0].Concluida()
	}, 2*time.Second, time.Millisecond)

	eventos := h.Eventos()
	require.Len(t, eventos, 1)
	assert.Equal(t, EventoXMLPronto, eventos[0].Tipo)
	assert.Equal(t, "s1", eventos[0].SolicitacaoID)
	assert.Equal(t, "https://storage.example.com/s1.zip", eventos[0].XMLURL)

	// a notificação é única: ticks seguintes não repetem o evento
	aguardaChamadas(t, fake, 4)
	assert.Empty(t, h.Eventos())
}

func TestHistoryNaoNotificaItemNovo(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeSolicitacoes{respostas: [][]models.Solicitacao{
		{},
		{solicitacao("s2", base, strPtr("https://storage.example.com/s2.zip"))},
	}}

	h := NewHistory("cli-1", 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	h.Start(context.Background())
	defer h.Stop()

	aguardaChamadas(t, fake, 3)
	require.Eventually(t, func() bool {
		return len(h.Snapshot().Solicitacoes) == 1
	}, 2*time.Second, time.Millisecond)

	// item já nasce concluído: nenhuma notificação
	assert.Empty(t, h.Eventos())
}

func TestHistoryOrdenacaoDeterministica(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeSolicitacoes{respostas: [][]models.Solicitacao{
		{
			solicitacao("s1", base, nil),
			solicitacao("s3", base.Add(time.Hour), nil),
			solicitacao("s2", base, nil),
		},
	}}

	h := NewHistory("cli-1", 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	h.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool {
		return len(h.Snapshot().Solicitacoes) == 3
	}, 2*time.Second, time.Millisecond)

	snap := h.Snapshot()
	// mais recente primeiro; empate de timestamp desempatado por id
	assert.Equal(t, "s3", snap.Solicitacoes[0].ID)
	assert.Equal(t, "s2", snap.Solicitacoes[1].ID)
	assert.Equal(t, "s1", snap.Solicitacoes[2].ID)
}

func TestHistoryListaIgualNaoAtualiza(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeSolicitacoes{respostas: [][]models.Solicitacao{
		{solicitacao("s1", base, nil)},
	}}

	h := NewHistory("cli-1", 10*time.Millisecond, 3, fake, logger.New("error", "text"))
	h.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool {
		return len(h.Snapshot().Solicitacoes) == 1
	}, 2*time.Second, time.Millisecond)
	primeira := h.Snapshot().AtualizadoEm

	// payload estruturalmente idêntico: o snapshot não é trocado
	aguardaChamadas(t, fake, 5)
	assert.Equal(t, primeira, h.Snapshot().AtualizadoEm)
}
