package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/portalxml/portal-api/internal/models"
	"github.com/portalxml/portal-api/internal/poller"
	"github.com/sirupsen/logrus"
)

// LoteFetcher fetches a batch and its members' solicitações
type LoteFetcher interface {
	Lote(ctx context.Context, id string) (*models.Lote, error)
	Solicitacoes(ctx context.Context, clienteID string) ([]models.Solicitacao, error)
}

// MembroStatus is the per-member completion state of a batch
type MembroStatus struct {
	ClienteID     string  `json:"cliente_id"`
	ClienteNome   string  `json:"cliente_nome"`
	SolicitacaoID string  `json:"solicitacao_id,omitempty"`
	XMLURL        *string `json:"xml_url"`
	Concluido     bool    `json:"concluido"`
}

// BatchSnapshot is the published state of a batch monitor
type BatchSnapshot struct {
	LoteID       string         `json:"lote_id"`
	Status       string         `json:"status"`
	CriadoEm     time.Time      `json:"criado_em"`
	Progresso    int            `json:"progresso"`
	Completo     bool           `json:"completo"`
	Membros      []MembroStatus `json:"membros"`
	AtualizadoEm time.Time      `json:"atualizado_em"`
	Stale        bool           `json:"stale"`
}

// Progresso computes the rounded completion percentage. Zero members
// yields 0, never a division by zero.
func Progresso(concluidos, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(concluidos) / float64(total)))
}

// Batch monitors one lote: the aggregate resource on a slow schedule
// (suspended once the batch is terminal) and the latest solicitação per
// member on a fast one. Completion is an AND-reduction over the member
// set recomputed every tick, never the server-reported status field.
type Batch struct {
	loteID         string
	fetcher        LoteFetcher
	agregado       *poller.Poller
	membros        *poller.Poller
	staleThreshold int

	mu           sync.Mutex
	lote         *models.Lote
	estado       map[string]MembroStatus
	atualizadoEm time.Time
	terminal     bool
}

// NewBatch creates a batch monitor
func NewBatch(loteID string, loteInterval, membroInterval time.Duration, staleThreshold int, fetcher LoteFetcher, logger *logrus.Logger) *Batch {
	b := &Batch{
		loteID:         loteID,
		fetcher:        fetcher,
		staleThreshold: staleThreshold,
		estado:         make(map[string]MembroStatus),
	}
	b.agregado = poller.New("lote:"+loteID, loteInterval, b.tickLote, logger)
	b.membros = poller.New("lote-membros:"+loteID, membroInterval, b.tickMembros, logger)
	return b
}

func (b *Batch) tickLote(ctx context.Context, seq uint64) error {
	lote, err := b.fetcher.Lote(ctx, b.loteID)
	if err != nil {
		return err
	}
	b.agregado.Apply(seq, func() {
		b.mu.Lock()
		b.lote = lote
		b.mu.Unlock()
	})
	return nil
}

func (b *Batch) tickMembros(ctx context.Context, seq uint64) error {
	b.mu.Lock()
	var itens []models.LoteItem
	if b.lote != nil {
		itens = append(itens, b.lote.Itens...)
	}
	b.mu.Unlock()

	// Member list still unknown: the aggregate tick has not landed yet.
	if itens == nil {
		lote, err := b.fetcher.Lote(ctx, b.loteID)
		if err != nil {
			return err
		}
		itens = lote.Itens
		b.membros.Apply(seq, func() {
			b.mu.Lock()
			if b.lote == nil {
				b.lote = lote
			}
			b.mu.Unlock()
		})
	}

	estado := make(map[string]MembroStatus, len(itens))
	for _, item := range itens {
		membro := MembroStatus{ClienteID: item.ClienteID, ClienteNome: item.ClienteNome}
		lista, err := b.fetcher.Solicitacoes(ctx, item.ClienteID)
		if err != nil {
			return err
		}
		if ultima := maisRecente(lista); ultima != nil {
			membro.SolicitacaoID = ultima.ID
			membro.XMLURL = ultima.XMLURL
			membro.Concluido = ultima.Concluida()
		}
		estado[item.ClienteID] = membro
	}

	b.membros.Apply(seq, func() {
		b.mu.Lock()
		b.estado = estado
		b.atualizadoEm = time.Now()
		completo := b.completoLocked()
		jaTerminal := b.terminal
		b.terminal = completo
		b.mu.Unlock()

		// Aggregate polling stops once the batch is terminal; member
		// snapshots already carry everything the modal shows.
		if completo && !jaTerminal {
			b.agregado.Suspend()
		}
	})
	return nil
}

// maisRecente returns the newest solicitação of the list
func maisRecente(lista []models.Solicitacao) *models.Solicitacao {
	if len(lista) == 0 {
		return nil
	}
	ordenar(lista)
	return &lista[0]
}

func (b *Batch) completoLocked() bool {
	if b.lote == nil || len(b.lote.Itens) == 0 {
		return false
	}
	for _, item := range b.lote.Itens {
		if !b.estado[item.ClienteID].Concluido {
			return false
		}
	}
	return true
}

// Snapshot publishes progress and per-member state in lote order
func (b *Batch) Snapshot() BatchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BatchSnapshot{
		LoteID:       b.loteID,
		AtualizadoEm: b.atualizadoEm,
		Stale:        b.membros.ConsecutiveFailures() >= b.staleThreshold,
	}
	if b.lote == nil {
		return snap
	}

	snap.Status = b.lote.Status
	snap.CriadoEm = b.lote.CriadoEm
	snap.Membros = make([]MembroStatus, 0, len(b.lote.Itens))
	concluidos := 0
	for _, item := range b.lote.Itens {
		membro, ok := b.estado[item.ClienteID]
		if !ok {
			membro = MembroStatus{ClienteID: item.ClienteID, ClienteNome: item.ClienteNome}
		}
		if membro.Concluido {
			concluidos++
		}
		snap.Membros = append(snap.Membros, membro)
	}
	snap.Progresso = Progresso(concluidos, len(snap.Membros))
	snap.Completo = b.completoLocked()
	return snap
}

// MembroURL returns the artifact URL of a member, when fulfilled. Feeds
// the copy/download actions of the batch modal.
func (b *Batch) MembroURL(clienteID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	membro, ok := b.estado[clienteID]
	if !ok || membro.XMLURL == nil || *membro.XMLURL == "" {
		return "", false
	}
	return *membro.XMLURL, true
}

// Start activates both pollers
func (b *Batch) Start(ctx context.Context) {
	b.agregado.Start(ctx)
	b.membros.Start(ctx)
}

// Stop tears both pollers down
func (b *Batch) Stop() {
	b.agregado.Stop()
	b.membros.Stop()
}

// Suspend pauses both schedules (modal hidden along with the page).
// Minimizing the modal does NOT suspend; the monitor keeps polling.
func (b *Batch) Suspend() {
	b.agregado.Suspend()
	b.membros.Suspend()
}

// Resume fetches immediately and resumes both schedules
func (b *Batch) Resume() {
	b.mu.Lock()
	terminal := b.terminal
	b.mu.Unlock()
	if !terminal {
		b.agregado.Resume()
	}
	b.membros.Resume()
}

// Refresh forces an immediate re-fetch of both resources, independent
// of the schedules (manual refresh button).
func (b *Batch) Refresh() {
	b.mu.Lock()
	terminal := b.terminal
	b.mu.Unlock()
	if !terminal {
		b.agregado.Refresh()
	}
	b.membros.Refresh()
}
