package monitor

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/portalxml/portal-api/internal/models"
	"github.com/portalxml/portal-api/internal/poller"
	"github.com/sirupsen/logrus"
)

// SolicitacoesFetcher fetches the XML requests of a client
type SolicitacoesFetcher interface {
	Solicitacoes(ctx context.Context, clienteID string) ([]models.Solicitacao, error)
}

// EventoXMLPronto identifies the pending→ready transition notification
const EventoXMLPronto = "xml_pronto"

// Evento is a one-time notification surfaced to the UI as a toast
type Evento struct {
	Tipo          string    `json:"tipo"`
	SolicitacaoID string    `json:"solicitacao_id"`
	ClienteID     string    `json:"cliente_id"`
	XMLURL        string    `json:"xml_url"`
	Em            time.Time `json:"em"`
}

// Undrained events are capped; oldest are dropped first.
const maxEventosPendentes = 100

// HistorySnapshot is the published state of a history tracker
type HistorySnapshot struct {
	ClienteID    string               `json:"cliente_id"`
	Solicitacoes []models.Solicitacao `json:"solicitacoes"`
	AtualizadoEm time.Time            `json:"atualizado_em"`
	Stale        bool                 `json:"stale"`
}

// History polls a client's solicitação list (2s interval), keeps it
// sorted by request time and emits exactly one notification per item
// whose artifact URL appears between two observations.
type History struct {
	clienteID      string
	fetcher        SolicitacoesFetcher
	poller         *poller.Poller
	staleThreshold int

	mu           sync.Mutex
	atual        []models.Solicitacao
	eventos      []Evento
	atualizadoEm time.Time
}

// NewHistory creates a history tracker for one client
func NewHistory(clienteID string, interval time.Duration, staleThreshold int, fetcher SolicitacoesFetcher, logger *logrus.Logger) *History {
	h := &History{
		clienteID:      clienteID,
		fetcher:        fetcher,
		staleThreshold: staleThreshold,
	}
	h.poller = poller.New("history:"+clienteID, interval, h.tick, logger)
	return h
}

// ordenar sorts newest first; ids break timestamp ties so the order is
// deterministic across polls.
func ordenar(lista []models.Solicitacao) {
	sort.SliceStable(lista, func(i, j int) bool {
		if !lista[i].CriadaEm.Equal(lista[j].CriadaEm) {
			return lista[i].CriadaEm.After(lista[j].CriadaEm)
		}
		return lista[i].ID > lista[j].ID
	})
}

func (h *History) tick(ctx context.Context, seq uint64) error {
	lista, err := h.fetcher.Solicitacoes(ctx, h.clienteID)
	if err != nil {
		return err
	}
	ordenar(lista)

	h.poller.Apply(seq, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		// Identical payload: skip the swap and every diff side effect.
		// Equality is structural across all fields, totals included.
		if reflect.DeepEqual(lista, h.atual) {
			return
		}

		h.diff(lista)
		h.atual = lista
		h.atualizadoEm = time.Now()
	})
	return nil
}

// diff emits one event per item that existed in the previous snapshot
// without an artifact and now carries one. Brand-new items are not
// notified; only transitions are.
func (h *History) diff(nova []models.Solicitacao) {
	anterior := make(map[string]*models.Solicitacao, len(h.atual))
	for i := range h.atual {
		anterior[h.atual[i].ID] = &h.atual[i]
	}

	for i := range nova {
		prev, ok := anterior[nova[i].ID]
		if !ok {
			continue
		}
		if !prev.Concluida() && nova[i].Concluida() {
			h.eventos = append(h.eventos, Evento{
				Tipo:          EventoXMLPronto,
				SolicitacaoID: nova[i].ID,
				ClienteID:     h.clienteID,
				XMLURL:        *nova[i].XMLURL,
				Em:            time.Now(),
			})
		}
	}

	if excesso := len(h.eventos) - maxEventosPendentes; excesso > 0 {
		h.eventos = h.eventos[excesso:]
	}
}

// Eventos drains the pending notifications
func (h *History) Eventos() []Evento {
	h.mu.Lock()
	defer h.mu.Unlock()
	eventos := h.eventos
	h.eventos = nil
	return eventos
}

// Snapshot returns the current ordered list
func (h *History) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	lista := make([]models.Solicitacao, len(h.atual))
	copy(lista, h.atual)
	return HistorySnapshot{
		ClienteID:    h.clienteID,
		Solicitacoes: lista,
		AtualizadoEm: h.atualizadoEm,
		Stale:        h.poller.ConsecutiveFailures() >= h.staleThreshold,
	}
}

// Start activates the tracker
func (h *History) Start(ctx context.Context) { h.poller.Start(ctx) }

// Stop tears the tracker down
func (h *History) Stop() { h.poller.Stop() }

// Suspend pauses scheduling
func (h *History) Suspend() { h.poller.Suspend() }

// Resume fetches immediately and resumes scheduling
func (h *History) Resume() { h.poller.Resume() }

// Refresh forces an immediate fetch
func (h *History) Refresh() { h.poller.Refresh() }
