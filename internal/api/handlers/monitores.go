package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/monitor"
	"github.com/portalxml/portal-api/internal/services"
	"github.com/sirupsen/logrus"
)

// MonitoresHandler manages polling sessions. Each session mirrors one
// screen of the UI: client detail status, solicitação history or batch
// progress. The UI forwards page-visibility changes as suspend/resume
// calls and closes the session when the screen unmounts.
type MonitoresHandler struct {
	services *services.Container
	logger   *logrus.Logger
}

// NewMonitoresHandler creates a new monitors handler
func NewMonitoresHandler(container *services.Container, logger *logrus.Logger) *MonitoresHandler {
	return &MonitoresHandler{services: container, logger: logger}
}

type novoMonitorRequest struct {
	Kind      string `json:"kind"`
	ClienteID string `json:"cliente_id,omitempty"`
	LoteID    string `json:"lote_id,omitempty"`
}

// CriarMonitor opens a polling session and returns its id
// @Summary Open monitor session
// @Description Open a polling session of the given kind. The caller's token is captured at creation and used on every poll.
// @Tags Monitores
// @Accept json
// @Produce json
// @Param request body novoMonitorRequest true "Session kind and target"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /monitores [post]
func (h *MonitoresHandler) CriarMonitor(c *gin.Context) {
	var req novoMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid request format",
			Message:   err.Error(),
			Code:      "INVALID_REQUEST",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	// Polls outlive this request, so the session carries a client bound
	// to the token the caller presented at creation.
	client := portalFor(h.services.Portal, c)
	cfg := h.services.GetConfig().Polling

	var session monitor.Session
	switch req.Kind {
	case monitor.KindClientStatus:
		if req.ClienteID == "" {
			h.faltaCampo(c, "cliente_id")
			return
		}
		fetcher := services.NewConectadosCache(client, h.services.Cache, h.logger)
		session = monitor.NewClientStatus(req.ClienteID, cfg.ClientStatusInterval, cfg.StaleThreshold, fetcher, h.logger)

	case monitor.KindHistory:
		if req.ClienteID == "" {
			h.faltaCampo(c, "cliente_id")
			return
		}
		session = monitor.NewHistory(req.ClienteID, cfg.HistoryInterval, cfg.StaleThreshold, client, h.logger)

	case monitor.KindBatch:
		if req.LoteID == "" {
			h.faltaCampo(c, "lote_id")
			return
		}
		session = monitor.NewBatch(req.LoteID, cfg.BatchInterval, cfg.BatchMemberInterval, cfg.StaleThreshold, client, h.logger)

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Unknown monitor kind",
			Message:   "kind deve ser client-status, history ou batch",
			Code:      "UNKNOWN_KIND",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	id := h.services.Registry.Add(context.Background(), req.Kind, session)
	c.JSON(http.StatusCreated, gin.H{
		"id":        id,
		"kind":      req.Kind,
		"timestamp": time.Now(),
	})
}

// GetMonitor returns the current snapshot of a session
// @Summary Get monitor snapshot
// @Tags Monitores
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id} [get]
func (h *MonitoresHandler) GetMonitor(c *gin.Context) {
	session, kind, ok := h.services.Registry.Get(c.Param("id"))
	if !ok {
		h.naoEncontrado(c)
		return
	}

	switch m := session.(type) {
	case *monitor.ClientStatus:
		c.JSON(http.StatusOK, gin.H{"kind": kind, "status": m.Snapshot()})
	case *monitor.History:
		c.JSON(http.StatusOK, gin.H{"kind": kind, "historico": m.Snapshot()})
	case *monitor.Batch:
		c.JSON(http.StatusOK, gin.H{"kind": kind, "lote": m.Snapshot()})
	default:
		h.naoEncontrado(c)
	}
}

// GetEventos drains the pending notifications of a history session
// @Summary Drain history notifications
// @Description Return the pending pending→ready notifications and clear them. Each transition is delivered exactly once.
// @Tags Monitores
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id}/eventos [get]
func (h *MonitoresHandler) GetEventos(c *gin.Context) {
	session, _, ok := h.services.Registry.Get(c.Param("id"))
	if !ok {
		h.naoEncontrado(c)
		return
	}
	historico, ok := session.(*monitor.History)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Wrong monitor kind",
			Message:   "apenas sessões de histórico emitem eventos",
			Code:      "WRONG_KIND",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	eventos := historico.Eventos()
	if eventos == nil {
		eventos = []monitor.Evento{}
	}
	c.JSON(http.StatusOK, gin.H{"eventos": eventos})
}

// GetMembroURL returns the artifact URL of a fulfilled batch member
// @Summary Get member artifact URL
// @Description Return the XML bundle URL of a batch member, feeding the copy and download actions of the batch modal.
// @Tags Monitores
// @Produce json
// @Param id path string true "Session id"
// @Param clienteId path string true "Member client id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id}/membros/{clienteId}/url [get]
func (h *MonitoresHandler) GetMembroURL(c *gin.Context) {
	session, _, ok := h.services.Registry.Get(c.Param("id"))
	if !ok {
		h.naoEncontrado(c)
		return
	}
	lote, ok := session.(*monitor.Batch)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Wrong monitor kind",
			Message:   "apenas sessões de lote expõem URLs de membros",
			Code:      "WRONG_KIND",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	url, ok := lote.MembroURL(c.Param("clienteId"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "Artifact not ready",
			Message:   "o XML deste cliente ainda não está disponível",
			Code:      "ARTIFACT_PENDING",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Suspender pauses a session's schedules (page hidden)
// @Summary Suspend monitor
// @Tags Monitores
// @Param id path string true "Session id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id}/suspender [post]
func (h *MonitoresHandler) Suspender(c *gin.Context) {
	session, _, ok := h.services.Registry.Get(c.Param("id"))
	if !ok {
		h.naoEncontrado(c)
		return
	}
	session.Suspend()
	c.Status(http.StatusNoContent)
}

// Retomar fetches immediately and resumes the schedules (page visible)
// @Summary Resume monitor
// @Tags Monitores
// @Param id path string true "Session id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id}/retomar [post]
func (h *MonitoresHandler) Retomar(c *gin.Context) {
	session, _, ok := h.services.Registry.Get(c.Param("id"))
	if !ok {
		h.naoEncontrado(c)
		return
	}
	session.Resume()
	c.Status(http.StatusNoContent)
}

// Atualizar forces an immediate out-of-schedule fetch (refresh button)
// @Summary Refresh monitor
// @Tags Monitores
// @Param id path string true "Session id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id}/atualizar [post]
func (h *MonitoresHandler) Atualizar(c *gin.Context) {
	session, _, ok := h.services.Registry.Get(c.Param("id"))
	if !ok {
		h.naoEncontrado(c)
		return
	}
	session.Refresh()
	c.Status(http.StatusNoContent)
}

// ExcluirMonitor closes a session (screen unmounted)
// @Summary Close monitor
// @Tags Monitores
// @Param id path string true "Session id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /monitores/{id} [delete]
func (h *MonitoresHandler) ExcluirMonitor(c *gin.Context) {
	if !h.services.Registry.Remove(c.Param("id")) {
		h.naoEncontrado(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MonitoresHandler) faltaCampo(c *gin.Context, campo string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     "Missing field",
		Message:   campo + " é obrigatório para este tipo de monitor",
		Code:      "MISSING_FIELD",
		Fields:    map[string]string{campo: "obrigatório"},
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

func (h *MonitoresHandler) naoEncontrado(c *gin.Context) {
	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"session_id": c.Param("id"),
	}).Warn("Monitor session not found")

	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:     "Session not found",
		Message:   "sessão de monitoramento inexistente ou expirada",
		Code:      "SESSION_NOT_FOUND",
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
