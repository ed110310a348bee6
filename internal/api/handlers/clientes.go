package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/services"
	"github.com/sirupsen/logrus"
)

// ClientesHandler handles client listing and account requests
type ClientesHandler struct {
	services *services.Container
	logger   *logrus.Logger
}

// NewClientesHandler creates a new clients handler
func NewClientesHandler(container *services.Container, logger *logrus.Logger) *ClientesHandler {
	return &ClientesHandler{services: container, logger: logger}
}

// GetClientes lists the accountant's clients with online badges
// @Summary List clients
// @Description List all clients with their current online indicator
// @Tags Clientes
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /clientes [get]
func (h *ClientesHandler) GetClientes(c *gin.Context) {
	client := portalFor(h.services.Portal, c)

	clientes, err := client.Clientes(c.Request.Context())
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}

	// The fleet monitor outlives requests; Start is idempotent, so the
	// first dashboard hit activates it and later ones are no-ops.
	h.services.Fleet.Start(context.Background())

	ids := make([]string, len(clientes))
	for i := range clientes {
		ids[i] = clientes[i].ID
	}
	badges := h.services.Fleet.OnlineFor(ids)
	for i := range clientes {
		clientes[i].Online = badges.Online[clientes[i].ID]
	}

	c.JSON(http.StatusOK, gin.H{
		"clientes":      clientes,
		"total":         len(clientes),
		"atualizado_em": badges.AtualizadoEm,
		"stale":         badges.Stale,
	})
}

// GetClientesMenu lists clients for the sidebar selector
// @Summary List clients (menu)
// @Tags Clientes
// @Produce json
// @Success 200 {array} models.Cliente
// @Failure 401 {object} ErrorResponse
// @Router /clientes/menu [get]
func (h *ClientesHandler) GetClientesMenu(c *gin.Context) {
	client := portalFor(h.services.Portal, c)

	clientes, err := client.ClientesMenu(c.Request.Context())
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, clientes)
}

// GetCliente fetches a single client with its online indicator
// @Summary Get client
// @Tags Clientes
// @Produce json
// @Param id path string true "Client id"
// @Success 200 {object} models.Cliente
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /clientes/{id} [get]
func (h *ClientesHandler) GetCliente(c *gin.Context) {
	id := c.Param("id")
	client := portalFor(h.services.Portal, c)

	cliente, err := client.Cliente(c.Request.Context(), id)
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}

	if set, err := h.services.Conectados.ClientesConectados(c.Request.Context()); err == nil {
		cliente.Online = set.Contains(cliente.ID)
	} else {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"cliente_id": id,
			"error":      err.Error(),
		}).Warn("Connected-set lookup failed, returning client without badge")
	}

	c.JSON(http.StatusOK, cliente)
}

// GetConta fetches the accountant profile
// @Summary Get account
// @Tags Conta
// @Produce json
// @Success 200 {object} models.Conta
// @Failure 401 {object} ErrorResponse
// @Router /conta [get]
func (h *ClientesHandler) GetConta(c *gin.Context) {
	client := portalFor(h.services.Portal, c)

	conta, err := client.Conta(c.Request.Context())
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conta)
}

// EnviarFeedback forwards free-text feedback
// @Summary Send feedback
// @Tags Conta
// @Accept json
// @Produce json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /feedback [post]
func (h *ClientesHandler) EnviarFeedback(c *gin.Context) {
	var req struct {
		Mensagem string `json:"mensagem"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Mensagem == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Missing message",
			Message:   "mensagem é obrigatória",
			Code:      "MISSING_MESSAGE",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	client := portalFor(h.services.Portal, c)
	if err := client.EnviarFeedback(c.Request.Context(), req.Mensagem); err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
