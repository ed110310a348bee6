package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/models"
	"github.com/portalxml/portal-api/internal/services"
	"github.com/sirupsen/logrus"
)

// SolicitacoesHandler handles single-client XML requests
type SolicitacoesHandler struct {
	services *services.Container
	logger   *logrus.Logger
}

// NewSolicitacoesHandler creates a new solicitações handler
func NewSolicitacoesHandler(container *services.Container, logger *logrus.Logger) *SolicitacoesHandler {
	return &SolicitacoesHandler{services: container, logger: logger}
}

// GetSolicitacoes lists the XML requests of a client, newest first
// @Summary List requests
// @Tags Solicitacoes
// @Produce json
// @Param id path string true "Client id"
// @Success 200 {array} models.Solicitacao
// @Failure 401 {object} ErrorResponse
// @Router /clientes/{id}/solicitacoes [get]
func (h *SolicitacoesHandler) GetSolicitacoes(c *gin.Context) {
	client := portalFor(h.services.Portal, c)

	lista, err := client.Solicitacoes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lista)
}

// CriarSolicitacao creates a single XML request. Creation requires the
// client's emitter to be online at the moment of submission.
// @Summary Create request
// @Tags Solicitacoes
// @Accept json
// @Produce json
// @Param request body models.NovaSolicitacao true "New request"
// @Success 201 {object} models.Solicitacao
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /solicitacoes [post]
func (h *SolicitacoesHandler) CriarSolicitacao(c *gin.Context) {
	requestID := c.GetString("request_id")

	var nova models.NovaSolicitacao
	if err := c.ShouldBindJSON(&nova); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid request format",
			Message:   err.Error(),
			Code:      "INVALID_REQUEST",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if errs := nova.Validate(); errs != nil {
		respondValidation(c, errs)
		return
	}

	set, err := h.services.Conectados.ClientesConectados(c.Request.Context())
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	if !set.Contains(nova.ClienteID) {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"cliente_id": nova.ClienteID,
		}).Warn("Request creation rejected, client offline")

		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "Client offline",
			Message:   "o emissor do cliente está offline; a solicitação só pode ser criada com o emissor conectado",
			Code:      "CLIENTE_OFFLINE",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	client := portalFor(h.services.Portal, c)
	criada, err := client.CriarSolicitacao(c.Request.Context(), nova)
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":     requestID,
		"cliente_id":     nova.ClienteID,
		"solicitacao_id": criada.ID,
	}).Info("Request created")

	c.JSON(http.StatusCreated, criada)
}

// ExcluirSolicitacao deletes an XML request
// @Summary Delete request
// @Tags Solicitacoes
// @Param id path string true "Request id"
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Router /solicitacoes/{id} [delete]
func (h *SolicitacoesHandler) ExcluirSolicitacao(c *gin.Context) {
	client := portalFor(h.services.Portal, c)

	if err := client.ExcluirSolicitacao(c.Request.Context(), c.Param("id")); err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Download streams the XML bundle of a fulfilled request through the
// API, so the browser never talks to the backend directly.
// @Summary Download XML bundle
// @Tags Solicitacoes
// @Produce octet-stream
// @Param url query string true "Artifact URL reported by the request"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /solicitacoes/download [get]
func (h *SolicitacoesHandler) Download(c *gin.Context) {
	artifactURL := c.Query("url")
	if artifactURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Missing url",
			Message:   "informe a URL do artefato",
			Code:      "MISSING_URL",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	client := portalFor(h.services.Portal, c)
	body, contentType, err := client.Download(c.Request.Context(), artifactURL)
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Warn("Artifact stream interrupted")
	}
}
