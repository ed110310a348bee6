package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/models"
	"github.com/portalxml/portal-api/internal/services"
	"github.com/sirupsen/logrus"
)

// LotesHandler handles multi-client batch requests
type LotesHandler struct {
	services *services.Container
	logger   *logrus.Logger
}

// NewLotesHandler creates a new batch handler
func NewLotesHandler(container *services.Container, logger *logrus.Logger) *LotesHandler {
	return &LotesHandler{services: container, logger: logger}
}

// CriarLote creates a batch request. All selected clients must be
// online; a single offline member rejects the whole batch.
// @Summary Create batch
// @Tags Lotes
// @Accept json
// @Produce json
// @Param request body models.NovoLote true "New batch"
// @Success 201 {object} models.Lote
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /lotes [post]
func (h *LotesHandler) CriarLote(c *gin.Context) {
	requestID := c.GetString("request_id")

	var novo models.NovoLote
	if err := c.ShouldBindJSON(&novo); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid request format",
			Message:   err.Error(),
			Code:      "INVALID_REQUEST",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if errs := novo.Validate(); errs != nil {
		respondValidation(c, errs)
		return
	}

	set, err := h.services.Conectados.ClientesConectados(c.Request.Context())
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	var offline []string
	for _, id := range novo.ClienteIDs {
		if !set.Contains(id) {
			offline = append(offline, id)
		}
	}
	if len(offline) > 0 {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"offline":    offline,
		}).Warn("Batch creation rejected, offline members")

		c.JSON(http.StatusConflict, gin.H{
			"error":     "Clients offline",
			"message":   "todos os clientes selecionados precisam estar com o emissor conectado",
			"code":      "CLIENTES_OFFLINE",
			"offline":   offline,
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
		return
	}

	client := portalFor(h.services.Portal, c)
	lote, err := client.CriarLote(c.Request.Context(), novo)
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"lote_id":    lote.ID,
		"membros":    len(novo.ClienteIDs),
	}).Info("Batch created")

	c.JSON(http.StatusCreated, lote)
}

// GetLote fetches a batch with its member list
// @Summary Get batch
// @Tags Lotes
// @Produce json
// @Param id path string true "Batch id"
// @Success 200 {object} models.Lote
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /lotes/{id} [get]
func (h *LotesHandler) GetLote(c *gin.Context) {
	client := portalFor(h.services.Portal, c)

	lote, err := client.Lote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lote)
}
