package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/portal"
	"github.com/portalxml/portal-api/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles login, first access and password reset
type AuthHandler struct {
	portal *portal.Client
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(client *portal.Client, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{portal: client, logger: logger}
}

type credenciaisRequest struct {
	CNPJ  string `json:"cnpj"`
	Senha string `json:"senha"`
}

// Login handles CNPJ+password authentication
// @Summary Login
// @Description Authenticate with CNPJ and password, returning the session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body credenciaisRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req credenciaisRequest
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

	cnpj := utils.CleanCNPJ(req.CNPJ)
	if !utils.IsValidCNPJ(cnpj) {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"cnpj":       req.CNPJ,
		}).Warn("Invalid CNPJ on login")

		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid CNPJ format",
			Message:   "CNPJ deve conter 14 dígitos válidos",
			Code:      "INVALID_CNPJ",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	if req.Senha == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Missing password",
			Message:   "senha é obrigatória",
			Code:      "MISSING_PASSWORD",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	token, err := h.portal.Login(c.Request.Context(), cnpj, req.Senha)
	if err != nil {
		respondPortalError(c, h.logger, err)
		return
	}

	// Shared background monitors (fleet status, connected-set cache) run
	// on the stored token; per-session monitors carry the caller's own.
	h.portal.Tokens().Set(token)

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"cnpj":       cnpj,
	}).Info("Login succeeded")

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"timestamp": time.Now(),
	})
}

// PrimeiroAcesso handles first-access password registration
// @Summary First access
// @Description Register the password of a CNPJ on its first access
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body credenciaisRequest true "CNPJ and chosen password"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /auth/primeiro-acesso [post]
func (h *AuthHandler) PrimeiroAcesso(c *gin.Context) {
	var req credenciaisRequest
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

	cnpj := utils.CleanCNPJ(req.CNPJ)
	if !utils.IsValidCNPJ(cnpj) || req.Senha == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid credentials",
			Message:   "informe um CNPJ válido e uma senha",
			Code:      "INVALID_CREDENTIALS",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if err := h.portal.PrimeiroAcesso(c.Request.Context(), cnpj, req.Senha); err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SolicitarRedefinicao requests a password-reset e-mail
// @Summary Request password reset
// @Tags Auth
// @Accept json
// @Produce json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /auth/solicitar-redefinicao [post]
func (h *AuthHandler) SolicitarRedefinicao(c *gin.Context) {
	var req struct {
		CNPJ string `json:"cnpj"`
	}
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

	cnpj := utils.CleanCNPJ(req.CNPJ)
	if !utils.IsValidCNPJ(cnpj) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid CNPJ format",
			Message:   "CNPJ deve conter 14 dígitos válidos",
			Code:      "INVALID_CNPJ",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if err := h.portal.SolicitarRedefinicao(c.Request.Context(), cnpj); err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RedefinirSenha consumes a reset token and sets the new password
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /auth/redefinir-senha [post]
func (h *AuthHandler) RedefinirSenha(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
		Senha string `json:"senha"`
	}
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
	if req.Token == "" || req.Senha == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Missing fields",
			Message:   "token e senha são obrigatórios",
			Code:      "MISSING_FIELDS",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if err := h.portal.RedefinirSenha(c.Request.Context(), req.Token, req.Senha); err != nil {
		respondPortalError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
