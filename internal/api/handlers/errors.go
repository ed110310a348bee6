package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/models"
	"github.com/portalxml/portal-api/internal/portal"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the error envelope of every endpoint
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Path      string            `json:"path"`
}

// tokenFrom extracts the caller's bearer token, when present
func tokenFrom(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// portalFor returns a client bound to the caller's session token when
// the request carries one, otherwise the shared client.
func portalFor(base *portal.Client, c *gin.Context) *portal.Client {
	if token := tokenFrom(c); token != "" {
		return base.WithToken(token)
	}
	return base
}

// respondValidation surfaces field-level validation errors inline
func respondValidation(c *gin.Context, errs models.ValidationErrors) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:     "Validation failed",
		Message:   errs.Error(),
		Code:      "VALIDATION",
		Fields:    errs,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// respondPortalError maps backend client errors onto HTTP responses:
// expired tokens become 401 (the UI redirects to login), business
// errors keep their message, malformed upstream payloads become 502.
func respondPortalError(c *gin.Context, logger *logrus.Logger, err error) {
	requestID := c.GetString("request_id")
	path := c.Request.URL.Path

	var apiErr *portal.APIError
	var decodeErr *portal.DecodeError

	switch {
	case errors.Is(err, portal.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:     "Unauthorized",
			Message:   "sessão expirada, faça login novamente",
			Code:      "SESSION_EXPIRED",
			Timestamp: time.Now(),
			Path:      path,
		})

	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status > 499 {
			status = http.StatusBadGateway
		}
		c.JSON(status, ErrorResponse{
			Error:     "Backend error",
			Message:   apiErr.Message,
			Code:      apiErr.Code,
			Timestamp: time.Now(),
			Path:      path,
		})

	case errors.As(err, &decodeErr):
		logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Backend returned malformed payload")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     "Bad Gateway",
			Message:   "resposta inválida do servidor, tente novamente",
			Code:      "UPSTREAM_DECODE",
			Timestamp: time.Now(),
			Path:      path,
		})

	default:
		logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Backend request failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     "Bad Gateway",
			Message:   "erro ao comunicar com o servidor, tente novamente",
			Code:      "UPSTREAM",
			Timestamp: time.Now(),
			Path:      path,
		})
	}
}
