package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/api/handlers"
	"github.com/portalxml/portal-api/internal/api/middleware"
	"github.com/portalxml/portal-api/internal/config"
	"github.com/portalxml/portal-api/internal/services"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	Router   *gin.Engine
	config   *config.Config
	logger   *logrus.Logger
	services *services.Container
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, container *services.Container) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		services: container,
	}

	server.setupRouter()
	return server
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	// Global middleware
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())
	s.Router.Use(middleware.RequestID())

	rateLimiter := middleware.NewRateLimiter(s.config.Security.RateLimit)
	s.Router.Use(rateLimiter.Middleware())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(s.services, s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.Router.GET("/health/live", healthHandler.GetLiveness)

	// Swagger documentation
	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// API v1 routes
	v1 := s.Router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(s.services.Portal, s.logger)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/primeiro-acesso", authHandler.PrimeiroAcesso)
			auth.POST("/solicitar-redefinicao", authHandler.SolicitarRedefinicao)
			auth.POST("/redefinir-senha", authHandler.RedefinirSenha)
		}

		clientesHandler := handlers.NewClientesHandler(s.services, s.logger)
		solicitacoesHandler := handlers.NewSolicitacoesHandler(s.services, s.logger)
		clientes := v1.Group("/clientes")
		{
			clientes.GET("", clientesHandler.GetClientes)
			clientes.GET("/menu", clientesHandler.GetClientesMenu)
			clientes.GET("/:id", clientesHandler.GetCliente)
			clientes.GET("/:id/solicitacoes", solicitacoesHandler.GetSolicitacoes)
		}
		v1.GET("/conta", clientesHandler.GetConta)
		v1.POST("/feedback", clientesHandler.EnviarFeedback)

		solicitacoes := v1.Group("/solicitacoes")
		{
			solicitacoes.POST("", solicitacoesHandler.CriarSolicitacao)
			solicitacoes.GET("/download", solicitacoesHandler.Download)
			solicitacoes.DELETE("/:id", solicitacoesHandler.ExcluirSolicitacao)
		}

		lotesHandler := handlers.NewLotesHandler(s.services, s.logger)
		lotes := v1.Group("/lotes")
		{
			lotes.POST("", lotesHandler.CriarLote)
			lotes.GET("/:id", lotesHandler.GetLote)
		}

		monitoresHandler := handlers.NewMonitoresHandler(s.services, s.logger)
		monitores := v1.Group("/monitores")
		{
			monitores.POST("", monitoresHandler.CriarMonitor)
			monitores.GET("/:id", monitoresHandler.GetMonitor)
			monitores.DELETE("/:id", monitoresHandler.ExcluirMonitor)
			monitores.GET("/:id/eventos", monitoresHandler.GetEventos)
			monitores.GET("/:id/membros/:clienteId/url", monitoresHandler.GetMembroURL)
			monitores.POST("/:id/suspender", monitoresHandler.Suspender)
			monitores.POST("/:id/retomar", monitoresHandler.Retomar)
			monitores.POST("/:id/atualizar", monitoresHandler.Atualizar)
		}
	}

	// 404 handler
	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"message":   "The requested resource was not found",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
	})

	// 405 handler
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":     "Method Not Allowed",
			"message":   "The requested method is not allowed for this resource",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		})
	})
}
