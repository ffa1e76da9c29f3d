package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/handlers"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/middleware"
	"github.com/gravadigital/eventsoft-api/internal/response"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	services   *Services
}

// New creates a new server instance
func New(cfg *config.Config, svc *Services) *Server {
	return &Server{
		config:   cfg,
		services: svc,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: NewRouter(s.config, s.services),

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// NewRouter configures the HTTP router with middleware and routes
func NewRouter(cfg *config.Config, svc *Services) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/ping", func(c *gin.Context) {
		if svc.health != nil {
			if err := svc.health(c.Request.Context()); err != nil {
				logger.HTTP().Error("Health check failed", "error", err)
				response.ErrorResponseWithMessage(c, http.StatusServiceUnavailable, "UNHEALTHY", "database unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Eventsoft API is running",
			"status":  "healthy",
		})
	})

	setupAPIRoutes(router, cfg, svc)

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	origins := splitList(cfg.CORS.AllowOrigins)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	if methods := splitList(cfg.CORS.AllowMethods); len(methods) > 0 {
		corsCfg.AllowMethods = methods
	}
	if headers := splitList(cfg.CORS.AllowHeaders); len(headers) > 0 {
		corsCfg.AllowHeaders = headers
	}
	corsCfg.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	return corsCfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setupAPIRoutes configures all API routes
func setupAPIRoutes(router *gin.Engine, cfg *config.Config, svc *Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	registrationHandler := handlers.NewRegistrationHandler(svc.Registration, cfg)
	enrollmentHandler := handlers.NewEnrollmentHandler(svc.Enrollments, cfg)
	eventHandler := handlers.NewEventHandler(svc.Events, svc.Invitations, cfg)
	invitationHandler := handlers.NewInvitationHandler(svc.Invitations, cfg)
	evaluationHandler := handlers.NewEvaluationHandler(svc.Evaluation, cfg)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications, cfg)
	certificateHandler := handlers.NewCertificateHandler(svc.Certificates, cfg)

	session := middleware.RequireSession(svc.Auth)
	superadmin := middleware.RequireRole(account.RoleSuperadmin)
	eventAdmin := middleware.RequireRole(account.RoleEventAdmin)
	administrators := middleware.RequireRole(account.RoleEventAdmin, account.RoleSuperadmin)
	evaluator := middleware.RequireRole(account.RoleEvaluator)
	criteriaEditors := middleware.RequireRole(account.RoleEventAdmin, account.RoleEvaluator)
	participant := middleware.RequireRole(account.RoleParticipant)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", session, authHandler.Me)
		}

		api.GET("/registrations/confirm", registrationHandler.Confirm)
		api.GET("/me/enrollments", session, enrollmentHandler.Mine)

		events := api.Group("/events")
		{
			events.GET("", middleware.OptionalSession(svc.Auth), eventHandler.GetAllEvents)
			events.POST("", session, eventAdmin, eventHandler.CreateEvent)
			events.GET("/:id", eventHandler.GetEvent)
			events.PATCH("/:id/state", session, administrators, eventHandler.UpdateEventState)
			events.GET("/:id/statistics", session, administrators, eventHandler.Statistics)
			events.GET("/:id/capacity-ledger", session, administrators, eventHandler.CapacityLedger)
			events.PUT("/:id/assets/:asset", session, eventAdmin, eventHandler.UploadAsset)
			events.GET("/:id/assets/:asset", eventHandler.DownloadAsset)

			events.POST("/:id/registrations/:kind", registrationHandler.Register)
			events.DELETE("/:id/registrations/:kind", session, registrationHandler.Cancel)
			events.GET("/:id/enrollments", session, administrators, enrollmentHandler.List)

			events.GET("/:id/criteria", evaluationHandler.ListCriteria)
			events.POST("/:id/criteria", session, criteriaEditors, evaluationHandler.AddCriterion)
			events.GET("/:id/participants/:participant_id/progress", session, evaluator, evaluationHandler.Progress)
			events.GET("/:id/sheet", session, evaluator, evaluationHandler.Sheet)
			events.GET("/:id/my-scores", session, participant, evaluationHandler.MyScores)
			events.GET("/:id/scores", session, evaluationHandler.Breakdown)
			events.GET("/:id/ranking", session, evaluationHandler.Ranking)

			events.POST("/:id/notifications", session, eventAdmin, notificationHandler.Send)
			events.GET("/:id/notifications", session, eventAdmin, notificationHandler.History)

			events.GET("/:id/certificates/:kind/template", session, eventAdmin, certificateHandler.Template)
			events.PUT("/:id/certificates/:kind/template", session, eventAdmin, certificateHandler.SaveTemplate)
			events.GET("/:id/certificates/:kind/preview", session, eventAdmin, certificateHandler.Preview)
			events.POST("/:id/certificates/:kind/send", session, eventAdmin, certificateHandler.Send)
		}

		enrollments := api.Group("/enrollments", session)
		{
			enrollments.PATCH("/:id/state", eventAdmin, enrollmentHandler.Transition)
			enrollments.GET("/:id/qr", enrollmentHandler.QR)
			enrollments.GET("/:id/document", enrollmentHandler.Document)
		}

		criteria := api.Group("/criteria", session, criteriaEditors)
		{
			criteria.PUT("/:id", evaluationHandler.EditCriterion)
			criteria.DELETE("/:id", evaluationHandler.RemoveCriterion)
		}

		api.POST("/scores", session, evaluator, evaluationHandler.SubmitScore)

		invitations := api.Group("/invitations")
		{
			invitations.POST("", session, superadmin, invitationHandler.Issue)
			invitations.GET("", session, superadmin, invitationHandler.List)
			invitations.PATCH("/:id/state", session, superadmin, invitationHandler.UpdateState)
			invitations.POST("/:id/register", invitationHandler.RegisterAdmin)
		}
	}
}
