package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barbershop/internal/auth"
	"barbershop/internal/config"
	"barbershop/internal/domain"
	"barbershop/internal/models"
	"barbershop/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SheetsMirror rewrites the whole spreadsheet from the database.
type SheetsMirror interface {
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error
}

// Deps are the collaborators behind the HTTP surface. Mailer, Sheets, Redis
// and DB are optional.
type Deps struct {
	Auth     *auth.Manager
	Workflow *service.BookingWorkflow
	Admin    *service.AdminService
	Mailer   domain.ConfirmationSender
	Sheets   SheetsMirror
	Redis    *redis.Client
	DB       Pinger
	Logger   *zerolog.Logger
}

// HTTPServer is the public JSON API.
type HTTPServer struct {
	cfg          *config.Config
	auth         *auth.Manager
	workflow     *service.BookingWorkflow
	admin        *service.AdminService
	mailer       domain.ConfirmationSender
	sheets       SheetsMirror
	db           Pinger
	adminLimiter *keyedLimiter
	engine       *gin.Engine
	server       *http.Server
	log          zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, deps Deps) (*HTTPServer, error) {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "http").Logger()
	}

	s := &HTTPServer{
		cfg:          cfg,
		auth:         deps.Auth,
		workflow:     deps.Workflow,
		admin:        deps.Admin,
		mailer:       deps.Mailer,
		sheets:       deps.Sheets,
		db:           deps.DB,
		adminLimiter: newKeyedLimiter(cfg.RateLimit.AdminRPS, cfg.RateLimit.AdminBurst),
		log:          logger,
	}

	publicLimit, err := newPublicLimiter(cfg.RateLimit.Public, deps.Redis, logger)
	if err != nil {
		return nil, err
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(requestID(), requestLogger(logger), recovery(logger), corsMiddleware(cfg.HTTP.AllowedOrigins))
	s.routes(engine, publicLimit)
	s.engine = engine

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           engine,
		ReadHeaderTimeout: config.Seconds(cfg.HTTP.ReadTimeout),
		WriteTimeout:      config.Seconds(cfg.HTTP.WriteTimeout),
	}
	return s, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "apikey", "x-client-info"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *HTTPServer) routes(r *gin.Engine, publicLimit gin.HandlerFunc) {
	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.GET("/services", s.handleServices)

	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", publicLimit, s.handleSignUp)
	authGroup.POST("/signin", publicLimit, s.handleSignIn)
	authGroup.POST("/refresh", publicLimit, s.handleRefresh)
	authGroup.POST("/signout", s.optionalSession(), requireSession(), s.handleSignOut)
	authGroup.GET("/session", s.optionalSession(), requireSession(), s.handleSession)

	v1.POST("/bookings", publicLimit, s.optionalSession(), s.handleCreateBooking)

	admin := v1.Group("/admin", s.optionalSession(), requireSession(), s.adminRateLimit())
	admin.GET("/bookings", s.handleListBookings)
	admin.GET("/bookings/export", s.handleExportBookings)
	admin.PATCH("/bookings/:id/status", s.handleUpdateStatus)
	admin.POST("/sheets/resync", s.handleResyncSheets)

	r.POST("/functions/v1/send-booking-confirmation", s.optionalSession(), requireSession(), s.handleSendConfirmation)
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
