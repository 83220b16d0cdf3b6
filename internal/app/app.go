package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/school-auth-service/internal/config"
	"github.com/prperemyshlev/school-auth-service/internal/handler"
	"github.com/prperemyshlev/school-auth-service/internal/notify"
	"github.com/prperemyshlev/school-auth-service/internal/service"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"github.com/prperemyshlev/school-auth-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "school-auth-service"

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := infra.Repositories()
	clock := utils.SystemClock{}

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth metrics: %w", err)
	}

	notifier := newNotifier(cfg.Mail, logger)
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry.Duration, clock)

	otpManager := service.NewOTPManager(repos.Credentials, repos.User, notifier, clock, metrics, logger,
		service.OTPConfig{
			TTL:             cfg.Auth.OTPTTL.Duration,
			RefLength:       cfg.Auth.OTPRefLength,
			ConsumeOnVerify: cfg.Auth.ConsumeOTPOnVerify,
		},
	)
	sessionManager := service.NewSessionManager(repos.Session, repos.User, clock, logger)
	resetIssuer := service.NewResetIssuer(repos.User, repos.ResetToken, notifier, clock, metrics, logger,
		service.ResetConfig{
			TTL:         cfg.Auth.ResetTokenTTL.Duration,
			TokenLength: cfg.Auth.ResetTokenLength,
		},
	)

	authService := service.NewAuthService(service.AuthDeps{
		Users:       repos.User,
		Credentials: repos.Credentials,
		Verifier:    utils.NewBcryptVerifier(),
		Tokens:      jwtManager,
		OTP:         otpManager,
		Sessions:    sessionManager,
		Resets:      resetIssuer,
		Blacklist:   service.NewRedisTokenBlacklist(infra.Redis()),
		Clock:       clock,
		Metrics:     metrics,
		Logger:      logger,
	}, service.AuthConfig{
		BcryptCost: cfg.Security.BCryptCost,
		SessionTTL: cfg.Auth.SessionTTL.Duration,
	})

	rateLimiter := service.NewRedisRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra.HealthChecks())
	authHandler := handler.NewAuthHandler(authService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	limit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.RouteIPKey,
		logger,
	)
	setupRoutes(router, authHandler, authService, limit, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func newNotifier(cfg config.MailConfig, logger *zap.Logger) notify.Notifier {
	if cfg.Driver == config.MailDriverSMTP {
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			Timeout:  cfg.Timeout.Duration,
		})
	}
	return notify.NewLogNotifier(logger)
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	authHandler *handler.AuthHandler,
	authService service.AuthService,
	limit gin.HandlerFunc,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	requireAuth := handler.AuthMiddleware(authService)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limit, authHandler.Register)
			auth.POST("/login", limit, authHandler.Login)
			auth.POST("/login/otp", limit, authHandler.LoginWithOTP)
			auth.POST("/otp/verify", limit, authHandler.VerifyOTP)
			auth.POST("/otp/resend", limit, authHandler.ResendOTP)
			auth.POST("/forgot-password", limit, authHandler.ForgotPassword)
			auth.POST("/reset-password/validate", limit, authHandler.ValidateResetToken)

			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
			auth.GET("/sessions", requireAuth, authHandler.ListSessions)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
			zap.String("storage", a.config.Database.Driver),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	timeout := a.config.Server.ShutdownTimeout.Duration
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Drain requests before closing the stores they use
	serverErr := a.server.Shutdown(ctx)
	infraErr := a.infra.Shutdown(ctx)

	if err := errors.Join(serverErr, infraErr); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
