package http

import (
	"context"
	"strings"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/config"
	"github.com/jmehdipour/washcorner-notify/internal/dispatcher"
	"github.com/jmehdipour/washcorner-notify/internal/http/middleware"
	"github.com/jmehdipour/washcorner-notify/internal/logger"
	"github.com/jmehdipour/washcorner-notify/internal/metrics"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/service/notify"
	"github.com/jmehdipour/washcorner-notify/internal/service/statuschange"
	"github.com/jmehdipour/washcorner-notify/internal/settings"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

// Deps are the collaborators behind the /v1 routes.
type Deps struct {
	Router          NotificationRouter
	Settings        settings.Store
	Notifier        TransactionNotifier
	Status          StatusChanger
	Logs            repository.NotificationLogRepository
	Reports         repository.CHNotificationsRepository
	NewTrackingCode func() string
}

func NewServer(
	cfg config.Config,
	mysqlDB, clickhouseDB *sqlx.DB,
	rds *redis.Client,
	router *dispatcher.Router,
	store settings.Store,
) *Server {
	// repos (MySQL)
	customersRepo := repository.NewCustomersRepository(mysqlDB)
	transactionsRepo := repository.NewTransactionsRepository(mysqlDB)
	servicesRepo := repository.NewServicesRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)
	logRepo := repository.NewNotificationLogRepository(mysqlDB)

	// repos (ClickHouse)
	chNotificationsRepo := repository.NewCHNotificationsRepository(clickhouseDB)

	// services
	notifySvc := notify.New(transactionsRepo, customersRepo, servicesRepo, router, logger.Log)
	statusSvc := statuschange.New(mysqlDB, transactionsRepo, outboxRepo, cfg.Kafka.Topic)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	var limiterRedis redis.Cmdable
	if rds != nil {
		limiterRedis = rds
	}

	e := newEcho(cfg, Deps{
		Router:          router,
		Settings:        store,
		Notifier:        notifySvc,
		Status:          statusSvc,
		Logs:            logRepo,
		Reports:         chNotificationsRepo,
		NewTrackingCode: util.GenerateTrackingCode,
	}, limiterRedis)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{e: e}
}

func newEcho(cfg config.Config, d Deps, rds redis.Cmdable) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(echoLogLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), echoMid.Logger())

	// health
	e.GET("/healthz", healthHandler(d.Router))

	// middlewares
	authMW := middleware.APIKeyMiddleware(cfg.HTTP.APIKeys)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:key:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	gen := d.NewTrackingCode
	if gen == nil {
		gen = util.GenerateTrackingCode
	}

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.GET("/notifications/settings", getSettingsHandler(d.Settings))
	v1.PUT("/notifications/settings", putSettingsHandler(d.Settings))
	v1.POST("/notifications/test", testNotificationHandler(d.Router))
	v1.GET("/notifications/last", lastNotificationHandler(d.Router))
	v1.GET("/tracking-code", trackingCodeHandler(gen))
	v1.POST("/transactions/:id/notify", notifyTransactionHandler(d.Notifier, d.Logs))
	v1.PATCH("/transactions/:id/status", changeStatusHandler(d.Status))
	v1.GET("/reports/notifications", listNotificationsHandler(d.Reports))

	return e
}

func echoLogLevel(level string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
