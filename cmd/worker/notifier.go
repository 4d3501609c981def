package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/config"
	"github.com/jmehdipour/washcorner-notify/internal/db"
	"github.com/jmehdipour/washcorner-notify/internal/dispatcher"
	"github.com/jmehdipour/washcorner-notify/internal/kafka"
	"github.com/jmehdipour/washcorner-notify/internal/logger"
	"github.com/jmehdipour/washcorner-notify/internal/metrics"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/service/notify"
	"github.com/jmehdipour/washcorner-notify/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume transaction status changes and notify customers",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	defer func() { _ = logger.Log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connection (MySQL)
	dbx, err := db.NewMySQLConnection(cfg.MySQL)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	// 3) redis only backs the shared dedupe memory
	var rds redis.Cmdable
	if cfg.Notify.DedupeBackend == "redis" {
		client, err := db.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = client.Close() }()
		rds = client
	}

	// 4) router + notify service
	router, _, err := dispatcher.NewRouterFromConfig(cfg, rds, logger.Log)
	if err != nil {
		return fmt.Errorf("notification router: %w", err)
	}
	notifySvc := notify.New(
		repository.NewTransactionsRepository(dbx),
		repository.NewCustomersRepository(dbx),
		repository.NewServicesRepository(dbx),
		router,
		logger.Log,
	)

	// 5) kafka consumer
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = "transactions.status"
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "washcorner-notifier"
	}

	consumer := kafka.NewConsumer(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewNotifierKafka(consumer, notifySvc, repository.NewNotificationLogRepository(dbx), logger.Log)

	// tune knobs
	if cfg.Worker.Workers > 0 {
		w.Workers = cfg.Worker.Workers
	}
	if cfg.Worker.BatchSize > 0 {
		w.BatchSize = cfg.Worker.BatchSize
	}
	if cfg.Worker.BatchWait > 0 {
		w.BatchWait = cfg.Worker.BatchWait
	}

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("notifier started",
		zap.String("topic", topic),
		zap.String("group", groupID),
		zap.Int("workers", w.Workers),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
	)

	return w.Run(ctx)
}
