package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediroute-data/common/database"
	"mediroute-data/common/logger"
	commonmqtt "mediroute-data/common/mqtt"
	commonredis "mediroute-data/common/redis"
	"mediroute-data/internal/config"
	httpapi "mediroute-data/internal/http"
	"mediroute-data/internal/mqtt"
	"mediroute-data/internal/repository"
	"mediroute-data/internal/service"
	"mediroute-data/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "mediroute-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := httpapi.NewHealthHandler(log)

	// Postgres（失败时回退到内存存储）
	var (
		db            *sql.DB
		patients      repository.PatientsRepository
		drivers       repository.DriversRepository
		notifications repository.NotificationsRepository
		contacts      repository.ContactsRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err != nil {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		} else if err := database.Migrate(d); err != nil {
			log.Warn("DB migration failed, falling back to memory", zap.Error(err))
			_ = database.Close(d)
		} else {
			db = d
			version, _ := database.MigrationVersion(db)
			log.Info("DB enabled for mediroute-data",
				zap.String("host", cfg.Database.Host),
				zap.String("database", cfg.Database.Database),
				zap.Int64("schema_version", version),
			)
		}
	}
	if db != nil {
		defer database.Close(db)
		patients = repository.NewPostgresPatientsRepository(db)
		drivers = repository.NewPostgresDriversRepository(db)
		notifications = repository.NewPostgresNotificationsRepository(db)
		contacts = repository.NewPostgresContactsRepository(db)
		health.AddCheck("postgres", db.PingContext)
	} else {
		patients = repository.NewMemoryPatientsRepo()
		drivers = repository.NewMemoryDriversRepo()
		notifications = repository.NewMemoryNotificationsRepo()
		contacts = repository.NewMemoryContactsRepo()
	}

	// Redis：未读数缓存 + 通知流
	var (
		redisClient *redis.Client
		kv          store.KV
		notifiers   []service.Notifier
	)
	if cfg.RedisEnabled {
		c := commonredis.NewRedisClient(&cfg.Redis)
		if err := commonredis.Ping(ctx, c); err != nil {
			log.Warn("Redis unavailable, unread counts are not cached", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = commonredis.Close(c)
		} else {
			redisClient = c
			defer commonredis.Close(redisClient)
			kv = store.NewRedisKV(redisClient)
			notifiers = append(notifiers, service.NewStreamNotifier(redisClient, service.NotificationStream, 10000))
			health.AddCheck("redis", func(ctx context.Context) error { return commonredis.Ping(ctx, redisClient) })
		}
	}

	// MQTT：推送到救护车终端
	if cfg.MQTT.Enabled {
		mc, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			log.Warn("MQTT enabled but connection failed", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		} else {
			defer mc.Disconnect()
			notifiers = append(notifiers, mqtt.NewNotificationPublisher(mc, cfg.MQTT.TopicPrefix, mc.QoS(), log))
			health.AddCheck("mqtt", func(context.Context) error {
				if !mc.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			})
		}
	}

	var hospital service.HospitalForwarder
	if cfg.Hospital.IntakeURL != "" {
		hospital = service.NewHospitalClient(cfg.Hospital.IntakeURL, cfg.Hospital.Timeout, log)
	}

	hub := httpapi.NewHub(log)
	mailbox := service.NewMailboxService(notifications, kv, log, notifiers...)
	mailbox.AddNotifier(hub)

	// 内存存储重启后计数从零开始，清掉上次进程留下的缓存
	if db == nil && kv != nil {
		if n, err := mailbox.FlushUnreadCache(ctx); err != nil {
			log.Warn("Failed to flush unread cache", zap.Error(err))
		} else if n > 0 {
			log.Info("Flushed stale unread counts", zap.Int("keys", n))
		}
	}

	patientSvc := service.NewPatientService(patients, drivers, mailbox, hospital, cfg.Hospital.DefaultName, log)
	driverSvc := service.NewDriverService(drivers, log)
	contactSvc := service.NewContactService(contacts, log)

	router := httpapi.NewRouter(log)
	router.RegisterPatientRoutes(httpapi.NewPatientsHandler(patientSvc, log))
	router.RegisterDriverRoutes(httpapi.NewDriversHandler(driverSvc, log))
	router.RegisterNotificationRoutes(httpapi.NewNotificationsHandler(mailbox, log))
	router.RegisterContactRoutes(httpapi.NewContactsHandler(contactSvc, log))
	router.RegisterWebSocketRoutes(hub)
	router.RegisterHealthRoutes(health)
	router.HandleHandler("/metrics", promhttp.Handler())
	router.RegisterStaticRoutes(cfg.StaticDir)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}
