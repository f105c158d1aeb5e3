package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/config"
	"github.com/harentsoaR/clinic-reception-api/internal/drivers"
	"github.com/harentsoaR/clinic-reception-api/internal/handlers"
	"github.com/harentsoaR/clinic-reception-api/internal/messaging"
	"github.com/harentsoaR/clinic-reception-api/internal/outbox"
	"github.com/harentsoaR/clinic-reception-api/internal/relay"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/session"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const revokedTokenCapacity = 10000

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the realtime relay and the outbox worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func runServer(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	if be.mongo != nil {
		if err := be.mongo.EnsureIndexes(ctx); err != nil {
			log.Error("could not ensure indexes; duplicate guards are not enforced", zap.Error(err))
		}
	}

	rdb, err := drivers.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	rabbit, err := drivers.NewRabbitMQConnection(cfg)
	if err != nil {
		return err
	}

	// A nil *SMSQueue must not reach the service as a non-nil interface.
	var sms services.SMSPublisher
	var smsQueue *messaging.SMSQueue
	if rabbit != nil {
		if smsQueue, err = messaging.NewSMSQueue(rabbit, cfg.RabbitMQ.SMSQueue, log); err != nil {
			return err
		}
		sms = smsQueue
	} else {
		log.Info("RABBITMQ_URL not set; patient SMS disabled")
	}

	hub := relay.NewHub(log)
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	if rdb != nil {
		bridge := relay.NewRedisBridge(rdb, cfg.Redis.Channel, log)
		hub.SetBridge(bridge)
		go func() {
			if err := bridge.Run(bridgeCtx, hub); err != nil {
				log.Error("relay bridge stopped", zap.Error(err))
			}
		}()
	}

	var revoker session.Revoker
	if rdb != nil {
		revoker = session.NewRedisRevoker(rdb)
	} else {
		revoker = session.NewMemoryRevoker(revokedTokenCapacity, cfg.JWTExpiry())
	}

	doctors := services.NewDoctorService(be.repos, cfg.DoctorCache.Size, cfg.DoctorCache.TTL, log)
	notifications := services.NewNotificationService(be.repos, sms, log)
	effects := services.NewEffectRunner(be.repos, notifications, hub, log)

	worker := outbox.NewWorker(be.repos.Outbox, effects, outbox.Options{
		PollInterval: cfg.Outbox.PollInterval,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BatchSize:    cfg.Outbox.BatchSize,
		RetryBackoff: cfg.Outbox.RetryBackoff,
		MaxBackoff:   cfg.Outbox.MaxBackoff,
	}, log)
	if rdb != nil {
		worker.SetLocker(outbox.NewRedisLock(rdb, outbox.DefaultLockKey, cfg.Outbox.LockTTL))
	}

	auth := services.NewAuthService(be.repos, doctors, utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.JWTExpiry()), revoker, log)
	h := &handlers.Handler{
		Auth:          auth,
		Appointments:  services.NewAppointmentService(be.repos, worker, log),
		Queue:         services.NewQueueService(be.repos, worker, log),
		Schedules:     services.NewScheduleService(be.repos, log),
		Notifications: notifications,
		Doctors:       doctors,
		Health:        be.health,
		Outbox:        be.failed,
		Log:           log,
	}

	socket := relay.NewHandler(hub, func(ctx context.Context, token string) error {
		_, err := auth.Authenticate(ctx, token)
		return err
	}, cfg.App.CORSOrigins, log)

	router := handlers.NewRouter(h, socket.ServeWS, handlers.RouterOptions{
		CORSOrigins:    cfg.App.CORSOrigins,
		RequestTimeout: cfg.App.RequestTimeout,
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		LoginRateBurst: cfg.Auth.LoginRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(workerCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err, ok := <-serverErr:
		if ok {
			runErr = err
			log.Error("server error", zap.Error(err))
		}
	}

	stopWorker()
	<-workerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	stopBridge()
	hub.Close()

	if err := be.close(shutdownCtx); err != nil {
		log.Warn("closing store", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if smsQueue != nil {
		_ = smsQueue.Close()
	}
	if rabbit != nil {
		_ = rabbit.Close()
	}

	log.Info("server stopped")
	return runErr
}
