// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/api/handlers"
	"delivery-fleet-api-server/internal/api/routes"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/database"
	"delivery-fleet-api-server/internal/delivery"
	"delivery-fleet-api-server/internal/gateway"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/s3"
	"delivery-fleet-api-server/internal/socket"
	"delivery-fleet-api-server/internal/storage/mongodb"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	log := logger.New(logger.Options{Namespace: "api", Level: cfg.Log.Level, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", logger.Error(err))
		os.Exit(1)
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. MongoDB
	mongoClient, err := mongodb.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Error("failed to connect to mongo", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	store, err := mongodb.New(ctx, mongoClient.Database(cfg.Mongo.DBName), cfg.Mongo.Transactions, log)
	if err != nil {
		log.Error("failed to prepare mongo collections", logger.Error(err))
		os.Exit(1)
	}

	// 3. Services
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token, cfg.Gateway.Timeout)
	hub := socket.NewHub(log)
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration)
	deliverySvc := delivery.NewService(store, gw, hub, log)
	adminSvc := admin.NewService(store.Admin(), tokens, log)

	if err := database.SeedAdmin(ctx, adminSvc, cfg.Admin, log); err != nil {
		log.Error("failed to seed admin", logger.Error(err))
		os.Exit(1)
	}

	// 4. Optional infrastructure
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warning("redis unreachable, rate limiting fails open", logger.Error(err))
		}
	}

	var uploader handlers.FileUploader
	if cfg.S3.Enabled() {
		u, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			log.Error("failed to init S3 uploader", logger.Error(err))
			os.Exit(1)
		}
		uploader = u
	} else {
		log.Warning("S3 not configured, /upload disabled")
	}

	router := routes.SetupRouter(routes.Deps{
		Config:   cfg,
		Delivery: deliverySvc,
		Admins:   adminSvc,
		Tokens:   tokens,
		Gateway:  gw,
		Hub:      hub,
		Uploader: uploader,
		Redis:    rdb,
		Log:      log,
	})

	// 5. Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("starting API server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}

	// Let unload calls started by completed routes finish.
	done := make(chan struct{})
	go func() {
		deliverySvc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warning("background gateway calls still running at exit")
	}
}
