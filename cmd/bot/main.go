// cmd/bot/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/bot"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/s3"
	"delivery-fleet-api-server/internal/storage/mongodb"
)

func main() {
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	log := logger.New(logger.Options{Namespace: "bot", Level: cfg.Log.Level, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	if cfg.Mongo.URI == "" || cfg.Bot.TelegramToken == "" {
		log.Error("mongo.uri and bot.telegramToken (TG_BOT_TOKEN) are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var uploader bot.Uploader
	if cfg.S3.Enabled() {
		u, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			log.Error("failed to init S3 uploader", logger.Error(err))
			os.Exit(1)
		}
		uploader = u
	} else {
		log.Warning("S3 not configured, documents are kept as telegram file ids")
	}

	b, err := bot.New(cfg.Bot.TelegramToken, store.Registration(), uploader, cfg.Bot.UploadFolder, log)
	if err != nil {
		log.Error("failed to start telegram bot", logger.Error(err))
		os.Exit(1)
	}
	go b.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("stopping bot")
	b.Stop()
}
