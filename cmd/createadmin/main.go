// cmd/createadmin/main.go creates a back-office super admin.
//
//	createadmin --login ops --password 's3cret!'
//
// The password may come from ADMIN_PASSWORD instead of the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/storage/mongodb"

	"github.com/spf13/pflag"
)

func main() {
	login := pflag.StringP("login", "l", "", "admin login")
	password := pflag.StringP("password", "p", os.Getenv("ADMIN_PASSWORD"), "admin password")
	name := pflag.String("name", "Administrator", "display name")
	pflag.Parse()

	if *login == "" || *password == "" {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig("./config")
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Namespace: "createadmin", Level: cfg.Log.Level})
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	admins := admin.NewService(store.Admin(), auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration), log)
	a, err := admins.Create(ctx, admin.CreateParams{
		Login:    *login,
		Password: *password,
		Name:     *name,
		Claims:   map[string]interface{}{"superAdmin": true},
	})
	if err != nil {
		log.Error("admin not created", logger.Error(err))
		os.Exit(1)
	}
	fmt.Printf("Admin %s created (%s)\n", a.Login, a.ID.Hex())
}
