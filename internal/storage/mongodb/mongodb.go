// internal/storage/mongodb/mongodb.go
package mongodb

import (
	"context"
	"fmt"
	"time"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	collShifts        = "driver_shifts"
	collRoutes        = "routes"
	collRouteLogs     = "route_update_logs"
	collAdmins        = "admins"
	collLabelScans    = "label_scans"
	collRegistrations = "registrations"
)

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Store implements storage.Storage on top of one MongoDB database.
type Store struct {
	db           *mongo.Database
	transactions bool
	log          logger.Logger

	shift        *shiftRepo
	route        *routeRepo
	admin        *adminRepo
	labelScan    *labelScanRepo
	registration *registrationRepo
}

var _ storage.Storage = (*Store)(nil)

// New wires the repositories and makes sure the indexes they rely on exist.
// The unique (driverShiftId, id) index on routes is what keeps concurrent
// routing-sheet syncs from inserting the same stop twice.
func New(ctx context.Context, db *mongo.Database, transactions bool, log logger.Logger) (*Store, error) {
	s := &Store{db: db, transactions: transactions, log: log}
	s.shift = &shiftRepo{coll: db.Collection(collShifts)}
	s.route = &routeRepo{store: s, coll: db.Collection(collRoutes), logs: db.Collection(collRouteLogs)}
	s.admin = &adminRepo{coll: db.Collection(collAdmins)}
	s.labelScan = &labelScanRepo{coll: db.Collection(collLabelScans)}
	s.registration = &registrationRepo{coll: db.Collection(collRegistrations)}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Shift() storage.ShiftRepo               { return s.shift }
func (s *Store) Route() storage.RouteRepo               { return s.route }
func (s *Store) Admin() storage.AdminRepo               { return s.admin }
func (s *Store) LabelScan() storage.LabelScanRepo       { return s.labelScan }
func (s *Store) Registration() storage.RegistrationRepo { return s.registration }

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collRoutes: {
			{Keys: bson.D{{Key: "driverShiftId", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "position", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		collRouteLogs: {
			{Keys: bson.D{{Key: "routeObjectId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		collAdmins: {
			{Keys: bson.D{{Key: "login", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collLabelScans: {
			{Keys: bson.D{{Key: "driverShiftId", Value: 1}}},
			{Keys: bson.D{{Key: "generalDeliveryCode", Value: 1}}},
		},
		collRegistrations: {
			{Keys: bson.D{{Key: "platform", Value: 1}, {Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// withTx runs fn inside a multi-document transaction when they are enabled,
// otherwise it runs fn directly.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
