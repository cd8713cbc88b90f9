// internal/storage/mongodb/route_repo.go
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const logInsertAttempts = 5

type routeRepo struct {
	store *Store
	coll  *mongo.Collection
	logs  *mongo.Collection
}

func (r *routeRepo) InsertMissing(ctx context.Context, routes []models.Route) (int, error) {
	if len(routes) == 0 {
		return 0, nil
	}

	writes := make([]mongo.WriteModel, 0, len(routes))
	for i := range routes {
		doc := routes[i]
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		// $setOnInsert only: a stop that is already stored keeps every field,
		// including its status and proof of delivery.
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"driverShiftId": doc.DriverShiftID, "id": doc.RouteID}).
			SetUpdate(bson.M{"$setOnInsert": doc}).
			SetUpsert(true))
	}

	var inserted int
	insert := func(ctx context.Context) error {
		res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return err
		}
		inserted = int(res.UpsertedCount)
		return nil
	}

	err := r.store.withTx(ctx, insert)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent sync of the same shift inserted some of these stops
		// between our filter match and insert. Re-running is a no-op for them.
		r.store.log.Warning("route upsert raced with a concurrent sync, retrying", logger.Error(err))
		err = r.store.withTx(ctx, insert)
	}
	if err != nil {
		return 0, fmt.Errorf("insert missing routes: %w", err)
	}
	return inserted, nil
}

func routeFilter(f models.RouteQueryFilter) bson.M {
	filter := bson.M{}
	if !f.DriverShiftID.IsZero() {
		filter["driverShiftId"] = f.DriverShiftID
	}
	if f.DriverCode != "" {
		filter["driverCode"] = f.DriverCode
	}
	if f.VehicleCode != "" {
		filter["vehicleCode"] = f.VehicleCode
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	createdAt := bson.M{}
	if f.CreatedFrom != nil {
		createdAt["$gte"] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		createdAt["$lt"] = *f.CreatedTo
	}
	if len(createdAt) > 0 {
		filter["createdAt"] = createdAt
	}
	return filter
}

func (r *routeRepo) List(ctx context.Context, f models.RouteQueryFilter) ([]models.Route, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := r.coll.Find(ctx, routeFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var routes []models.Route
	if err := cursor.All(ctx, &routes); err != nil {
		return nil, err
	}
	if routes == nil {
		routes = []models.Route{}
	}
	return routes, nil
}

func (r *routeRepo) Count(ctx context.Context, f models.RouteQueryFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, routeFilter(f))
}

func (r *routeRepo) findOne(ctx context.Context, filter bson.M) (*models.Route, error) {
	var route models.Route
	err := r.coll.FindOne(ctx, filter).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *routeRepo) GetByShift(ctx context.Context, shiftID primitive.ObjectID, routeID string) (*models.Route, error) {
	return r.findOne(ctx, bson.M{"driverShiftId": shiftID, "id": routeID})
}

func (r *routeRepo) GetByObjectID(ctx context.Context, id primitive.ObjectID) (*models.Route, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func transitionUpdate(route *models.Route) bson.M {
	set := bson.M{
		"status":    route.Status,
		"updatedAt": route.UpdatedAt,
	}
	if route.Location != nil {
		set["location"] = route.Location
	}
	if route.ContactPersonID != "" {
		set["contactPersonId"] = route.ContactPersonID
	}
	if route.RecipientSignature != "" {
		set["recipientSignature"] = route.RecipientSignature
	}
	if route.CompleteDate != nil {
		set["completeDate"] = route.CompleteDate
	}
	if route.RejectDate != nil {
		set["rejectDate"] = route.RejectDate
	}
	if route.RejectReason != "" {
		set["rejectReason"] = route.RejectReason
	}
	if route.Note != "" {
		set["note"] = route.Note
	}
	if len(route.Images) > 0 {
		set["images"] = route.Images
	}
	return bson.M{"$set": set}
}

func (r *routeRepo) updateRoute(ctx context.Context, t storage.Transition) (*models.Route, error) {
	// The status in the filter makes the write conditional on what the
	// caller read: a concurrent transition turns this into ErrConflict.
	filter := bson.M{"_id": t.Route.ID, "status": t.FromStatus}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Route
	err := r.coll.FindOneAndUpdate(ctx, filter, transitionUpdate(t.Route), opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *routeRepo) ApplyTransition(ctx context.Context, t storage.Transition) (*models.Route, error) {
	if t.Log.ID.IsZero() {
		t.Log.ID = primitive.NewObjectID()
	}

	if r.store.transactions {
		var updated *models.Route
		err := r.store.withTx(ctx, func(txCtx context.Context) error {
			var err error
			if updated, err = r.updateRoute(txCtx, t); err != nil {
				return err
			}
			_, err = r.logs.InsertOne(txCtx, t.Log)
			return err
		})
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	updated, err := r.updateRoute(ctx, t)
	if err != nil {
		return nil, err
	}
	// Without transactions the route write is already visible, so the log
	// entry must follow it. The log id is fixed up front which makes a
	// duplicate key on retry mean "already written".
	if err := r.insertLogWithRetry(ctx, t.Log); err != nil {
		r.store.log.Error("route updated but audit log could not be written",
			logger.String("route_id", t.Route.RouteID), logger.String("status", t.Route.Status), logger.Error(err))
		return nil, fmt.Errorf("append route log: %w", err)
	}
	return updated, nil
}

func (r *routeRepo) insertLogWithRetry(ctx context.Context, entry *models.RouteUpdateLog) error {
	var err error
	for attempt := 1; attempt <= logInsertAttempts; attempt++ {
		_, err = r.logs.InsertOne(ctx, entry)
		if err == nil || mongo.IsDuplicateKeyError(err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}

func (r *routeRepo) ListLogs(ctx context.Context, routeObjectID primitive.ObjectID) ([]models.RouteUpdateLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.logs.Find(ctx, bson.M{"routeObjectId": routeObjectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.RouteUpdateLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.RouteUpdateLog{}
	}
	return entries, nil
}

func (r *routeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
