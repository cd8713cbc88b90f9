// internal/storage/mongodb/shift_repo.go
package mongodb

import (
	"context"
	"errors"

	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type shiftRepo struct {
	coll *mongo.Collection
}

func (r *shiftRepo) Create(ctx context.Context, shift *models.DriverShift) error {
	if shift.ID.IsZero() {
		shift.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, shift)
	return err
}

func (r *shiftRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.DriverShift, error) {
	var shift models.DriverShift
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&shift)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}
