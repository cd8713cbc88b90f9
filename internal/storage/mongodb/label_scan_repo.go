// internal/storage/mongodb/label_scan_repo.go
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

type labelScanRepo struct {
	coll *mongo.Collection
}

func (r *labelScanRepo) Add(ctx context.Context, scan *models.LabelScan) error {
	if scan.ID.IsZero() {
		scan.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, scan)
	return err
}

// SetGeneralDeliveryCode stamps the code on the shift's scans that have none yet.
func (r *labelScanRepo) SetGeneralDeliveryCode(ctx context.Context, shiftID primitive.ObjectID, code string) error {
	filter := bson.M{
		"driverShiftId":       shiftID,
		"generalDeliveryCode": bson.M{"$exists": false},
	}
	_, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"generalDeliveryCode": code}})
	return err
}

func (r *labelScanRepo) FindLabelByGeneralDeliveryCode(ctx context.Context, code string) (string, error) {
	var scan models.LabelScan
	err := r.coll.FindOne(ctx, bson.M{"generalDeliveryCode": code}).Decode(&scan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return scan.LabelCode, nil
}
