// internal/models/label_scan.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LabelScan records a parcel label moved by a driver during a shift.
type LabelScan struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	DriverShiftID       primitive.ObjectID `bson:"driverShiftId" json:"driverShiftId"`
	DriverCode          string             `bson:"driverCode" json:"driverCode"`
	VehicleCode         string             `bson:"vehicleCode" json:"vehicleCode"`
	LabelCode           string             `bson:"labelCode" json:"labelCode"`
	MovePlaceType       int                `bson:"movePlaceType" json:"movePlaceType"`
	GeneralDeliveryCode string             `bson:"generalDeliveryCode,omitempty" json:"generalDeliveryCode,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
}
