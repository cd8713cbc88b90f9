// internal/models/driver_shift.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverShift is one authenticated working session of a driver+vehicle pair.
// It is written once at login and owns the routes synced during the session.
type DriverShift struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	DriverCode    string             `bson:"driverCode" json:"driverCode"`
	VehicleCode   string             `bson:"vehicleCode" json:"vehicleCode"`
	DriverName    string             `bson:"driverName,omitempty" json:"driverName,omitempty"`
	DriverSurname string             `bson:"driverSurname,omitempty" json:"driverSurname,omitempty"`
	Car           *Vehicle           `bson:"car,omitempty" json:"car,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
