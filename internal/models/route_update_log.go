// internal/models/route_update_log.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RouteUpdateLog is an append-only audit record of one route status transition.
type RouteUpdateLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	RouteObjectID primitive.ObjectID `bson:"routeObjectId" json:"routeObjectId"`
	RouteID       string             `bson:"routeId" json:"routeId"`
	DriverShiftID primitive.ObjectID `bson:"driverShiftId" json:"driverShiftId"`
	PrevStatus    string             `bson:"prevStatus" json:"prevStatus"`
	Status        string             `bson:"status" json:"status"`
	Location      *Location          `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
