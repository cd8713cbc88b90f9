// internal/models/route.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Route statuses. Completed and rejected are terminal.
const (
	RouteStatusPending    = "pending"
	RouteStatusInProgress = "in-progress"
	RouteStatusCompleted  = "completed"
	RouteStatusRejected   = "rejected"
)

// IsTerminalStatus reports whether a route in this status is finished for good.
func IsTerminalStatus(status string) bool {
	return status == RouteStatusCompleted || status == RouteStatusRejected
}

// IsKnownStatus reports whether status is one of the route lifecycle labels.
func IsKnownStatus(status string) bool {
	switch status {
	case RouteStatusPending, RouteStatusInProgress, RouteStatusCompleted, RouteStatusRejected:
		return true
	}
	return false
}

// Route is one delivery stop of a driver shift. RouteID is the identifier the
// logistics system gives the stop; (DriverShiftID, RouteID) is unique.
type Route struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	RouteID       string             `bson:"id" json:"id"`
	DriverShiftID primitive.ObjectID `bson:"driverShiftId" json:"driverShiftId"`
	VehicleCode   string             `bson:"vehicleCode" json:"vehicleCode"`
	DriverCode    string             `bson:"driverCode" json:"driverCode"`
	City          string             `bson:"city" json:"city"`
	Address       string             `bson:"address" json:"address"`
	CustName      string             `bson:"custName" json:"custName"`
	Description   string             `bson:"description" json:"description"`
	ContactName   string             `bson:"contactName" json:"contactName"`
	Phone         string             `bson:"phone" json:"phone"`
	DocNo         string             `bson:"docNo" json:"docNo"`
	Items         []RouteItem        `bson:"items,omitempty" json:"items,omitempty"`
	// Position is the stop's index on the sheet that created it.
	Position int    `bson:"position" json:"position"`
	Status   string `bson:"status" json:"status"`

	ContactPersonID    string     `bson:"contactPersonId,omitempty" json:"contactPersonId,omitempty"`
	RecipientSignature string     `bson:"recipientSignature,omitempty" json:"recipientSignature,omitempty"`
	CompleteDate       *time.Time `bson:"completeDate,omitempty" json:"completeDate,omitempty"`
	RejectDate         *time.Time `bson:"rejectDate,omitempty" json:"rejectDate,omitempty"`
	RejectReason       string     `bson:"rejectReason,omitempty" json:"rejectReason,omitempty"`
	Note               string     `bson:"note,omitempty" json:"note,omitempty"`
	Images             []string   `bson:"images,omitempty" json:"images,omitempty"`
	Location           *Location  `bson:"location,omitempty" json:"location,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RoutingSheetStop is one stop as the logistics system lists it on a routing sheet.
type RoutingSheetStop struct {
	ID          string      `json:"id"`
	City        string      `json:"city"`
	Address     string      `json:"address"`
	CustName    string      `json:"custName"`
	Description string      `json:"description"`
	ContactName string      `json:"contactName"`
	Phone       string      `json:"phone"`
	DocNo       string      `json:"docNo"`
	Items       []RouteItem `json:"items"`
}

// RouteQueryFilter selects routes for listing. Zero values mean "any".
type RouteQueryFilter struct {
	DriverShiftID primitive.ObjectID
	DriverCode    string
	VehicleCode   string
	Status        string
	// CreatedFrom is inclusive, CreatedTo exclusive.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Offset      int64
	Limit       int64
}
