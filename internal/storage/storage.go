// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"delivery-fleet-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a conditional write lost against a
	// concurrent writer or a uniqueness constraint.
	ErrConflict = errors.New("storage: conflict")
)

// Storage groups the repositories backing the service.
type Storage interface {
	Shift() ShiftRepo
	Route() RouteRepo
	Admin() AdminRepo
	LabelScan() LabelScanRepo
	Registration() RegistrationRepo
}

type ShiftRepo interface {
	Create(ctx context.Context, shift *models.DriverShift) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.DriverShift, error)
}

// Transition is a status change of one route together with its audit entry.
// Route carries the new field values; FromStatus is the status the caller read.
type Transition struct {
	Route      *models.Route
	FromStatus string
	Log        *models.RouteUpdateLog
}

type RouteRepo interface {
	// InsertMissing creates the routes whose (DriverShiftID, RouteID) is not
	// stored yet and leaves existing ones untouched. It returns how many
	// documents were inserted.
	InsertMissing(ctx context.Context, routes []models.Route) (int, error)
	List(ctx context.Context, filter models.RouteQueryFilter) ([]models.Route, error)
	Count(ctx context.Context, filter models.RouteQueryFilter) (int64, error)
	GetByShift(ctx context.Context, shiftID primitive.ObjectID, routeID string) (*models.Route, error)
	GetByObjectID(ctx context.Context, id primitive.ObjectID) (*models.Route, error)
	// ApplyTransition updates the route only if its status still equals
	// FromStatus and appends the log entry in the same unit of work.
	// ErrConflict is returned when the status moved on in between.
	ApplyTransition(ctx context.Context, t Transition) (*models.Route, error)
	ListLogs(ctx context.Context, routeObjectID primitive.ObjectID) ([]models.RouteUpdateLog, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type AdminRepo interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	GetByLogin(ctx context.Context, login string) (*models.Admin, error)
	List(ctx context.Context, offset, limit int64) ([]models.Admin, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, admin *models.Admin) error
	TouchLastActive(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type LabelScanRepo interface {
	Add(ctx context.Context, scan *models.LabelScan) error
	SetGeneralDeliveryCode(ctx context.Context, shiftID primitive.ObjectID, code string) error
	FindLabelByGeneralDeliveryCode(ctx context.Context, code string) (string, error)
}

type RegistrationRepo interface {
	// Latest returns the newest registration of a chat, creating one when the
	// chat has none.
	Latest(ctx context.Context, platform string, chatID int64, username string) (*models.Registration, error)
	Save(ctx context.Context, reg *models.Registration) error
	// Restart wipes the chat's open registration back to the first step, or
	// starts a new one when the latest is already completed.
	Restart(ctx context.Context, platform string, chatID int64, username string) (*models.Registration, error)
}
