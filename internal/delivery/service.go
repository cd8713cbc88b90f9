// Package delivery holds the driver-facing workflow: opening a shift,
// reconciling the routing sheet with stored routes and moving routes through
// their status lifecycle.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/gateway"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const unloadTimeout = 30 * time.Second

// Gateway is the part of the logistics system the workflow depends on.
type Gateway interface {
	GetDriverByCode(ctx context.Context, code string) (*models.Driver, error)
	GetVehicleByCode(ctx context.Context, code string) (*models.Vehicle, error)
	GetRoutingSheet(ctx context.Context, driverCode, vehicleCode string) ([]models.RoutingSheetStop, error)
	UnloadLabels(ctx context.Context, p gateway.UnloadParams) error
}

// Notifier receives every committed route transition.
type Notifier interface {
	PublishRouteUpdate(route *models.Route, entry *models.RouteUpdateLog)
}

type Service struct {
	store    storage.Storage
	gateway  Gateway
	notifier Notifier
	log      logger.Logger
	now      func() time.Time

	// background tracks fire-and-forget calls to the logistics system.
	background sync.WaitGroup
}

func NewService(store storage.Storage, gw Gateway, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		store:    store,
		gateway:  gw,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Wait blocks until background side effects started by Complete are done.
func (s *Service) Wait() {
	s.background.Wait()
}

// --- Shift ---

// OpenShift looks the driver and the vehicle up in parallel and stores a new
// shift for the pair.
func (s *Service) OpenShift(ctx context.Context, driverCode, vehicleCode string) (*models.DriverShift, error) {
	var (
		driver  *models.Driver
		vehicle *models.Vehicle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		driver, err = s.gateway.GetDriverByCode(gctx, driverCode)
		return
	})
	g.Go(func() (err error) {
		vehicle, err = s.gateway.GetVehicleByCode(gctx, vehicleCode)
		return
	})
	if err := g.Wait(); err != nil {
		s.log.Warning("driver or vehicle lookup failed", logger.String("driver_code", driverCode),
			logger.String("vehicle_code", vehicleCode), logger.Error(err))
		return nil, gateway.AppError(err)
	}
	if driver == nil {
		return nil, apperr.NotFound(apperr.CodeDriverNotFound)
	}
	if vehicle == nil {
		return nil, apperr.NotFound(apperr.CodeVehicleNotFound)
	}

	now := s.now()
	shift := &models.DriverShift{
		DriverCode:    driverCode,
		VehicleCode:   vehicleCode,
		DriverName:    driver.Name,
		DriverSurname: driver.Surname,
		Car:           vehicle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Shift().Create(ctx, shift); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create driver shift: %w", err))
	}
	s.log.Info("driver shift opened", logger.String("shift_id", shift.ID.Hex()),
		logger.String("driver_code", driverCode), logger.String("vehicle_code", vehicleCode))
	return shift, nil
}

// FindDeliveryShiftByID fails with DRIVER_SHIFT_NOT_FOUND (401) when the
// shift no longer exists.
func (s *Service) FindDeliveryShiftByID(ctx context.Context, id primitive.ObjectID) (*models.DriverShift, error) {
	shift, err := s.store.Shift().GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotAuthorized(apperr.CodeDriverShiftNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find driver shift: %w", err))
	}
	return shift, nil
}

// LookupDriver returns the logistics system's profile for a driver code.
func (s *Service) LookupDriver(ctx context.Context, code string) (*models.Driver, error) {
	driver, err := s.gateway.GetDriverByCode(ctx, code)
	if err != nil {
		return nil, gateway.AppError(err)
	}
	if driver == nil {
		return nil, apperr.NotFound(apperr.CodeDriverNotFound)
	}
	return driver, nil
}

func (s *Service) LookupVehicle(ctx context.Context, code string) (*models.Vehicle, error) {
	vehicle, err := s.gateway.GetVehicleByCode(ctx, code)
	if err != nil {
		return nil, gateway.AppError(err)
	}
	if vehicle == nil {
		return nil, apperr.NotFound(apperr.CodeVehicleNotFound)
	}
	return vehicle, nil
}
