package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Back office ---

// ListRoutes returns one page of routes matching f and the total match count.
func (s *Service) ListRoutes(ctx context.Context, f models.RouteQueryFilter) ([]models.Route, int64, error) {
	if f.Status != "" && !models.IsKnownStatus(f.Status) {
		return nil, 0, apperr.BadParameters("unknown status: " + f.Status)
	}
	routes, err := s.store.Route().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("list routes: %w", err))
	}
	total, err := s.store.Route().Count(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("count routes: %w", err))
	}
	return routes, total, nil
}

func (s *Service) RouteLogs(ctx context.Context, id primitive.ObjectID) ([]models.RouteUpdateLog, error) {
	if _, err := s.store.Route().GetByObjectID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeRouteNotFound)
		}
		return nil, apperr.Internal(err)
	}
	entries, err := s.store.Route().ListLogs(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list route logs: %w", err))
	}
	return entries, nil
}

func (s *Service) ShiftByID(ctx context.Context, id primitive.ObjectID) (*models.DriverShift, error) {
	shift, err := s.store.Shift().GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeDriverShiftNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return shift, nil
}

// DeleteRoute removes a route for good. The route's log stays.
func (s *Service) DeleteRoute(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.Route().Delete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.CodeRouteNotFound)
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete route: %w", err))
	}
	s.log.Warning("route deleted by admin", logger.String("route_object_id", id.Hex()))
	return nil
}

// --- Label scans ---

// RecordLabelScan keeps a moved label in the shift's scan history. Failures
// are logged only: the move already happened in the logistics system.
func (s *Service) RecordLabelScan(ctx context.Context, shift *models.DriverShift, labelCode string, movePlaceType int) {
	scan := &models.LabelScan{
		DriverShiftID: shift.ID,
		DriverCode:    shift.DriverCode,
		VehicleCode:   shift.VehicleCode,
		LabelCode:     labelCode,
		MovePlaceType: movePlaceType,
		CreatedAt:     s.now(),
	}
	if err := s.store.LabelScan().Add(ctx, scan); err != nil {
		s.log.Error("label scan not recorded", logger.String("label_code", labelCode), logger.Error(err))
	}
}

func (s *Service) AttachGeneralDeliveryCode(ctx context.Context, shiftID primitive.ObjectID, code string) error {
	if err := s.store.LabelScan().SetGeneralDeliveryCode(ctx, shiftID, code); err != nil {
		return apperr.Internal(fmt.Errorf("attach general delivery code: %w", err))
	}
	return nil
}

func (s *Service) LabelByGeneralDeliveryCode(ctx context.Context, code string) (string, error) {
	label, err := s.store.LabelScan().FindLabelByGeneralDeliveryCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.New(http.StatusBadRequest, apperr.CodeLabelNotFound, nil)
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return label, nil
}
