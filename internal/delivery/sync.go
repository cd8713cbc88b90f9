package delivery

import (
	"context"
	"fmt"

	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/gateway"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
)

// RoutingSheet fetches the shift's current sheet from the logistics system and
// reconciles it with the stored routes.
func (s *Service) RoutingSheet(ctx context.Context, shift *models.DriverShift) ([]models.Route, error) {
	sheet, err := s.gateway.GetRoutingSheet(ctx, shift.DriverCode, shift.VehicleCode)
	if err != nil {
		s.log.Warning("routing sheet fetch failed", logger.String("shift_id", shift.ID.Hex()), logger.Error(err))
		return nil, gateway.AppError(err)
	}
	return s.SyncDeliveries(ctx, shift, sheet)
}

// SyncDeliveries creates a pending route for every stop of the sheet the
// shift does not have yet and returns all routes of the shift. Stored routes
// are never overwritten: their status and proof of delivery come from the
// driver, not from the sheet.
func (s *Service) SyncDeliveries(ctx context.Context, shift *models.DriverShift, sheet []models.RoutingSheetStop) ([]models.Route, error) {
	if len(sheet) == 0 {
		return nil, apperr.NotFound(apperr.CodeNoRoutingSheet)
	}

	now := s.now()
	routes := make([]models.Route, 0, len(sheet))
	for i, stop := range sheet {
		if stop.ID == "" {
			s.log.Warning("skipping routing sheet stop without id",
				logger.String("shift_id", shift.ID.Hex()), logger.Int("position", i), logger.String("doc_no", stop.DocNo))
			continue
		}
		routes = append(routes, models.Route{
			RouteID:       stop.ID,
			DriverShiftID: shift.ID,
			VehicleCode:   shift.VehicleCode,
			DriverCode:    shift.DriverCode,
			City:          stop.City,
			Address:       stop.Address,
			CustName:      stop.CustName,
			Description:   stop.Description,
			ContactName:   stop.ContactName,
			Phone:         stop.Phone,
			DocNo:         stop.DocNo,
			Items:         stop.Items,
			Position:      i,
			Status:        models.RouteStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	inserted, err := s.store.Route().InsertMissing(ctx, routes)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sync routes of shift %s: %w", shift.ID.Hex(), err))
	}
	if inserted > 0 {
		s.log.Info("routing sheet synced", logger.String("shift_id", shift.ID.Hex()),
			logger.Int("stops", len(sheet)), logger.Int("inserted", inserted))
	}

	stored, err := s.store.Route().List(ctx, models.RouteQueryFilter{DriverShiftID: shift.ID})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list routes of shift %s: %w", shift.ID.Hex(), err))
	}
	return stored, nil
}
