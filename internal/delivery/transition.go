package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/gateway"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// statusRank orders the non-terminal statuses; a route never moves to a lower rank.
var statusRank = map[string]int{
	models.RouteStatusPending:    0,
	models.RouteStatusInProgress: 1,
}

type CompleteParams struct {
	ContactPersonID string
	Signature       string
	Location        *models.Location
	Note            string
	Images          []string
}

type RejectParams struct {
	Reason   string
	Note     string
	Location *models.Location
}

func routeNotFound(routeID string) *apperr.Error {
	return apperr.New(http.StatusBadRequest, apperr.CodeRouteNotFound, nil).WithDesc(routeID)
}

// findRoute resolves routeID within the caller's shift only; a route owned by
// another shift is reported as not found.
func (s *Service) findRoute(ctx context.Context, shiftID primitive.ObjectID, routeID string) (*models.Route, error) {
	route, err := s.store.Route().GetByShift(ctx, shiftID, routeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, routeNotFound(routeID)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find route %s: %w", routeID, err))
	}
	return route, nil
}

// transition loads the route, lets mutate change it and commits the change
// together with one log entry. The write only lands if the route still has the
// status that was read.
func (s *Service) transition(ctx context.Context, shiftID primitive.ObjectID, routeID string, mutate func(r *models.Route, now time.Time) error) (*models.Route, error) {
	route, err := s.findRoute(ctx, shiftID, routeID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(route.Status) {
		return nil, apperr.Conflict(apperr.CodeRouteAlreadyFinalized).WithDesc(route.Status)
	}

	prev := route.Status
	now := s.now()
	if err := mutate(route, now); err != nil {
		return nil, err
	}
	route.UpdatedAt = now

	entry := &models.RouteUpdateLog{
		ID:            primitive.NewObjectID(),
		RouteObjectID: route.ID,
		RouteID:       route.RouteID,
		DriverShiftID: route.DriverShiftID,
		PrevStatus:    prev,
		Status:        route.Status,
		Location:      route.Location,
		CreatedAt:     now,
	}

	updated, err := s.store.Route().ApplyTransition(ctx, storage.Transition{Route: route, FromStatus: prev, Log: entry})
	if errors.Is(err, storage.ErrConflict) {
		return nil, apperr.Conflict(apperr.CodeRouteStatusConflict)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("update route %s: %w", routeID, err))
	}

	s.log.Info("route status changed", logger.String("route_id", routeID), logger.String("shift_id", shiftID.Hex()),
		logger.String("from", prev), logger.String("to", updated.Status))
	if s.notifier != nil {
		s.notifier.PublishRouteUpdate(updated, entry)
	}
	return updated, nil
}

// UpdateStatus moves a route to pending or in-progress. Terminal statuses are
// only reachable through Complete and Reject.
func (s *Service) UpdateStatus(ctx context.Context, shiftID primitive.ObjectID, routeID, status string, loc *models.Location) (*models.Route, error) {
	rank, ok := statusRank[status]
	if !ok {
		return nil, apperr.BadParameters("unsupported status: " + status)
	}
	return s.transition(ctx, shiftID, routeID, func(r *models.Route, _ time.Time) error {
		if rank < statusRank[r.Status] {
			return apperr.Conflict(apperr.CodeRouteStatusConflict).WithDesc(fmt.Sprintf("cannot move route from %s to %s", r.Status, status))
		}
		r.Status = status
		if loc != nil {
			r.Location = loc
		}
		return nil
	})
}

// Complete records the handover and then tells the logistics system the
// stop's labels were unloaded. That call runs in the background; its failure
// is logged and the local status stays.
func (s *Service) Complete(ctx context.Context, shiftID primitive.ObjectID, routeID string, p CompleteParams) (*models.Route, error) {
	if strings.TrimSpace(p.Signature) == "" {
		return nil, apperr.BadParameters("signature is required")
	}

	route, err := s.transition(ctx, shiftID, routeID, func(r *models.Route, now time.Time) error {
		r.Status = models.RouteStatusCompleted
		r.ContactPersonID = p.ContactPersonID
		r.RecipientSignature = p.Signature
		r.CompleteDate = &now
		r.Note = p.Note
		r.Images = p.Images
		if p.Location != nil {
			r.Location = p.Location
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.unloadLabels(route)
	return route, nil
}

func (s *Service) unloadLabels(route *models.Route) {
	params := gateway.UnloadParams{
		DriverCode:  route.DriverCode,
		VehicleCode: route.VehicleCode,
		RouteID:     route.RouteID,
		DocNo:       route.DocNo,
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
		defer cancel()
		if err := s.gateway.UnloadLabels(ctx, params); err != nil {
			s.log.Error("unload labels failed", logger.String("route_id", params.RouteID),
				logger.String("doc_no", params.DocNo), logger.Error(err))
		}
	}()
}

func (s *Service) Reject(ctx context.Context, shiftID primitive.ObjectID, routeID string, p RejectParams) (*models.Route, error) {
	if strings.TrimSpace(p.Reason) == "" {
		return nil, apperr.BadParameters("reason is required")
	}

	return s.transition(ctx, shiftID, routeID, func(r *models.Route, now time.Time) error {
		r.Status = models.RouteStatusRejected
		r.RejectReason = p.Reason
		r.RejectDate = &now
		r.Note = p.Note
		if p.Location != nil {
			r.Location = p.Location
		}
		return nil
	})
}

// RouteHistory lists the log of one of the shift's routes, newest first.
func (s *Service) RouteHistory(ctx context.Context, shiftID primitive.ObjectID, routeID string) ([]models.RouteUpdateLog, error) {
	route, err := s.findRoute(ctx, shiftID, routeID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Route().ListLogs(ctx, route.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list logs of route %s: %w", routeID, err))
	}
	return entries, nil
}
