// internal/api/handlers/delivery_handler.go
package handlers

import (
	"context"
	"encoding/json"

	"delivery-fleet-api-server/internal/api/middleware"
	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/delivery"
	"delivery-fleet-api-server/internal/gateway"
	"delivery-fleet-api-server/internal/logger"

	"github.com/gin-gonic/gin"
)

// LogisticsGateway is the document and label part of the logistics system
// that drivers reach through this API unchanged.
type LogisticsGateway interface {
	CreateDeliveryEntryHeader(ctx context.Context, driverCode, vehicleCode string) (string, error)
	CloseDeliveryEntryHeader(ctx context.Context, driverCode, vehicleCode string) (string, error)
	MovePlace(ctx context.Context, p gateway.MovePlaceParams) (json.RawMessage, error)
	CheckLoadedPlaces(ctx context.Context, driverCode, vehicleCode string) ([]gateway.LoadedPlaces, error)
	CreateWayBill(ctx context.Context, driverCode, vehicleCode string) (json.RawMessage, error)
	CloseRoutingSheet(ctx context.Context, driverCode, vehicleCode, routingSheetCode string) (string, error)
	ClearMovedPlaces(ctx context.Context, driverCode, vehicleCode, routingSheetCode string) (string, error)
	CheckOpenedWayBill(ctx context.Context, driverCode, vehicleCode string) (bool, error)
	ClearTestLabelData(ctx context.Context, labelCode string) (json.RawMessage, error)
}

type DeliveryHandler struct {
	Service *delivery.Service
	Gateway LogisticsGateway
	Log     logger.Logger
}

// --- Lookups ---

func (h *DeliveryHandler) GetDriver(c *gin.Context) {
	driver, err := h.Service.LookupDriver(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, driver)
}

func (h *DeliveryHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.Service.LookupVehicle(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, vehicle)
}

// --- Routing sheet & routes ---

func (h *DeliveryHandler) RoutingSheet(c *gin.Context) {
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	shift, err := h.Service.FindDeliveryShiftByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	routes, err := h.Service.RoutingSheet(c.Request.Context(), shift)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, routes)
}

type UpdateRouteRequest struct {
	ID     string      `json:"id" binding:"required"`
	Status string      `json:"status" binding:"required"`
	Lat    *Coordinate `json:"lat" binding:"required"`
	Lon    *Coordinate `json:"lon" binding:"required"`
}

func (h *DeliveryHandler) UpdateRoute(c *gin.Context) {
	var req UpdateRouteRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	route, err := h.Service.UpdateStatus(c.Request.Context(), id, req.ID, req.Status, location(req.Lat, req.Lon))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, route)
}

type CompleteRouteRequest struct {
	ID              string      `json:"id" binding:"required"`
	ContactPersonID string      `json:"contactPersonId"`
	Signature       string      `json:"signature" binding:"required"`
	Note            string      `json:"note"`
	Images          []string    `json:"images"`
	Lat             *Coordinate `json:"lat" binding:"required"`
	Lon             *Coordinate `json:"lon" binding:"required"`
}

func (h *DeliveryHandler) CompleteRoute(c *gin.Context) {
	var req CompleteRouteRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	route, err := h.Service.Complete(c.Request.Context(), id, req.ID, delivery.CompleteParams{
		ContactPersonID: req.ContactPersonID,
		Signature:       req.Signature,
		Location:        location(req.Lat, req.Lon),
		Note:            req.Note,
		Images:          req.Images,
	})
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, route)
}

type RejectRouteRequest struct {
	ID     string      `json:"id" binding:"required"`
	Reason string      `json:"reason" binding:"required"`
	Note   string      `json:"note"`
	Lat    *Coordinate `json:"lat" binding:"required"`
	Lon    *Coordinate `json:"lon" binding:"required"`
}

func (h *DeliveryHandler) RejectRoute(c *gin.Context) {
	var req RejectRouteRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	route, err := h.Service.Reject(c.Request.Context(), id, req.ID, delivery.RejectParams{
		Reason:   req.Reason,
		Note:     req.Note,
		Location: location(req.Lat, req.Lon),
	})
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, route)
}

func (h *DeliveryHandler) RouteHistory(c *gin.Context) {
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	entries, err := h.Service.RouteHistory(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, entries)
}

// --- Delivery documents ---

// expect renders a gateway answer that must be one of the accepted result
// codes; anything else is UNKNOWN_RESPONSE.
func (h *DeliveryHandler) expect(c *gin.Context, resp string, err error, accepted ...string) {
	if err != nil {
		response.Error(c, h.Log, gateway.AppError(err))
		return
	}
	for _, ok := range accepted {
		if resp == ok {
			response.OK(c, resp)
			return
		}
	}
	h.Log.Warning("unexpected logistics answer", logger.String("path", c.FullPath()), logger.String("response", resp))
	response.Error(c, h.Log, apperr.Upstream(apperr.CodeUnknownResponse, nil).WithDesc(resp))
}

func (h *DeliveryHandler) passThrough(c *gin.Context, data interface{}, err error) {
	if err != nil {
		response.Error(c, h.Log, gateway.AppError(err))
		return
	}
	response.OK(c, data)
}

func (h *DeliveryHandler) CreateDeliveryEntryHeader(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	resp, err := h.Gateway.CreateDeliveryEntryHeader(c.Request.Context(), claims.DriverCode, claims.VehicleCode)
	h.expect(c, resp, err, "1")
}

func (h *DeliveryHandler) CloseDeliveryEntryHeader(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	resp, err := h.Gateway.CloseDeliveryEntryHeader(c.Request.Context(), claims.DriverCode, claims.VehicleCode)
	h.expect(c, resp, err, "1")
}

type MovePlaceRequest struct {
	MovePlaceType    int    `json:"movePlaceType" binding:"required"`
	LabelCode        string `json:"labelCode" binding:"required"`
	RoutingSheetCode string `json:"routingSheetCode"`
}

// MovePlace forwards a label move and keeps it in the shift's scan history.
func (h *DeliveryHandler) MovePlace(c *gin.Context) {
	var req MovePlaceRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	claims := middleware.ClaimsFrom(c)

	resp, err := h.Gateway.MovePlace(c.Request.Context(), gateway.MovePlaceParams{
		DriverCode:       claims.DriverCode,
		VehicleCode:      claims.VehicleCode,
		LabelCode:        req.LabelCode,
		MovePlaceType:    req.MovePlaceType,
		RoutingSheetCode: req.RoutingSheetCode,
	})
	if err != nil {
		response.Error(c, h.Log, gateway.AppError(err))
		return
	}

	shift, err := h.Service.FindDeliveryShiftByID(c.Request.Context(), id)
	if err == nil {
		h.Service.RecordLabelScan(c.Request.Context(), shift, req.LabelCode, req.MovePlaceType)
	}
	response.OK(c, resp)
}

func (h *DeliveryHandler) CheckLoadedPlaces(c *gin.Context) {
	id, err := shiftID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	claims := middleware.ClaimsFrom(c)

	places, err := h.Gateway.CheckLoadedPlaces(c.Request.Context(), claims.DriverCode, claims.VehicleCode)
	if err != nil {
		response.Error(c, h.Log, gateway.AppError(err))
		return
	}
	if len(places) > 0 && places[0].GeneralDeliveryCode != "" {
		if err := h.Service.AttachGeneralDeliveryCode(c.Request.Context(), id, places[0].GeneralDeliveryCode); err != nil {
			response.Error(c, h.Log, err)
			return
		}
	}
	response.OK(c, places)
}

func (h *DeliveryHandler) PrintDelivery(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	resp, err := h.Gateway.CreateWayBill(c.Request.Context(), claims.DriverCode, claims.VehicleCode)
	h.passThrough(c, resp, err)
}

// ClearLabel clears test data of the label scanned under a general delivery code.
func (h *DeliveryHandler) ClearLabel(c *gin.Context) {
	label, err := h.Service.LabelByGeneralDeliveryCode(c.Request.Context(), c.Param("generalDeliveryCode"))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	resp, err := h.Gateway.ClearTestLabelData(c.Request.Context(), label)
	h.passThrough(c, resp, err)
}

type RoutingSheetCodeRequest struct {
	RoutingSheetCode string `json:"routingSheetCode" binding:"required"`
}

func (h *DeliveryHandler) CloseRoutingSheet(c *gin.Context) {
	var req RoutingSheetCodeRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	claims := middleware.ClaimsFrom(c)
	resp, err := h.Gateway.CloseRoutingSheet(c.Request.Context(), claims.DriverCode, claims.VehicleCode, req.RoutingSheetCode)
	h.expect(c, resp, err, "1")
}

func (h *DeliveryHandler) ClearMovedPlaces(c *gin.Context) {
	var req RoutingSheetCodeRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	claims := middleware.ClaimsFrom(c)
	resp, err := h.Gateway.ClearMovedPlaces(c.Request.Context(), claims.DriverCode, claims.VehicleCode, req.RoutingSheetCode)
	h.expect(c, resp, err, "0", "2")
}

func (h *DeliveryHandler) CheckOpenedWayBill(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	opened, err := h.Gateway.CheckOpenedWayBill(c.Request.Context(), claims.DriverCode, claims.VehicleCode)
	h.passThrough(c, opened, err)
}
