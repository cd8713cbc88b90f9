// internal/api/handlers/admin_handler.go
package handlers

import (
	"net/http"
	"time"

	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/delivery"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminHandler struct {
	Admins   *admin.Service
	Delivery *delivery.Service
	Log      logger.Logger
}

// --- Accounts ---

// ListAdmins pages through accounts. With ?count it returns {total} instead.
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	if _, ok := c.GetQuery("count"); ok {
		total, err := h.Admins.Count(c.Request.Context())
		if err != nil {
			response.Error(c, h.Log, err)
			return
		}
		response.OK(c, gin.H{"total": total})
		return
	}

	admins, err := h.Admins.List(c.Request.Context(), cast.ToInt64(c.Query("offset")), cast.ToInt64(c.Query("limit")))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, admins)
}

func (h *AdminHandler) GetAdmin(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		response.Error(c, h.Log, apperr.BadParameters("id must be an object id"))
		return
	}
	a, err := h.Admins.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, a)
}

type CreateAdminRequest struct {
	Login    string                 `json:"login" binding:"required"`
	Password string                 `json:"password" binding:"required,min=6"`
	Name     string                 `json:"name"`
	Claims   map[string]interface{} `json:"claims"`
}

func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	a, err := h.Admins.Create(c.Request.Context(), admin.CreateParams{
		Login:    req.Login,
		Password: req.Password,
		Name:     req.Name,
		Claims:   req.Claims,
	})
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": response.StatusOK, "data": a})
}

type UpdateAdminRequest struct {
	ID       string                 `json:"_id" binding:"required"`
	Login    string                 `json:"login"`
	Password string                 `json:"password" binding:"omitempty,min=6"`
	Name     string                 `json:"name"`
	Claims   map[string]interface{} `json:"claims"`
}

func (h *AdminHandler) UpdateAdmin(c *gin.Context) {
	var req UpdateAdminRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}
	id, err := primitive.ObjectIDFromHex(req.ID)
	if err != nil {
		response.Error(c, h.Log, apperr.BadParameters([]string{"_id is objectid"}))
		return
	}

	a, err := h.Admins.Update(c.Request.Context(), admin.UpdateParams{
		ID:       id,
		Login:    req.Login,
		Password: req.Password,
		Name:     req.Name,
		Claims:   req.Claims,
	})
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, a)
}

func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		response.Error(c, h.Log, apperr.BadParameters("id must be an object id"))
		return
	}
	n, err := h.Admins.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, gin.H{"deletedCount": n})
}

// --- Routes & shifts ---

type RouteListQuery struct {
	DriverShiftID string    `form:"driverShiftId"`
	DriverCode    string    `form:"driverCode"`
	VehicleCode   string    `form:"vehicleCode"`
	Status        string    `form:"status"`
	From          time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Offset        int64     `form:"offset" binding:"min=0"`
	Limit         int64     `form:"limit" binding:"min=0,max=500"`
}

func (q RouteListQuery) filter() (models.RouteQueryFilter, error) {
	f := models.RouteQueryFilter{
		DriverCode:  q.DriverCode,
		VehicleCode: q.VehicleCode,
		Status:      q.Status,
		Offset:      q.Offset,
		Limit:       q.Limit,
	}
	if q.DriverShiftID != "" {
		id, err := primitive.ObjectIDFromHex(q.DriverShiftID)
		if err != nil {
			return f, apperr.BadParameters([]string{"driverShiftId is objectid"})
		}
		f.DriverShiftID = id
	}
	if !q.From.IsZero() {
		from := q.From
		f.CreatedFrom = &from
	}
	if !q.To.IsZero() {
		to := q.To
		f.CreatedTo = &to
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	return f, nil
}

// ListRoutes returns one page of routes and the number of matches.
func (h *AdminHandler) ListRoutes(c *gin.Context) {
	var q RouteListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, h.Log, apperr.BadParameters(validationMessages(err)))
		return
	}
	f, err := q.filter()
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	routes, total, err := h.Delivery.ListRoutes(c.Request.Context(), f)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": response.StatusOK, "data": routes, "total": total})
}

func (h *AdminHandler) RouteLogs(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		response.Error(c, h.Log, apperr.BadParameters("id must be an object id"))
		return
	}
	entries, err := h.Delivery.RouteLogs(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, entries)
}

func (h *AdminHandler) DeleteRoute(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		response.Error(c, h.Log, apperr.BadParameters("id must be an object id"))
		return
	}
	if err := h.Delivery.DeleteRoute(c.Request.Context(), id); err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, nil)
}

func (h *AdminHandler) GetShift(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		response.Error(c, h.Log, apperr.BadParameters("id must be an object id"))
		return
	}
	shift, err := h.Delivery.ShiftByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	response.OK(c, shift)
}
