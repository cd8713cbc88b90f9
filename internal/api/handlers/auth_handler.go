// internal/api/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/delivery"
	"delivery-fleet-api-server/internal/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Delivery *delivery.Service
	Admins   *admin.Service
	Tokens   *auth.TokenService
	Log      logger.Logger
}

type DriverLoginRequest struct {
	DriverCode  string `json:"driverCode"`
	VehicleCode string `json:"vehicleCode"`
}

// Login opens a driver shift. Without both codes the caller gets an
// anonymous token that can only reach the lookup endpoints.
func (h *AuthHandler) Login(c *gin.Context) {
	var req DriverLoginRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.Log, &req) {
		return
	}

	claims := auth.Claims{Anonymous: true}
	if req.DriverCode != "" && req.VehicleCode != "" {
		shift, err := h.Delivery.OpenShift(c.Request.Context(), req.DriverCode, req.VehicleCode)
		if err != nil {
			response.Error(c, h.Log, err)
			return
		}
		claims = auth.Claims{ShiftID: shift.ID.Hex(), DriverCode: shift.DriverCode, VehicleCode: shift.VehicleCode}
	}

	token, err := h.Tokens.GenerateAccessToken(claims)
	if err != nil {
		response.Error(c, h.Log, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": response.StatusOK, "access_token": token})
}

type AdminLoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}

	session, err := h.Admins.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, h.Log, &req) {
		return
	}

	token, err := h.Admins.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": response.StatusOK, "access_token": token})
}
