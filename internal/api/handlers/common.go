// internal/api/handlers/common.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"delivery-fleet-api-server/internal/api/middleware"
	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Validation errors name fields by their JSON key.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Coordinate accepts both "50.45" and 50.45; mobile clients send either.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return fmt.Errorf("invalid coordinate %s", string(b))
	}
	*c = Coordinate(f)
	return nil
}

func location(lat, lon *Coordinate) *models.Location {
	if lat == nil || lon == nil {
		return nil
	}
	return &models.Location{Lat: float64(*lat), Lon: float64(*lon)}
}

// bindJSON decodes the body into req. On failure it writes a 400
// BAD_PARAMETERS listing the offending fields and returns false.
func bindJSON(c *gin.Context, log logger.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Debug("bad request body", logger.String("path", c.FullPath()), logger.Error(err))
		response.Error(c, log, apperr.BadParameters(validationMessages(err)))
		return false
	}
	return true
}

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return out
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// shiftID reads the driver shift id from the verified token.
func shiftID(c *gin.Context) (primitive.ObjectID, error) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return primitive.NilObjectID, apperr.NotAuthorized("")
	}
	id, err := primitive.ObjectIDFromHex(claims.ShiftID)
	if err != nil {
		return primitive.NilObjectID, apperr.NotAuthorized("")
	}
	return id, nil
}
