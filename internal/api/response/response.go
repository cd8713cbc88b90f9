// Package response writes the API's JSON envelopes: {status: "OK", data} on
// success and {error, desc?} on failure.
package response

import (
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/logger"

	"github.com/gin-gonic/gin"
)

const StatusOK = "OK"

type ErrorBody struct {
	Error  string      `json:"error"`
	Desc   interface{} `json:"desc,omitempty"`
	Errors []string    `json:"errors,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, gin.H{"status": StatusOK, "data": data})
}

func body(e *apperr.Error) ErrorBody {
	b := ErrorBody{Error: e.Code, Desc: e.Desc}
	if list, ok := e.Desc.([]string); ok {
		b.Desc = nil
		b.Errors = list
	}
	return b
}

// Error renders err. Causes of internal errors are logged and never sent.
func Error(c *gin.Context, log logger.Logger, err error) {
	e := apperr.As(err)
	if e.Status >= 500 && log != nil {
		log.Error("request failed", logger.String("path", c.FullPath()), logger.String("code", e.Code),
			logger.String("request_id", c.GetString(RequestIDKey)), logger.Error(err))
	}
	c.JSON(e.Status, body(e))
}

// Abort is Error for middleware: the handler chain stops here.
func Abort(c *gin.Context, log logger.Logger, err error) {
	Error(c, log, err)
	c.Abort()
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"
