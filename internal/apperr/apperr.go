// Package apperr carries the HTTP status and public error code of a failure
// from the service layer up to the handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Error codes returned in the "error" field of a response body.
const (
	CodeBadParameters         = "BAD_PARAMETERS"
	CodeNotAuthorized         = "NOT_AUTHORIZED"
	CodeDriverShiftNotFound   = "DRIVER_SHIFT_NOT_FOUND"
	CodeRouteNotFound         = "ROUTE_NOT_FOUND"
	CodeNoRoutingSheet        = "NO_ROUTING_SHEET"
	CodeDriverNotFound        = "DRIVER_NOT_FOUND"
	CodeVehicleNotFound       = "VEHICLE_NOT_FOUND"
	CodeLabelNotFound         = "LABEL_NOT_FOUND"
	CodeExternalAPI           = "EXTERNAL_API_ERROR"
	CodeUnknownResponse       = "UNKNOWN_RESPONSE"
	CodeRouteAlreadyFinalized = "ROUTE_ALREADY_FINALIZED"
	CodeRouteStatusConflict   = "ROUTE_STATUS_CONFLICT"
	CodeAdminAlreadyExist     = "ADMIN_ALREADY_EXIST"
	CodeAdminNotFound         = "ADMIN_NOT_FOUND"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeBadPassword           = "BAD_PASSWORD"
	CodeFilesNotProvided      = "FILES_NOT_PROVIDED"
	CodeTooManyRequests       = "TOO_MANY_REQUESTS"
	CodeInternal              = "INTERNAL_SERVER_ERROR"
)

type Error struct {
	Status int
	Code   string
	// Desc is safe to show to the client.
	Desc interface{}
	// Err is the cause; it is logged, never rendered.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// WithDesc returns a copy of e carrying a client-visible description.
func (e *Error) WithDesc(desc interface{}) *Error {
	cp := *e
	cp.Desc = desc
	return &cp
}

func New(status int, code string, cause error) *Error {
	return &Error{Status: status, Code: code, Err: cause}
}

func BadParameters(desc interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadParameters, Desc: desc}
}

func NotAuthorized(code string) *Error {
	if code == "" {
		code = CodeNotAuthorized
	}
	return &Error{Status: http.StatusUnauthorized, Code: code}
}

func NotFound(code string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code}
}

func Conflict(code string) *Error {
	return &Error{Status: http.StatusConflict, Code: code}
}

// Upstream reports a failed call to the logistics system.
func Upstream(code string, cause error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: code, Err: cause}
}

func Internal(cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Err: cause}
}

// As unwraps err into an *Error. Anything else is reported as internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
