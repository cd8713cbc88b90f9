// Package gateway talks to the external logistics system that owns drivers,
// vehicles and routing sheets.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/models"

	"github.com/spf13/cast"
)

const (
	maxResponseBytes = 4 << 20
	maxMessageBytes  = 512
)

// Error is a failed call. Only the status and message are rendered; the
// cause may name the gateway URL and is kept for logs.
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("logistics gateway http %d: %s: %v", e.StatusCode, e.Message, e.cause)
	}
	return fmt.Sprintf("logistics gateway http %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// AppError reports a failed gateway call as EXTERNAL_API_ERROR (503). Only
// the upstream status and message reach the client.
func AppError(err error) *apperr.Error {
	e := apperr.Upstream(apperr.CodeExternalAPI, err)
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return e.WithDesc(gwErr)
	}
	return e
}

// LoadedPlaces is the loading progress of one general delivery.
type LoadedPlaces struct {
	GeneralDeliveryCode string `json:"generalDeliveryCode"`
	LoadedPlaces        int    `json:"loadedPlaces"`
	PlacesQuantity      int    `json:"placesQuantity"`
}

type MovePlaceParams struct {
	DriverCode       string `json:"driverCode"`
	VehicleCode      string `json:"vehicleCode"`
	LabelCode        string `json:"labelCode"`
	MovePlaceType    int    `json:"movePlaceType"`
	RoutingSheetCode string `json:"routingSheetCode,omitempty"`
}

// UnloadParams identifies the delivered stop whose labels leave the vehicle.
type UnloadParams struct {
	DriverCode  string `json:"driverCode"`
	VehicleCode string `json:"vehicleCode"`
	RouteID     string `json:"id"`
	DocNo       string `json:"docNo"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

var errNotFound = errors.New("not found")

// do sends the request and decodes a 2xx body into out. A 404 is reported as
// errNotFound; other failures as *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{StatusCode: http.StatusServiceUnavailable, Message: "gateway unreachable", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{StatusCode: http.StatusBadGateway, Message: "gateway response unreadable", cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxMessageBytes {
			msg = msg[:maxMessageBytes]
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{StatusCode: http.StatusBadGateway, Message: "malformed gateway response", cause: err}
	}
	return nil
}

func codes(driverCode, vehicleCode string) map[string]string {
	return map[string]string{"driverCode": driverCode, "vehicleCode": vehicleCode}
}

// --- Drivers & vehicles ---

// GetDriverByCode returns nil, nil when the logistics system does not know the code.
func (c *Client) GetDriverByCode(ctx context.Context, code string) (*models.Driver, error) {
	var driver models.Driver
	err := c.do(ctx, http.MethodGet, "/drivers/"+url.PathEscape(code), nil, nil, &driver)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

// GetVehicleByCode returns nil, nil when the logistics system does not know the code.
func (c *Client) GetVehicleByCode(ctx context.Context, code string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := c.do(ctx, http.MethodGet, "/vehicles/"+url.PathEscape(code), nil, nil, &vehicle)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// --- Routing sheet ---

// GetRoutingSheet returns the stops assigned to the driver+vehicle pair, or
// nil when there is no open sheet.
func (c *Client) GetRoutingSheet(ctx context.Context, driverCode, vehicleCode string) ([]models.RoutingSheetStop, error) {
	q := url.Values{}
	q.Set("driverCode", driverCode)
	q.Set("vehicleCode", vehicleCode)

	var raw []map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/routing-sheet", q, nil, &raw)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	stops := make([]models.RoutingSheetStop, 0, len(raw))
	for _, m := range raw {
		stops = append(stops, decodeStop(m))
	}
	return stops, nil
}

// decodeStop reads a stop leniently: the logistics system sends ids and
// quantities as either strings or numbers.
func decodeStop(m map[string]interface{}) models.RoutingSheetStop {
	stop := models.RoutingSheetStop{
		ID:          cast.ToString(m["id"]),
		City:        cast.ToString(m["city"]),
		Address:     cast.ToString(m["address"]),
		CustName:    cast.ToString(m["custName"]),
		Description: cast.ToString(m["description"]),
		ContactName: cast.ToString(m["contactName"]),
		Phone:       cast.ToString(m["phone"]),
		DocNo:       cast.ToString(m["docNo"]),
	}
	items, _ := m["items"].([]interface{})
	for _, it := range items {
		im := cast.ToStringMap(it)
		if len(im) == 0 {
			continue
		}
		stop.Items = append(stop.Items, models.RouteItem{
			Code:        cast.ToString(im["code"]),
			Name:        cast.ToString(im["name"]),
			Quantity:    cast.ToFloat64(im["quantity"]),
			Unit:        cast.ToString(im["unit"]),
			LabelCode:   cast.ToString(im["labelCode"]),
			PlacesCount: cast.ToInt(im["placesCount"]),
		})
	}
	return stop
}

// UnloadLabels tells the logistics system the stop's parcels were handed over.
func (c *Client) UnloadLabels(ctx context.Context, p UnloadParams) error {
	return c.do(ctx, http.MethodPost, "/unload-labels", nil, p, nil)
}

// --- Delivery documents ---

// scalar posts body and returns the answer as a string; the logistics system
// replies with result codes like "1" that may arrive as numbers.
func (c *Client) scalar(ctx context.Context, path string, body interface{}) (string, error) {
	var out interface{}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		if errors.Is(err, errNotFound) {
			return "", &Error{StatusCode: http.StatusNotFound, Message: "not found"}
		}
		return "", err
	}
	return cast.ToStringE(out)
}

func (c *Client) raw(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, &Error{StatusCode: http.StatusNotFound, Message: "not found"}
		}
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDeliveryEntryHeader(ctx context.Context, driverCode, vehicleCode string) (string, error) {
	return c.scalar(ctx, "/delivery-entry-header/create", codes(driverCode, vehicleCode))
}

func (c *Client) CloseDeliveryEntryHeader(ctx context.Context, driverCode, vehicleCode string) (string, error) {
	return c.scalar(ctx, "/delivery-entry-header/close", codes(driverCode, vehicleCode))
}

func (c *Client) MovePlace(ctx context.Context, p MovePlaceParams) (json.RawMessage, error) {
	return c.raw(ctx, "/move-place", p)
}

func (c *Client) CheckLoadedPlaces(ctx context.Context, driverCode, vehicleCode string) ([]LoadedPlaces, error) {
	var out []LoadedPlaces
	err := c.do(ctx, http.MethodPost, "/check-loaded-places", nil, codes(driverCode, vehicleCode), &out)
	if errors.Is(err, errNotFound) {
		return []LoadedPlaces{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateWayBill(ctx context.Context, driverCode, vehicleCode string) (json.RawMessage, error) {
	return c.raw(ctx, "/way-bill", codes(driverCode, vehicleCode))
}

func (c *Client) CloseRoutingSheet(ctx context.Context, driverCode, vehicleCode, routingSheetCode string) (string, error) {
	body := codes(driverCode, vehicleCode)
	body["routingSheetCode"] = routingSheetCode
	return c.scalar(ctx, "/routing-sheet/close", body)
}

func (c *Client) ClearMovedPlaces(ctx context.Context, driverCode, vehicleCode, routingSheetCode string) (string, error) {
	body := codes(driverCode, vehicleCode)
	body["routingSheetCode"] = routingSheetCode
	return c.scalar(ctx, "/moved-places/clear", body)
}

func (c *Client) CheckOpenedWayBill(ctx context.Context, driverCode, vehicleCode string) (bool, error) {
	var out interface{}
	if err := c.do(ctx, http.MethodPost, "/way-bill/check-opened", nil, codes(driverCode, vehicleCode), &out); err != nil {
		if errors.Is(err, errNotFound) {
			return false, nil
		}
		return false, err
	}
	return cast.ToBoolE(out)
}

func (c *Client) ClearTestLabelData(ctx context.Context, labelCode string) (json.RawMessage, error) {
	return c.raw(ctx, "/label/clear-test-data", map[string]string{"labelCode": labelCode})
}
