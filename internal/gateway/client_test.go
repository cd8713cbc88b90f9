package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", time.Second)
}

func TestGetRoutingSheetDecodesLooseTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/routing-sheet", r.URL.Path)
		assert.Equal(t, "EES2293", r.URL.Query().Get("driverCode"))
		assert.Equal(t, "VH15-0255", r.URL.Query().Get("vehicleCode"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"id": "WBC1", "city": "Kyiv", "docNo": "SHP1", "items": [{"code": 42, "quantity": "3", "placesCount": "2"}]},
			{"id": 1002, "city": "Lviv"}
		]`))
	})

	stops, err := c.GetRoutingSheet(context.Background(), "EES2293", "VH15-0255")
	require.NoError(t, err)
	require.Len(t, stops, 2)

	assert.Equal(t, "WBC1", stops[0].ID)
	assert.Equal(t, "SHP1", stops[0].DocNo)
	require.Len(t, stops[0].Items, 1)
	assert.Equal(t, "42", stops[0].Items[0].Code)
	assert.Equal(t, 3.0, stops[0].Items[0].Quantity)
	assert.Equal(t, 2, stops[0].Items[0].PlacesCount)
	assert.Equal(t, "1002", stops[1].ID)
}

func TestGetRoutingSheetNotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	stops, err := c.GetRoutingSheet(context.Background(), "d", "v")
	require.NoError(t, err)
	assert.Nil(t, stops)
}

func TestUpstreamFailureKeepsOnlyStatusAndMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusBadGateway)
	})

	_, err := c.GetDriverByCode(context.Background(), "EES2293")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Equal(t, "maintenance", gwErr.Message)
}

func TestTimeoutIsReportedAsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "", 20*time.Millisecond)

	_, err := c.GetVehicleByCode(context.Background(), "VH1")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Equal(t, "gateway unreachable", gwErr.Message)
	assert.NotNil(t, errors.Unwrap(gwErr))

	// The rendered description carries neither the gateway URL nor the query.
	appErr := AppError(err)
	desc, marshalErr := json.Marshal(appErr.Desc)
	require.NoError(t, marshalErr)
	assert.JSONEq(t, `{"statusCode":503,"message":"gateway unreachable"}`, string(desc))
	assert.NotContains(t, string(desc), srv.URL)
	assert.NotContains(t, string(desc), "VH1")
	// The cause still reaches the logs.
	assert.Contains(t, appErr.Error(), "VH1")
}

func TestOversizedErrorBodyIsTruncated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 10*maxMessageBytes)))
	})

	_, err := c.GetDriverByCode(context.Background(), "EES2293")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
	assert.Len(t, gwErr.Message, maxMessageBytes)
}

func TestMalformedBodyIsGatewayError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": `))
	})

	_, err := c.GetDriverByCode(context.Background(), "EES2293")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Equal(t, "malformed gateway response", gwErr.Message)
}

func TestUnknownDriverIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drivers/NOPE", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	driver, err := c.GetDriverByCode(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, driver)
}

func TestScalarResultsAcceptNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RS-1", body["routingSheetCode"])
		_, _ = w.Write([]byte(`1`))
	})

	got, err := c.CloseRoutingSheet(context.Background(), "d", "v", "RS-1")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestCheckOpenedWayBill(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"true"`))
	})

	opened, err := c.CheckOpenedWayBill(context.Background(), "d", "v")
	require.NoError(t, err)
	assert.True(t, opened)
}
