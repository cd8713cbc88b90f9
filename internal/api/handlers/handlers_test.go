package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/api/routes"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/delivery"
	"delivery-fleet-api-server/internal/gateway"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/socket"
	"delivery-fleet-api-server/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct {
	mu       sync.Mutex
	sheet    []models.RoutingSheetStop
	sheetErr error
	answer   string
	places   []gateway.LoadedPlaces
	moves    []gateway.MovePlaceParams
	cleared  []string
	unloaded []gateway.UnloadParams
}

func (g *stubGateway) GetDriverByCode(_ context.Context, code string) (*models.Driver, error) {
	if code == "UNKNOWN" {
		return nil, nil
	}
	return &models.Driver{Name: "Mykola", Surname: "Khyzhniak"}, nil
}

func (g *stubGateway) GetVehicleByCode(_ context.Context, code string) (*models.Vehicle, error) {
	if code == "UNKNOWN" {
		return nil, nil
	}
	return &models.Vehicle{Mark: "RENAULT", Model: "DOKKER VAN", LicensePlate: "AA8622XA"}, nil
}

func (g *stubGateway) GetRoutingSheet(context.Context, string, string) ([]models.RoutingSheetStop, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sheet, g.sheetErr
}

func (g *stubGateway) UnloadLabels(_ context.Context, p gateway.UnloadParams) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unloaded = append(g.unloaded, p)
	return nil
}

func (g *stubGateway) CreateDeliveryEntryHeader(context.Context, string, string) (string, error) {
	return g.answer, nil
}

func (g *stubGateway) CloseDeliveryEntryHeader(context.Context, string, string) (string, error) {
	return g.answer, nil
}

func (g *stubGateway) MovePlace(_ context.Context, p gateway.MovePlaceParams) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moves = append(g.moves, p)
	return json.RawMessage(`{"moved":true}`), nil
}

func (g *stubGateway) CheckLoadedPlaces(context.Context, string, string) ([]gateway.LoadedPlaces, error) {
	return g.places, nil
}

func (g *stubGateway) CreateWayBill(context.Context, string, string) (json.RawMessage, error) {
	return json.RawMessage(`{"wayBill":"WB-1"}`), nil
}

func (g *stubGateway) CloseRoutingSheet(context.Context, string, string, string) (string, error) {
	return g.answer, nil
}

func (g *stubGateway) ClearMovedPlaces(context.Context, string, string, string) (string, error) {
	return g.answer, nil
}

func (g *stubGateway) CheckOpenedWayBill(context.Context, string, string) (bool, error) {
	return true, nil
}

func (g *stubGateway) ClearTestLabelData(_ context.Context, labelCode string) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared = append(g.cleared, labelCode)
	return json.RawMessage(`"cleared"`), nil
}

type fakeUploader struct {
	keys []string
}

func (u *fakeUploader) UploadFile(_ context.Context, r io.Reader, key, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	u.keys = append(u.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type env struct {
	router   *gin.Engine
	gw       *stubGateway
	svc      *delivery.Service
	admins   *admin.Service
	tokens   *auth.TokenService
	uploader *fakeUploader
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.NewNop()
	store := memory.New()
	gw := &stubGateway{sheet: []models.RoutingSheetStop{
		{ID: "A", City: "Kyiv", Address: "Kasiiana 2/1", DocNo: "SHP-1"},
		{ID: "B", City: "Kyiv", Address: "Khreshchatyk 1", DocNo: "SHP-2"},
	}}
	tokens := auth.NewTokenService("test-secret", time.Hour, 24*time.Hour)
	svc := delivery.NewService(store, gw, socket.NewHub(log), log)
	admins := admin.NewService(store.Admin(), tokens, log)
	uploader := &fakeUploader{}

	var cfg config.Config
	cfg.Server.AllowedOrigins = []string{"*"}
	router := routes.SetupRouter(routes.Deps{
		Config:   cfg,
		Delivery: svc,
		Admins:   admins,
		Tokens:   tokens,
		Gateway:  gw,
		Hub:      socket.NewHub(log),
		Uploader: uploader,
		Log:      log,
	})
	t.Cleanup(svc.Wait)
	return &env{router: router, gw: gw, svc: svc, admins: admins, tokens: tokens, uploader: uploader}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *env) driverToken(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"driverCode": "EES2293", "vehicleCode": "VH15-0255"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *env) adminToken(t *testing.T) string {
	t.Helper()
	_, err := e.admins.EnsureAdmin(context.Background(), "root", "secret-pass")
	require.NoError(t, err)
	w := e.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{"login": "root", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, code, body["error"])
	return body
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeliveryLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)

	w := e.do(t, http.MethodGet, "/api/v1/routing-sheet", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode(t, w)["data"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].(map[string]interface{})["id"])
	assert.Equal(t, models.RouteStatusPending, list[0].(map[string]interface{})["status"])

	// Coordinates may arrive as strings.
	w = e.do(t, http.MethodPut, "/api/v1/route", token, gin.H{"id": "A", "status": "in-progress", "lat": "50.45", "lon": 30.52})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	route := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, models.RouteStatusInProgress, route["status"])
	assert.Equal(t, 50.45, route["location"].(map[string]interface{})["lat"])

	w = e.do(t, http.MethodPut, "/api/v1/route/complete", token, gin.H{
		"id": "A", "contactPersonId": "CP-1", "signature": "data:image/png;base64,AAAA", "lat": 50.46, "lon": 30.53,
		"images": []string{"https://cdn.example.com/1.jpg"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	route = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, models.RouteStatusCompleted, route["status"])
	assert.NotEmpty(t, route["completeDate"])

	w = e.do(t, http.MethodPut, "/api/v1/route/reject", token, gin.H{"id": "A", "reason": "closed", "lat": 1, "lon": 2})
	assertError(t, w, http.StatusConflict, "ROUTE_ALREADY_FINALIZED")

	w = e.do(t, http.MethodGet, "/api/v1/route/A/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	history := decode(t, w)["data"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, models.RouteStatusCompleted, history[0].(map[string]interface{})["status"])

	e.svc.Wait()
	e.gw.mu.Lock()
	defer e.gw.mu.Unlock()
	require.Len(t, e.gw.unloaded, 1)
	assert.Equal(t, "SHP-1", e.gw.unloaded[0].DocNo)
}

func TestRejectRoute(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/v1/routing-sheet", token, nil).Code)

	w := e.do(t, http.MethodPut, "/api/v1/route/reject", token, gin.H{"id": "B", "reason": "nobody home", "note": "called twice", "lat": 50, "lon": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	route := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, models.RouteStatusRejected, route["status"])
	assert.Equal(t, "nobody home", route["rejectReason"])
}

func TestRouteValidation(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/v1/routing-sheet", token, nil).Code)

	w := e.do(t, http.MethodPut, "/api/v1/route", token, gin.H{"id": "A", "status": "in-progress", "lat": 50.45})
	body := assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")
	assert.Contains(t, body["errors"], "lon is required")

	w = e.do(t, http.MethodPut, "/api/v1/route/complete", token, gin.H{"id": "A", "lat": 1, "lon": 2})
	body = assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")
	assert.Contains(t, body["errors"], "signature is required")

	w = e.do(t, http.MethodPut, "/api/v1/route", token, gin.H{"id": "A", "status": "completed", "lat": 1, "lon": 2})
	assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")

	w = e.do(t, http.MethodPut, "/api/v1/route", token, gin.H{"id": "missing", "status": "in-progress", "lat": 1, "lon": 2})
	assertError(t, w, http.StatusBadRequest, "ROUTE_NOT_FOUND")
}

func TestRoutingSheetErrors(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)

	e.gw.sheet = nil
	w := e.do(t, http.MethodGet, "/api/v1/routing-sheet", token, nil)
	assertError(t, w, http.StatusNotFound, "NO_ROUTING_SHEET")

	e.gw.sheetErr = &gateway.Error{StatusCode: http.StatusBadGateway, Message: "upstream down"}
	w = e.do(t, http.MethodGet, "/api/v1/routing-sheet", token, nil)
	body := assertError(t, w, http.StatusServiceUnavailable, "EXTERNAL_API_ERROR")
	desc := body["desc"].(map[string]interface{})
	assert.EqualValues(t, http.StatusBadGateway, desc["statusCode"])
	assert.Equal(t, "upstream down", desc["message"])

	e.gw.sheetErr = errors.New("dial tcp: refused")
	w = e.do(t, http.MethodGet, "/api/v1/routing-sheet", token, nil)
	body = assertError(t, w, http.StatusServiceUnavailable, "EXTERNAL_API_ERROR")
	assert.Nil(t, body["desc"])
}

func TestLoginVariants(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"driverCode": "EES2293"})
	require.Equal(t, http.StatusOK, w.Code)
	anonymous := decode(t, w)["access_token"].(string)

	claims, err := e.tokens.Verify(anonymous)
	require.NoError(t, err)
	assert.True(t, claims.Anonymous)

	// Anonymous tokens reach lookups but not the shift endpoints.
	w = e.do(t, http.MethodGet, "/api/v1/driver/EES2293", anonymous, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Mykola", decode(t, w)["data"].(map[string]interface{})["name"])

	w = e.do(t, http.MethodGet, "/api/v1/routing-sheet", anonymous, nil)
	assertError(t, w, http.StatusUnauthorized, "NOT_AUTHORIZED")

	w = e.do(t, http.MethodGet, "/api/v1/routing-sheet", "", nil)
	assertError(t, w, http.StatusUnauthorized, "NOT_AUTHORIZED")

	w = e.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"driverCode": "UNKNOWN", "vehicleCode": "VH15-0255"})
	assertError(t, w, http.StatusNotFound, "DRIVER_NOT_FOUND")
}

func TestDeliveryDocuments(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)

	e.gw.answer = "1"
	w := e.do(t, http.MethodPost, "/api/v1/create-delivery-entry-header", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1", decode(t, w)["data"])

	e.gw.answer = "0"
	w = e.do(t, http.MethodPost, "/api/v1/close-delivery-entry-header", token, nil)
	body := assertError(t, w, http.StatusServiceUnavailable, "UNKNOWN_RESPONSE")
	assert.Equal(t, "0", body["desc"])

	w = e.do(t, http.MethodPost, "/api/v1/clear-moved-places", token, gin.H{"routingSheetCode": "RS-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/close-routing-sheet", token, gin.H{})
	assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")

	w = e.do(t, http.MethodPost, "/api/v1/check-opened-way-bill", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["data"])

	w = e.do(t, http.MethodPost, "/api/v1/delivery/print", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "WB-1", decode(t, w)["data"].(map[string]interface{})["wayBill"])
}

func TestLabelScanLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)

	w := e.do(t, http.MethodDelete, "/api/v1/delivery/label/GD-7", token, nil)
	assertError(t, w, http.StatusBadRequest, "LABEL_NOT_FOUND")

	w = e.do(t, http.MethodPost, "/api/v1/move-place", token, gin.H{"movePlaceType": 1, "labelCode": "LBL-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, e.gw.moves, 1)
	assert.Equal(t, "EES2293", e.gw.moves[0].DriverCode)

	e.gw.places = []gateway.LoadedPlaces{{GeneralDeliveryCode: "GD-7", LoadedPlaces: 1, PlacesQuantity: 3}}
	w = e.do(t, http.MethodPost, "/api/v1/check-loaded-places", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodDelete, "/api/v1/delivery/label/GD-7", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"LBL-1"}, e.gw.cleared)
}

func TestAdminAccounts(t *testing.T) {
	e := newEnv(t)
	token := e.adminToken(t)

	w := e.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{"login": "root", "password": "wrong"})
	assertError(t, w, http.StatusUnauthorized, "BAD_PASSWORD")

	w = e.do(t, http.MethodPost, "/api/v1/admin", token, gin.H{"login": "Dispatcher", "password": "dispatch-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "dispatcher", created["login"])
	assert.Nil(t, created["password"])
	id := created["_id"].(string)

	w = e.do(t, http.MethodPost, "/api/v1/admin", token, gin.H{"login": "dispatcher", "password": "dispatch-2"})
	assertError(t, w, http.StatusConflict, "ADMIN_ALREADY_EXIST")

	w = e.do(t, http.MethodGet, "/api/v1/admins?count", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["data"].(map[string]interface{})["total"])

	w = e.do(t, http.MethodGet, "/api/v1/admins?limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["data"], 1)

	w = e.do(t, http.MethodPut, "/api/v1/admin", token, gin.H{"_id": id, "name": "Night shift"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Night shift", decode(t, w)["data"].(map[string]interface{})["name"])

	w = e.do(t, http.MethodGet, "/api/v1/admin/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodDelete, "/api/v1/admin/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["data"].(map[string]interface{})["deletedCount"])

	w = e.do(t, http.MethodGet, "/api/v1/admin/"+id, token, nil)
	assertError(t, w, http.StatusNotFound, "ADMIN_NOT_FOUND")

	w = e.do(t, http.MethodGet, "/api/v1/admin/not-an-id", token, nil)
	assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")
}

func TestAdminRefreshToken(t *testing.T) {
	e := newEnv(t)
	_, err := e.admins.EnsureAdmin(context.Background(), "root", "secret-pass")
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{"login": "root", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	refresh := decode(t, w)["refresh_token"].(string)

	w = e.do(t, http.MethodPost, "/api/v1/refresh-token", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["access_token"])

	// A refresh token does not open the back office by itself.
	w = e.do(t, http.MethodGet, "/api/v1/admins", refresh, nil)
	assertError(t, w, http.StatusUnauthorized, "NOT_AUTHORIZED")

	w = e.do(t, http.MethodPost, "/api/v1/refresh-token", "", gin.H{"refresh_token": ""})
	assertError(t, w, http.StatusUnauthorized, "REFRESH_TOKEN_NOT_PROVIDED")
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t)
	driver := e.driverToken(t)
	token := e.adminToken(t)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/v1/routing-sheet", driver, nil).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/api/v1/route", driver,
		gin.H{"id": "A", "status": "in-progress", "lat": 1, "lon": 2}).Code)

	// Driver tokens do not open the back office.
	w := e.do(t, http.MethodGet, "/api/v1/admin/routes", driver, nil)
	assertError(t, w, http.StatusUnauthorized, "NOT_AUTHORIZED")

	w = e.do(t, http.MethodGet, "/api/v1/admin/routes?status=in-progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	route := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "A", route["id"])

	w = e.do(t, http.MethodGet, "/api/v1/admin/routes?status=lost", token, nil)
	assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")

	w = e.do(t, http.MethodGet, "/api/v1/admin/routes?driverShiftId=nope", token, nil)
	assertError(t, w, http.StatusBadRequest, "BAD_PARAMETERS")

	objectID := route["_id"].(string)
	w = e.do(t, http.MethodGet, "/api/v1/admin/routes/"+objectID+"/logs", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["data"], 1)

	w = e.do(t, http.MethodGet, "/api/v1/admin/shifts/"+route["driverShiftId"].(string), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "EES2293", decode(t, w)["data"].(map[string]interface{})["driverCode"])

	w = e.do(t, http.MethodDelete, "/api/v1/admin/routes/"+objectID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/admin/routes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestUploadPhotos(t *testing.T) {
	e := newEnv(t)
	token := e.driverToken(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"front.JPG", "back.png"} {
		part, err := mw.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-access-token", token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	urls := decode(t, w)["data"].([]interface{})
	require.Len(t, urls, 2)
	require.Len(t, e.uploader.keys, 2)
	assert.Regexp(t, `^photos/[0-9a-f-]{36}\.jpg$`, e.uploader.keys[0])
	assert.Equal(t, "https://cdn.example.com/"+e.uploader.keys[1], urls[1])

	w = e.do(t, http.MethodPost, "/api/v1/upload", token, nil)
	assertError(t, w, http.StatusBadRequest, "FILES_NOT_PROVIDED")
}
