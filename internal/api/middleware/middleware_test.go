package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateAcceptsBothHeaders(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour, time.Hour)
	token, err := tokens.GenerateAccessToken(auth.Claims{ShiftID: "665f1c2a9b1e8a0012345678", DriverCode: "EES2293"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Authenticate(tokens, logger.NewNop()), RequireDriver(logger.NewNop()), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFrom(c).DriverCode)
	})

	for _, header := range []struct{ name, value string }{
		{"Authorization", "Bearer " + token},
		{"Authorization", token},
		{"x-access-token", token},
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(header.name, header.value)
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code, header.name)
		assert.Equal(t, "EES2293", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"NOT_AUTHORIZED"}`, w.Body.String())
}

func TestRoleGuards(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour, time.Hour)
	log := logger.NewNop()
	anonymous, err := tokens.GenerateAccessToken(auth.Claims{Anonymous: true})
	require.NoError(t, err)
	admin, err := tokens.GenerateAccessToken(auth.Claims{AdminID: "665f1c2a9b1e8a0012345678", IsAdmin: true})
	require.NoError(t, err)

	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/driver", Authenticate(tokens, log), RequireDriver(log), ok)
	r.GET("/admin", Authenticate(tokens, log), RequireAdmin(log), ok)

	cases := []struct {
		path, token string
		want        int
	}{
		{"/driver", anonymous, http.StatusUnauthorized},
		{"/driver", admin, http.StatusUnauthorized},
		{"/admin", anonymous, http.StatusUnauthorized},
		{"/admin", admin, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("x-access-token", tc.token)
		assert.Equal(t, tc.want, serve(r, req).Code, tc.path)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderXRequestID)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "0f8fad5b-d9cb-469f-a165-70867728950e")
	w = serve(r, req)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", w.Header().Get(HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "not a uuid\n")
	w = serve(r, req)
	assert.NotEqual(t, "not a uuid\n", w.Header().Get(HeaderXRequestID))
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"INTERNAL_SERVER_ERROR"}`, w.Body.String())
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	// Nothing listens on port 1.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()

	r := gin.New()
	r.Use(RateLimit(rdb, 1, logger.NewNop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}
