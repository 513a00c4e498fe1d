package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type tokenStub struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/resource/:id", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource/42", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r := newEngine(JWT(&tokenStub{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, w))
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newEngine(JWT(&tokenStub{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	stub := &tokenStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}
	r := newEngine(JWT(stub), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "stale", stub.seen)
}

func TestJWTStoresClaims(t *testing.T) {
	stub := &tokenStub{claims: &models.JWTClaims{StaffID: "s-1", Username: "asha", Role: models.RoleStaff}}
	var got *models.JWTClaims
	r := newEngine(JWT(stub), func(c *gin.Context) {
		got, _ = Claims(c)
		c.Status(http.StatusOK)
	})

	w := serve(r, "bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "s-1", got.StaffID)
	assert.Equal(t, "good-token", stub.seen)
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name   string
		role   models.UserRole
		status int
	}{
		{name: "admin allowed", role: models.RoleAdmin, status: http.StatusOK},
		{name: "hod allowed", role: models.RoleHOD, status: http.StatusOK},
		{name: "staff forbidden", role: models.RoleStaff, status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &tokenStub{claims: &models.JWTClaims{Username: "u", Role: tc.role}}
			r := newEngine(JWT(stub), RequireRoles(models.RoleAdmin, models.RoleHOD), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := serve(r, "Bearer t")
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newEngine(RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	var meta map[string]interface{}
	r := newEngine(WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, "")
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}

func TestSetCacheHitWithoutMetaMiddleware(t *testing.T) {
	var meta map[string]interface{}
	r := newEngine(func(c *gin.Context) {
		SetCacheHit(c, false)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, "")
	assert.Equal(t, false, meta[cacheHitKey])
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := &tokenStub{claims: &models.JWTClaims{Username: "admin", Role: models.RoleAdmin}}
	r := newEngine(JWT(stub), Audit(zap.New(core), "delete", "batch"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, "Bearer t")

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "delete", fields["action"])
	assert.Equal(t, "batch", fields["resource"])
	assert.Equal(t, "42", fields["resource_id"])
	assert.Equal(t, "admin", fields["actor"])
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(Audit(zap.New(core), "delete", "batch"), func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusConflict)
	})

	serve(r, "")
	assert.Zero(t, logs.Len())
}
