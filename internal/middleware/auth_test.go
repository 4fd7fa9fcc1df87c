package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/auth"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeIdentity struct {
	callers map[uint]domain.Caller
	err     error
}

func (f *fakeIdentity) Resolve(_ context.Context, id uint) (domain.Caller, error) {
	if f.err != nil {
		return domain.Caller{}, f.err
	}
	c, ok := f.callers[id]
	if !ok {
		return domain.Caller{}, service.ErrNotFound
	}
	return c, nil
}

func newEngine(identity identityResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := gin.New()
	r.Use(RequestID(), Auth(identity, AuthOptions{Secret: secret, DefaultLocale: "en", Now: func() time.Time { return now }}))
	r.GET("/me", func(c *gin.Context) {
		rc, ok := GetRequestContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": rc.Caller.ID, "locale": rc.Locale, "request_id": GetRequestID(c)})
	})
	return r
}

func do(r http.Handler, token, acceptLanguage string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if acceptLanguage != "" {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ResolvesCallerAndLocale(t *testing.T) {
	identity := &fakeIdentity{callers: map[uint]domain.Caller{7: {ID: 7, Role: "student"}}}
	r := newEngine(identity)
	token, err := auth.GenerateToken(secret, 7, "student", time.Hour)
	require.NoError(t, err)

	w := do(r, token, "th-TH,th;q=0.9,en;q=0.5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"locale":"th"`)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = do(r, token, "fr-FR")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"locale":"en"`)
}

func TestAuth_Rejections(t *testing.T) {
	identity := &fakeIdentity{callers: map[uint]domain.Caller{}}
	r := newEngine(identity)

	assert.Equal(t, http.StatusUnauthorized, do(r, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage", "").Code)

	token, err := auth.GenerateToken(secret, 9, "student", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, token, "").Code)

	identity.err = service.ErrForbidden
	assert.Equal(t, http.StatusForbidden, do(r, token, "").Code)

	other, err := auth.GenerateToken("other-secret", 9, "student", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, other, "").Code)
}

func TestRequestID_KeepsValidClientID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	id := "5f0c6f0e-3c2a-4b8e-9d7a-2b1d0f7e8a11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}

func TestNegotiateLocale(t *testing.T) {
	assert.Equal(t, "th", negotiateLocale("", "th"))
	assert.Equal(t, "en", negotiateLocale("", ""))
	assert.Equal(t, "th", negotiateLocale("th", "en"))
	assert.Equal(t, "en", negotiateLocale(";;;", "en"))
}
