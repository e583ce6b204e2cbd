package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAuthenticator(t *testing.T) {
	auth := NewJWTAuthenticator(secret)
	teacher := models.Actor{ID: 42, Role: models.RoleTeacher}

	t.Run("round trip", func(t *testing.T) {
		token, err := IssueToken(secret, teacher, time.Hour)
		require.NoError(t, err)

		actor, err := auth.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, teacher, actor)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueToken("other", teacher, time.Hour)
		require.NoError(t, err)

		_, err = auth.Authenticate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := IssueToken(secret, teacher, -time.Minute)
		require.NoError(t, err)

		_, err = auth.Authenticate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := JWTClaims{
			UserID: 42,
			Role:   models.UserRole(9),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = auth.Authenticate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.Authenticate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	token, err := bearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	token, err = bearerToken("bearer  xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = bearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = bearerToken("Basic abc")
	assert.Error(t, err)
}

type stubAuthenticator struct {
	actor models.Actor
	err   error
}

func (s stubAuthenticator) Authenticate(string) (models.Actor, error) {
	return s.actor, s.err
}

func newRouter(auth Authenticator, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AuthMiddleware(auth))
	handlers := append(guards, func(c *gin.Context) {
		actor, _ := ActorFromContext(c)
		requestID, _ := services.RequestIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"actor_id": actor.ID, "request_id": requestID})
	})
	router.GET("/protected", handlers...)
	return router
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	teacher := models.Actor{ID: 7, Role: models.RoleTeacher}

	t.Run("stores actor", func(t *testing.T) {
		w := serve(newRouter(stubAuthenticator{actor: teacher}), "Bearer token")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"actor_id":7`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := serve(newRouter(stubAuthenticator{actor: teacher}), "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"kind":"unauthenticated"`)
	})

	t.Run("rejected token", func(t *testing.T) {
		w := serve(newRouter(stubAuthenticator{err: errors.New("bad")}), "Bearer token")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	staffOnly := RequireRole(models.RoleAdmin, models.RoleOperator)

	w := serve(newRouter(stubAuthenticator{actor: models.Actor{ID: 1, Role: models.RoleOperator}}, staffOnly), "Bearer t")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(newRouter(stubAuthenticator{actor: models.Actor{ID: 7, Role: models.RoleTeacher}}, staffOnly), "Bearer t")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"permission_denied"`)
}

func TestRequestID(t *testing.T) {
	router := newRouter(stubAuthenticator{actor: models.Actor{ID: 7, Role: models.RoleTeacher}})

	t.Run("generated", func(t *testing.T) {
		w := serve(router, "Bearer t")

		id := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer t")
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Contains(t, w.Body.String(), `"request_id":"req-123"`)
	})
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
