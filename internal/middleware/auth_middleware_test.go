package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-safety/internal/domain"
	"go-safety/internal/middleware"
	"go-safety/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const secret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	assert.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id":   "user-1",
		"secret_id": "test123",
		"role":      "recorder",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("role"),
			"ctx_uid": contextutil.GetUserID(c.Request.Context()),
		})
	})
	return r
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Message
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		w := get(authRouter(), signed(t, validClaims(), jwt.SigningMethodHS256, []byte(secret)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"user-1","role":"recorder","ctx_uid":"user-1"}`, w.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		w := get(authRouter(), "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Access denied. No token provided", errMessage(t, w))
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()

		w := get(authRouter(), signed(t, claims, jwt.SigningMethodHS256, []byte(secret)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Token expired", errMessage(t, w))
	})

	t.Run("wrong secret", func(t *testing.T) {
		w := get(authRouter(), signed(t, validClaims(), jwt.SigningMethodHS256, []byte("other")))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid token", errMessage(t, w))
	})

	t.Run("no user id claim", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "user_id")

		w := get(authRouter(), signed(t, claims, jwt.SigningMethodHS256, []byte(secret)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type fakeRBAC struct {
	allowed bool
	err     error
	got     domain.EnforceRequest
}

func (f *fakeRBAC) Enforce(req domain.EnforceRequest) (bool, error) {
	f.got = req
	return f.allowed, f.err
}

func rbacRouter(svc middleware.RBACService, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.DELETE("/records/:id",
		func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
			c.Next()
		},
		middleware.RBACAuthorize(svc, "record", "delete"),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)
	return r
}

func del(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/records/1", nil))
	return w
}

func TestRBACAuthorize(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		svc := &fakeRBAC{allowed: true}

		w := del(rbacRouter(svc, "admin"))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, domain.EnforceRequest{Role: "admin", Resource: "record", Action: "delete"}, svc.got)
	})

	t.Run("forbidden", func(t *testing.T) {
		w := del(rbacRouter(&fakeRBAC{}, "viewer"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), `"required":"record:delete"`)
	})

	t.Run("no role", func(t *testing.T) {
		w := del(rbacRouter(&fakeRBAC{allowed: true}, ""))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("enforcer error", func(t *testing.T) {
		w := del(rbacRouter(&fakeRBAC{err: errors.New("boom")}, "admin"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRateLimitByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x",
		func(c *gin.Context) {
			c.Set("user_id", c.GetHeader("X-User"))
			c.Next()
		},
		middleware.RateLimitByUser(0.001, 1),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"))
	// anonymous requests are not limited per user
	assert.Equal(t, http.StatusOK, call(""))
	assert.Equal(t, http.StatusOK, call(""))
}
