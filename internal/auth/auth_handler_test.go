package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go-safety/internal/auth"
	autherrors "go-safety/internal/auth/errors"
	authMock "go-safety/internal/auth/mock"
	"go-safety/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	apperror.Init()
	os.Exit(m.Run())
}

type envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupAuthRouter(h *auth.Handler) *gin.Engine {
	r := gin.New()
	r.POST("/login", h.Login)
	withUser := func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	}
	r.GET("/verify", withUser, h.Verify)
	r.PUT("/change-password", withUser, h.ChangePassword)
	return r
}

func doJSON(r *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)
		svc.EXPECT().
			Login(gomock.Any(), "test123", "password123").
			Return(auth.LoginResponse{Token: "jwt", User: auth.UserResponse{ID: "u1", SecretID: "test123", Role: "admin"}}, nil)

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPost, "/login",
			auth.LoginRequest{SecretID: "test123", Password: "password123"})

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Ok)
		assert.Contains(t, string(env.Data), `"token":"jwt"`)
		assert.Contains(t, string(env.Data), `"secretId":"test123"`)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPost, "/login",
			auth.LoginRequest{SecretID: "test123", Password: "123"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeValidationFailed, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)
		svc.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(auth.LoginResponse{}, autherrors.ErrInvalidCredentials)

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPost, "/login",
			auth.LoginRequest{SecretID: "test123", Password: "wrongpassword"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decodeEnvelope(t, w).Error.Message)
	})

	t.Run("locked", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)
		svc.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(auth.LoginResponse{}, autherrors.ErrAccountLocked)

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPost, "/login",
			auth.LoginRequest{SecretID: "test123", Password: "password123"})

		assert.Equal(t, http.StatusLocked, w.Code)
		assert.Equal(t, apperror.CodeAccountLocked, decodeEnvelope(t, w).Error.Code)
	})
}

func TestHandler_Verify(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := authMock.NewMockService(ctrl)
	svc.EXPECT().Verify(gomock.Any(), "user-1").Return(auth.UserResponse{ID: "user-1", SecretID: "test123", Role: "viewer"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	w := httptest.NewRecorder()
	setupAuthRouter(auth.NewHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":{"id":"user-1","secretId":"test123","role":"viewer"}`)
}

func TestHandler_ChangePassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)
		svc.EXPECT().
			ChangePassword(gomock.Any(), "user-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, req auth.ChangePasswordRequest) error {
				assert.Equal(t, "newsecret", req.NewPassword)
				return nil
			})

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPut, "/change-password",
			auth.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newsecret"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Password changed successfully")
	})

	t.Run("new password too short", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPut, "/change-password",
			auth.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "abc"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := authMock.NewMockService(ctrl)
		svc.EXPECT().ChangePassword(gomock.Any(), "user-1", gomock.Any()).Return(autherrors.ErrInvalidCurrentPassword)

		w := doJSON(setupAuthRouter(auth.NewHandler(svc)), http.MethodPut, "/change-password",
			auth.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newsecret"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Current password is incorrect", decodeEnvelope(t, w).Error.Message)
	})
}
