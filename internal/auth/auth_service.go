package auth

import (
	"context"
	"strings"
	"time"

	autherrors "go-safety/internal/auth/errors"
	"go-safety/internal/observability/metrics"
	"go-safety/internal/shared/contextutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Login(ctx context.Context, secretID, password string) (LoginResponse, error)
	Verify(ctx context.Context, userID string) (UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	// EnsureUser creates the account when the secret id is still free.
	EnsureUser(ctx context.Context, secretID, password, role string) (bool, error)
}

type Config struct {
	Secret string
	Expiry time.Duration
	Now    func() time.Time
}

type service struct {
	repo   Repository
	secret []byte
	expiry time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewService(repo Repository, cfg Config, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 7 * 24 * time.Hour
	}
	return &service{
		repo:   repo,
		secret: []byte(cfg.Secret),
		expiry: cfg.Expiry,
		now:    cfg.Now,
		logger: l,
	}
}

func (s *service) Login(ctx context.Context, secretID, password string) (LoginResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	secretID = strings.TrimSpace(secretID)

	// 1. Ambil user
	user, err := s.repo.GetBySecretID(ctx, secretID)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Error("login lookup failed", zap.String("request_id", rid), zap.Error(err))
			return LoginResponse{}, err
		}
		metrics.ObserveLogin("invalid")
		return LoginResponse{}, autherrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.ObserveLogin("invalid")
		return LoginResponse{}, autherrors.ErrInvalidCredentials
	}

	now := s.now().UTC()

	// 2. Akun terkunci
	if user.IsLocked(now) {
		s.logger.Warn("login on locked account",
			zap.String("request_id", rid),
			zap.String("secret_id", secretID),
			zap.Timep("lock_until", user.LockUntil),
		)
		metrics.ObserveLogin("locked")
		return LoginResponse{}, autherrors.ErrAccountLocked
	}

	// 3. Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		user.registerFailure(now)
		if err := s.repo.Update(ctx, user); err != nil {
			s.logger.Error("record failed login", zap.String("request_id", rid), zap.Error(err))
			return LoginResponse{}, err
		}
		s.logger.Info("login failed",
			zap.String("request_id", rid),
			zap.String("secret_id", secretID),
			zap.Int("attempts", user.LoginAttempts),
		)
		metrics.ObserveLogin("invalid")
		return LoginResponse{}, autherrors.ErrInvalidCredentials
	}

	// 4. Reset counter, catat lastLogin
	user.registerSuccess(now)
	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("record login", zap.String("request_id", rid), zap.Error(err))
		return LoginResponse{}, err
	}

	token, err := s.generateToken(user, now)
	if err != nil {
		s.logger.Error("sign token", zap.Error(err))
		return LoginResponse{}, autherrors.ErrTokenGenerationFailed
	}

	s.logger.Info("user logged in", zap.String("request_id", rid), zap.String("secret_id", secretID))
	metrics.ObserveLogin("success")

	return LoginResponse{Token: token, User: mapToResponse(user)}, nil
}

func (s *service) Verify(ctx context.Context, userID string) (UserResponse, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return UserResponse{}, err
	}
	return mapToResponse(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return autherrors.ErrInvalidCurrentPassword
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("change password failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.logger.Info("user changed password", zap.String("secret_id", user.SecretID))
	return nil
}

func (s *service) EnsureUser(ctx context.Context, secretID, password, role string) (bool, error) {
	secretID = strings.TrimSpace(secretID)
	_, err := s.repo.GetBySecretID(ctx, secretID)
	if err == nil {
		return false, nil
	}
	if !isNotFound(err) {
		return false, err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	user := &User{
		ID:        uuid.New(),
		SecretID:  secretID,
		Password:  hashed,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return false, mapRepositoryError(err)
	}

	s.logger.Info("user created", zap.String("secret_id", secretID), zap.String("role", role))
	return true, nil
}

// activeUser loads the token's subject. A deleted or deactivated account
// makes the token itself invalid.
func (s *service) activeUser(ctx context.Context, userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, autherrors.ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, autherrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, autherrors.ErrInvalidToken
	}
	return user, nil
}

func (s *service) generateToken(user *User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   user.ID.String(),
		"secret_id": user.SecretID,
		"role":      user.Role,
		"iat":       now.Unix(),
		"exp":       now.Add(s.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func mapToResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		SecretID:  u.SecretID,
		Role:      u.Role,
		LastLogin: u.LastLogin,
	}
}
