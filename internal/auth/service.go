package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	pkgauth "github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/auth/session"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

type authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type userLoader interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          authenticator
	UserLoader     userLoader
	SessionManager sessionManager
	RateLimiter    rateLimiter
	JWTConfig      config.JWTConfig
	Logger         *logger.Logger
}

type service struct {
	users   authenticator
	loader  userLoader
	session sessionManager
	limiter rateLimiter
	jwtCfg  config.JWTConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user authenticator is required")
	}
	if params.UserLoader == nil {
		return nil, fmt.Errorf("user loader is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		users:   params.Users,
		loader:  params.UserLoader,
		session: params.SessionManager,
		limiter: params.RateLimiter,
		jwtCfg:  params.JWTConfig,
		log:     params.Logger,
		now:     time.Now,
	}, nil
}

// Login verifies credentials and issues an access/refresh pair. Attempts are
// rate limited per client address so password spraying stalls out.
func (s *service) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	if s.limiter != nil && input.ClientIP != "" {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:"+input.ClientIP, loginRateLimit, loginRateWindow)
		if err != nil {
			s.log.Warn(ctx, "login rate limiter unavailable, allowing attempt")
		} else if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many login attempts, try again later")
		}
	}

	user, err := s.users.Authenticate(ctx, strings.TrimSpace(input.Username), input.Password)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user)
}

// Refresh rotates the refresh token and issues a fresh pair. The presented
// access token may be expired; only its signature and session have to hold.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	// Re-read the account so a deactivation or role change since login takes
	// effect on the next token, not at some unbounded later point.
	user, err := s.loader.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.session.Revoke(ctx, newAccessID)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	if !user.IsActive {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}

	token, err := s.mint(user, newAccessID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  token,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute / time.Second),
		User:         summaryFromModel(user),
	}, nil
}

// Logout revokes the session behind the access id. Revoking an already
// revoked session succeeds.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessID := session.NewAccessID()
	token, err := s.mint(user, accessID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	s.log.Info(s.log.WithUserID(ctx, user.UserID.String()), "login succeeded")
	return &TokenPair{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute / time.Second),
		User:         summaryFromModel(user),
	}, nil
}

func (s *service) mint(user *models.User, accessID string) (string, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:      user.UserID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		JTI:         accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}
