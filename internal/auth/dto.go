package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// LoginInput carries the credential pair plus the caller's address for rate
// limiting.
type LoginInput struct {
	Username string
	Password string
	ClientIP string
}

// UserSummary is the account view returned with a token pair.
type UserSummary struct {
	UserID      uuid.UUID      `json:"user_id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserSummary `json:"user"`
}

func summaryFromModel(user *models.User) UserSummary {
	return UserSummary{
		UserID:      user.UserID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
	}
}
