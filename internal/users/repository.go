package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// mutableColumns is the closed set of fields Update may touch. Password and
// last-login writes go through their own narrower paths.
var mutableColumns = []string{
	"display_name", "role", "department", "email", "phone", "is_active",
}

// Repository wires together user account persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the account, minting an id when absent.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	if user.UserID == uuid.Nil {
		user.UserID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// Get loads one account by id.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername loads one account by its unique username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameExists reports whether the username is already taken.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DisplayNameExists reports whether an account with the given role already
// carries this display name. Bulk ingestion uses it to avoid minting a second
// login for a sales rep it has seen before.
func (r *Repository) DisplayNameExists(ctx context.Context, displayName string, role enums.UserRole) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("display_name = ? AND role = ?", displayName, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update overwrites the mutable profile fields of an existing account.
func (r *Repository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", user.UserID).
		Select(mutableColumns).
		Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored credential.
func (r *Repository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// StampLastLogin records a successful authentication.
func (r *Repository) StampLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("last_login_at", at).Error
}

// Delete removes the account.
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "user_id = ?", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns accounts by username, optionally narrowed to one role.
func (r *Repository) List(ctx context.Context, role *enums.UserRole) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Order("username")
	if role != nil {
		query = query.Where("role = ?", *role)
	}

	var accounts []models.User
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Count returns the number of accounts.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
