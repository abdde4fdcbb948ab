package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
	"github.com/quayretail/orderdesk-backend/pkg/security"
)

const defaultAdminUsername = "admin"

// CreateUserInput carries the fields accepted when provisioning an account.
type CreateUserInput struct {
	Username    string
	Password    string
	DisplayName string
	Role        enums.UserRole
	Department  string
	Email       string
	Phone       string
}

// RegisterCustomerInput is the self-service signup surface. The role is
// always customer regardless of what the caller sends.
type RegisterCustomerInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Phone       string
}

// UpdateUserInput patches an existing account. Nil fields are untouched.
type UpdateUserInput struct {
	DisplayName *string
	Role        *enums.UserRole
	Department  *string
	Email       *string
	Phone       *string
	IsActive    *bool
}

// Service defines the user account operations.
type Service interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	EnsureDefaultAdmin(ctx context.Context, password string) (created bool, err error)
	CreateUser(ctx context.Context, actor auth.Identity, input CreateUserInput) (*models.User, error)
	RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*models.User, error)
	UpdateUser(ctx context.Context, actor auth.Identity, userID uuid.UUID, input UpdateUserInput) (*models.User, error)
	ChangePassword(ctx context.Context, actor auth.Identity, userID uuid.UUID, oldPassword, newPassword string) error
	DeleteUser(ctx context.Context, actor auth.Identity, userID uuid.UUID) error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, actor auth.Identity, role *enums.UserRole) ([]models.User, error)
}

type service struct {
	repo *Repository
	cfg  config.PasswordConfig
	log  *logger.Logger
	now  func() time.Time
}

// NewService constructs a user service instance.
func NewService(repo *Repository, cfg config.PasswordConfig, log *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, cfg: cfg, log: log, now: now}, nil
}

// Authenticate verifies credentials. Unknown usernames, wrong passwords, and
// disabled accounts all come back as the same InvalidCredentials error so the
// response does not leak which usernames exist.
func (s *service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	invalid := pkgerrors.New(pkgerrors.CodeInvalidCredentials, "invalid username or password")

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	if !user.IsActive {
		return nil, invalid
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalid
	}

	loginAt := s.now()
	if err := s.repo.StampLastLogin(ctx, user.UserID, loginAt); err != nil {
		s.log.Warn(s.log.WithUserID(ctx, user.UserID.String()), "failed to stamp last login")
	}
	user.LastLoginAt = &loginAt
	return user, nil
}

// EnsureDefaultAdmin seeds the admin account when the user table is empty.
func (s *service) EnsureDefaultAdmin(ctx context.Context, password string) (bool, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count users")
	}
	if count > 0 {
		return false, nil
	}

	hash, err := security.HashPassword(password, s.cfg)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash admin password")
	}
	admin := &models.User{
		Username:     defaultAdminUsername,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seed admin")
	}
	s.log.Info(ctx, "seeded default admin account")
	return true, nil
}

func (s *service) CreateUser(ctx context.Context, actor auth.Identity, input CreateUserInput) (*models.User, error) {
	if !actor.Role.CanManageUsers() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage users")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}
	return s.createAccount(ctx, input)
}

func (s *service) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*models.User, error) {
	return s.createAccount(ctx, CreateUserInput{
		Username:    input.Username,
		Password:    input.Password,
		DisplayName: input.DisplayName,
		Role:        enums.UserRoleCustomer,
		Email:       input.Email,
		Phone:       input.Phone,
	})
}

func (s *service) createAccount(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if len(username) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must be at least 3 characters")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		Department:   input.Department,
		Email:        input.Email,
		Phone:        input.Phone,
		IsActive:     true,
	}
	if user.DisplayName == "" {
		user.DisplayName = username
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists,
				fmt.Sprintf("username %q is taken", username))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}
	return user, nil
}

func (s *service) UpdateUser(ctx context.Context, actor auth.Identity, userID uuid.UUID, input UpdateUserInput) (*models.User, error) {
	if !actor.Role.CanManageUsers() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage users")
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if input.DisplayName != nil {
		user.DisplayName = *input.DisplayName
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", *input.Role))
		}
		user.Role = *input.Role
	}
	if input.Department != nil {
		user.Department = *input.Department
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, mapLookupError(err)
	}
	return user, nil
}

// ChangePassword lets a user rotate their own credential with the old one, or
// an admin set any user's without it.
func (s *service) ChangePassword(ctx context.Context, actor auth.Identity, userID uuid.UUID, oldPassword, newPassword string) error {
	self := actor.UserID == userID
	if !self && !actor.Role.CanManageUsers() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot change other users' passwords")
	}
	if len(newPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return mapLookupError(err)
	}
	if self && !actor.Role.CanManageUsers() {
		ok, verr := security.VerifyPassword(oldPassword, user.PasswordHash)
		if verr != nil || !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidCredentials, "invalid username or password")
		}
	}

	hash, err := security.HashPassword(newPassword, s.cfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func (s *service) DeleteUser(ctx context.Context, actor auth.Identity, userID uuid.UUID) error {
	if !actor.Role.CanManageUsers() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage users")
	}
	if actor.UserID == userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return user, nil
}

func (s *service) ListUsers(ctx context.Context, actor auth.Identity, role *enums.UserRole) ([]models.User, error) {
	if !actor.Role.CanManageUsers() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage users")
	}
	accounts, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}
	return accounts, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: user")
}
