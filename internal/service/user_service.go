package service

import (
	"context"
	"log/slog"
	"strings"

	"gatepass/internal/cache"
	"gatepass/internal/database"
	"gatepass/internal/middleware"
	"gatepass/internal/models"
	"gatepass/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// offenderThreshold is the offence count a student must exceed to be listed.
const offenderThreshold = 1

// CreateUserInput is the body of a new user.
type CreateUserInput struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Status   string  `json:"status"`
	Phone    *string `json:"phone"`
	Image    *string `json:"image"`
}

// DeleteResult is returned after a user is removed.
type DeleteResult struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// UserService manages the user directory and offence counters.
type UserService struct {
	db          *gorm.DB
	users       repository.UserRepository
	requests    repository.RequestRepository
	studentRole string
}

// NewUserService returns a new UserService. studentRole selects who ListOffenders reports.
func NewUserService(
	db *gorm.DB,
	users repository.UserRepository,
	requests repository.RequestRepository,
	studentRole string,
) *UserService {
	return &UserService{db: db, users: users, requests: requests, studentRole: studentRole}
}

// Create stores a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, models.NewValidationError("username, password and name are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Name:     in.Name,
		Password: string(hashed),
		Role:     strings.TrimSpace(in.Role),
		Status:   strings.TrimSpace(in.Status),
		Phone:    in.Phone,
		Image:    in.Image,
	}
	if user.Role == "" {
		user.Role = models.DefaultUserRole
	}
	if user.Status == "" {
		user.Status = models.UserStatusIn
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateUsers(ctx, user.Username)
	return user, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// Get returns one user, served from cache when possible.
func (s *UserService) Get(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// Search returns users whose username, role, status, name or phone contains query.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	return s.users.Search(ctx, query)
}

// Delete removes a user and all of their requests atomically. Requests filed
// under an unknown username are still removed before not-found is returned.
func (s *UserService) Delete(ctx context.Context, username string) (*DeleteResult, error) {
	var deleted models.User
	var removedRequests int64
	var missing error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.LockUser(tx, username); err != nil {
			return err
		}
		var err error
		if removedRequests, err = s.requests.WithTx(tx).DeleteByUsername(ctx, username); err != nil {
			return err
		}
		users := s.users.WithTx(tx)
		user, err := users.GetByUsernameForUpdate(ctx, username)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				missing = err
				return nil
			}
			return err
		}
		if err := users.Delete(ctx, user.ID); err != nil {
			return err
		}
		deleted = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	if missing != nil {
		if removedRequests > 0 {
			middleware.Logger.InfoContext(ctx, "orphan requests removed",
				slog.String("username", username),
				slog.Int64("requests_removed", removedRequests),
			)
		}
		return nil, missing
	}

	cache.InvalidateUsers(ctx, username)
	middleware.Logger.InfoContext(ctx, "user deleted",
		slog.String("username", username),
		slog.Int64("requests_removed", removedRequests),
	)
	return &DeleteResult{Message: "User deleted successfully", User: deleted}, nil
}

// ListOffenders returns students with more than one offence, most offences first.
func (s *UserService) ListOffenders(ctx context.Context) ([]models.User, error) {
	return s.users.ListOffenders(ctx, s.studentRole, offenderThreshold)
}

// ClearOffences resets a user's offence counter.
func (s *UserService) ClearOffences(ctx context.Context, username string) (*models.User, error) {
	return s.users.ClearOffences(ctx, username)
}
