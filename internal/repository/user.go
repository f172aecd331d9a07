package repository

import (
	"context"
	"strings"

	"gatepass/internal/cache"
	"gatepass/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) UserRepository
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
	Search(ctx context.Context, query string) ([]models.User, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
	ListByRoleAndStatus(ctx context.Context, role, status string) ([]models.User, error)
	IncrementOffences(ctx context.Context, ids []uint) (int64, error)
	ListOffenders(ctx context.Context, role string, minOffences int) ([]models.User, error)
	ClearOffences(ctx context.Context, username string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// GetByUsername reads through the Redis cache.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(username), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
			return notFoundOr(err, "User not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsernameForUpdate reads the row from the database and locks it.
func (r *userRepository) GetByUsernameForUpdate(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := forUpdate(r.db.WithContext(ctx)).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Search matches query case-insensitively against username, role, status, name and phone.
func (r *userRepository) Search(ctx context.Context, query string) ([]models.User, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? OR LOWER(role) LIKE ? OR LOWER(status) LIKE ? OR LOWER(name) LIKE ? OR LOWER(COALESCE(phone, '')) LIKE ?",
			pattern, pattern, pattern, pattern, pattern).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User not found")
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) ListByRoleAndStatus(ctx context.Context, role, status string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", role, status).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// IncrementOffences adds one offence to every listed user in a single statement.
func (r *userRepository) IncrementOffences(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ?", ids).
		Update("offences", gorm.Expr("offences + 1"))
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *userRepository) ListOffenders(ctx context.Context, role string, minOffences int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ? AND offences > ?", role, minOffences).
		Order("offences DESC, id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ClearOffences(ctx context.Context, username string) (*models.User, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("offences", 0)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Student not found")
	}
	cache.InvalidateUsers(ctx, username)

	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}
