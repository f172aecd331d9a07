package repository

import (
	"context"

	"gatepass/internal/models"

	"gorm.io/gorm"
)

// RequestRepository defines persistence operations for gate-pass requests.
type RequestRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) RequestRepository
	Create(ctx context.Context, req *models.Request) error
	LatestPendingForUpdate(ctx context.Context, username string, types []string) (*models.Request, error)
	PendingOwner(ctx context.Context, id uint, requestType string) (string, error)
	PendingByIDForUpdate(ctx context.Context, id uint, requestType string) (*models.Request, error)
	UpdateStatus(ctx context.Context, id uint, status models.RequestStatus) error
	CountPending(ctx context.Context, username string, types []string) (int64, error)
	ListPendingByTypes(ctx context.Context, types []string) ([]models.Request, error)
	ListPendingForUser(ctx context.Context, username string) ([]models.Request, error)
	DeleteByUsername(ctx context.Context, username string) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) WithTx(tx *gorm.DB) RequestRepository {
	return &requestRepository{db: tx}
}

func (r *requestRepository) Create(ctx context.Context, req *models.Request) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// LatestPendingForUpdate locks and returns the most recent Pending request of
// username whose type is one of types.
func (r *requestRepository) LatestPendingForUpdate(ctx context.Context, username string, types []string) (*models.Request, error) {
	var req models.Request
	err := forUpdate(r.db.WithContext(ctx)).
		Where("username = ? AND status = ? AND type IN ?", username, models.RequestStatusPending, types).
		Order("requested_at DESC, id DESC").
		Take(&req).Error
	if err != nil {
		return nil, notFoundOr(err, "No pending request found")
	}
	return &req, nil
}

// PendingOwner returns the username of request id without locking it, so the
// caller can take the owner's advisory lock before any row lock.
func (r *requestRepository) PendingOwner(ctx context.Context, id uint, requestType string) (string, error) {
	var req models.Request
	err := r.db.WithContext(ctx).
		Select("username").
		Where("id = ? AND type = ? AND status = ?", id, requestType, models.RequestStatusPending).
		Take(&req).Error
	if err != nil {
		return "", notFoundOr(err, "Request not found")
	}
	return req.Username, nil
}

// PendingByIDForUpdate locks and returns request id if it is Pending and of requestType.
func (r *requestRepository) PendingByIDForUpdate(ctx context.Context, id uint, requestType string) (*models.Request, error) {
	var req models.Request
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id = ? AND type = ? AND status = ?", id, requestType, models.RequestStatusPending).
		Take(&req).Error
	if err != nil {
		return nil, notFoundOr(err, "Request not found")
	}
	return &req, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id uint, status models.RequestStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Request{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Request not found")
	}
	return nil
}

func (r *requestRepository) CountPending(ctx context.Context, username string, types []string) (int64, error) {
	var count int64
	if len(types) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("username = ? AND status = ? AND type IN ?", username, models.RequestStatusPending, types).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// ListPendingByTypes returns Pending requests of the given types, newest first.
func (r *requestRepository) ListPendingByTypes(ctx context.Context, types []string) ([]models.Request, error) {
	requests := []models.Request{}
	if err := r.db.WithContext(ctx).
		Where("status = ? AND type IN ?", models.RequestStatusPending, types).
		Order("requested_at DESC, id DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) ListPendingForUser(ctx context.Context, username string) ([]models.Request, error) {
	requests := []models.Request{}
	if err := r.db.WithContext(ctx).
		Where("username = ? AND status = ?", username, models.RequestStatusPending).
		Order("requested_at DESC, id DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	res := r.db.WithContext(ctx).Where("username = ?", username).Delete(&models.Request{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
