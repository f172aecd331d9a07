package service

import (
	"context"
	"strings"
	"time"

	"gatepass/internal/database"
	"gatepass/internal/middleware"
	"gatepass/internal/models"
	"gatepass/internal/repository"

	"gorm.io/gorm"
)

// SubmitRequestInput is the body of a new request.
type SubmitRequestInput struct {
	Username    string  `json:"username"`
	RequestType string  `json:"requestType"`
	Purpose     string  `json:"purpose"`
	Role        string  `json:"role"`
	Image       *string `json:"image"`
}

// SubmitResult is returned after a request is stored.
type SubmitResult struct {
	Message string         `json:"message"`
	Request models.Request `json:"request"`
}

// RequestService handles request submission and the pending queues.
type RequestService struct {
	db       *gorm.DB
	users    repository.UserRepository
	requests repository.RequestRepository
	now      func() time.Time
}

// NewRequestService returns a new RequestService.
func NewRequestService(db *gorm.DB, users repository.UserRepository, requests repository.RequestRepository) *RequestService {
	return &RequestService{
		db:       db,
		users:    users,
		requests: requests,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a new Pending request. Any pending gate request blocks a new
// submission; out-of-hostel requests do not block each other.
func (s *RequestService) Submit(ctx context.Context, in SubmitRequestInput) (*SubmitResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.RequestType = strings.TrimSpace(in.RequestType)
	if in.Username == "" || in.RequestType == "" || strings.TrimSpace(in.Purpose) == "" {
		return nil, models.NewValidationError("username, requestType and purpose are required")
	}

	req := models.Request{
		Username:    in.Username,
		Type:        in.RequestType,
		Purpose:     in.Purpose,
		Image:       in.Image,
		Role:        strings.TrimSpace(in.Role),
		Status:      models.RequestStatusPending,
		RequestedAt: s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.LockUser(tx, in.Username); err != nil {
			return err
		}
		requests := s.requests.WithTx(tx)

		gatePending, err := requests.CountPending(ctx, in.Username, models.CategoryGate.Types())
		if err != nil {
			return err
		}
		if gatePending > 0 {
			return models.NewConflictError("Request already pending")
		}

		if req.Role == "" {
			req.Role = models.DefaultUserRole
			owner, err := s.users.WithTx(tx).GetByUsernameForUpdate(ctx, in.Username)
			switch {
			case err == nil && owner.Role != "":
				req.Role = owner.Role
			case err != nil && models.ErrorCode(err) != models.CodeNotFound:
				return err
			}
		}

		return requests.Create(ctx, &req)
	})
	if err != nil {
		return nil, err
	}

	middleware.RequestsSubmitted.WithLabelValues(req.Type).Inc()
	return &SubmitResult{Message: "Request submitted successfully", Request: req}, nil
}

// ListPendingGate returns pending gate requests, newest first.
func (s *RequestService) ListPendingGate(ctx context.Context) ([]models.Request, error) {
	return s.requests.ListPendingByTypes(ctx, models.CategoryGate.Types())
}

// ListPendingOutOfHostel returns pending out-of-hostel requests, newest first.
func (s *RequestService) ListPendingOutOfHostel(ctx context.Context) ([]models.Request, error) {
	return s.requests.ListPendingByTypes(ctx, models.CategoryOutOfHostel.Types())
}

// ListPendingForUser returns every pending request of username.
func (s *RequestService) ListPendingForUser(ctx context.Context, username string) ([]models.Request, error) {
	return s.requests.ListPendingForUser(ctx, username)
}
