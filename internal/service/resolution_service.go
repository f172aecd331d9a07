// Package service contains the gate-pass business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"gatepass/internal/cache"
	"gatepass/internal/database"
	"gatepass/internal/middleware"
	"gatepass/internal/models"
	"gatepass/internal/notifications"
	"gatepass/internal/repository"

	"gorm.io/gorm"
)

// Resolution is the outcome of approving or rejecting a request.
type Resolution struct {
	Message    string         `json:"message"`
	Request    models.Request `json:"request"`
	UserStatus string         `json:"userStatus,omitempty"`
}

// ResolutionService approves and rejects pending requests and moves residents
// between statuses.
type ResolutionService struct {
	db       *gorm.DB
	users    repository.UserRepository
	requests repository.RequestRepository
	notifier *notifications.Notifier
}

// NewResolutionService returns a new ResolutionService. notifier may be nil.
func NewResolutionService(
	db *gorm.DB,
	users repository.UserRepository,
	requests repository.RequestRepository,
	notifier *notifications.Notifier,
) *ResolutionService {
	return &ResolutionService{db: db, users: users, requests: requests, notifier: notifier}
}

// ResolveByUsername resolves the most recent pending gate request of username.
func (s *ResolutionService) ResolveByUsername(ctx context.Context, username, action string) (*Resolution, error) {
	status, err := statusForAction(action)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Message: fmt.Sprintf("Request %sd successfully", action)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.LockUser(tx, username); err != nil {
			return err
		}
		req, err := s.requests.WithTx(tx).LatestPendingForUpdate(ctx, username, models.CategoryGate.Types())
		if err != nil {
			return err
		}
		return s.apply(ctx, tx, req, status, res)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, res, action)
	return res, nil
}

// ResolveByID resolves the pending out-of-hostel request id.
func (s *ResolutionService) ResolveByID(ctx context.Context, id uint, action string) (*Resolution, error) {
	status, err := statusForAction(action)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Message: fmt.Sprintf("OOHostel request %sd successfully", action)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.requests.WithTx(tx)
		// User lock before row lock, the same order as submission and deletion.
		username, err := requests.PendingOwner(ctx, id, models.RequestTypeOOHostel)
		if err != nil {
			return noPendingOutOfHostel(err)
		}
		if err := database.LockUser(tx, username); err != nil {
			return err
		}
		req, err := requests.PendingByIDForUpdate(ctx, id, models.RequestTypeOOHostel)
		if err != nil {
			return noPendingOutOfHostel(err)
		}
		return s.apply(ctx, tx, req, status, res)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, res, action)
	return res, nil
}

func noPendingOutOfHostel(err error) error {
	if models.ErrorCode(err) == models.CodeNotFound {
		return models.NewNotFoundError("No pending OOHostel request found")
	}
	return err
}

// apply writes the request's terminal status and, on approval, the owner's
// next status. Any error rolls the whole transaction back.
func (s *ResolutionService) apply(ctx context.Context, tx *gorm.DB, req *models.Request, status models.RequestStatus, res *Resolution) error {
	if err := s.requests.WithTx(tx).UpdateStatus(ctx, req.ID, status); err != nil {
		return err
	}
	req.Status = status
	res.Request = *req

	if status != models.RequestStatusApproved {
		return nil
	}

	users := s.users.WithTx(tx)
	user, err := users.GetByUsernameForUpdate(ctx, req.Username)
	if err != nil {
		return err
	}
	next, err := NextStatus(user.Status, req.Category())
	if err != nil {
		return err
	}
	if err := users.UpdateStatus(ctx, user.ID, next); err != nil {
		return err
	}
	res.UserStatus = next
	return nil
}

func (s *ResolutionService) afterCommit(ctx context.Context, res *Resolution, action string) {
	req := res.Request
	cache.InvalidateUsers(ctx, req.Username)
	middleware.RequestsResolved.WithLabelValues(string(req.Category()), action).Inc()

	middleware.Logger.InfoContext(ctx, "request resolved",
		slog.Uint64("request_id", uint64(req.ID)),
		slog.String("username", req.Username),
		slog.String("action", action),
		slog.String("user_status", res.UserStatus),
	)

	if err := s.notifier.PublishRequestResolved(ctx, notifications.RequestResolved{
		RequestID:  req.ID,
		Username:   req.Username,
		Type:       req.Type,
		Action:     action,
		Status:     string(req.Status),
		UserStatus: res.UserStatus,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "publish request.resolved failed", slog.String("error", err.Error()))
	}
}
