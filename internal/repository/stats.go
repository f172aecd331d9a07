package repository

import (
	"context"
	"time"

	"gatepass/internal/models"

	"gorm.io/gorm"
)

// StatsRepository runs the aggregate queries behind the statistics endpoints.
type StatsRepository interface {
	UserStats(ctx context.Context) (*models.UserStats, error)
	RequestStats(ctx context.Context, since time.Time) (*models.RequestStats, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository returns a new StatsRepository implementation.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) UserStats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{
		ByRole:   []models.RoleCount{},
		ByStatus: []models.StatusCount{},
	}
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Order("role").
		Scan(&stats.ByRole).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := db.Model(&models.User{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&stats.ByStatus).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := db.Model(&models.User{}).
		Select(`COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS out_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS home_count`,
			models.UserStatusIn, models.UserStatusOut, models.UserStatusHome).
		Scan(&stats.InCampus).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return stats, nil
}

// RequestStats aggregates requests made at or after since by calendar day,
// newest day first, plus a breakdown by type over all requests.
func (r *statsRepository) RequestStats(ctx context.Context, since time.Time) (*models.RequestStats, error) {
	stats := &models.RequestStats{
		Daily:  []models.DailyRequestCount{},
		ByType: []models.TypeCount{},
	}
	db := r.db.WithContext(ctx)
	day := dayExpr(db)

	if err := db.Model(&models.Request{}).
		Select(day+` AS date,
			COUNT(*) AS total_requests,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending`,
			models.RequestStatusApproved, models.RequestStatusRejected, models.RequestStatusPending).
		Where("requested_at >= ?", since).
		Group(day).
		Order("date DESC").
		Scan(&stats.Daily).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := db.Model(&models.Request{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("count DESC, type").
		Scan(&stats.ByType).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return stats, nil
}

func dayExpr(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "TO_CHAR(requested_at, 'YYYY-MM-DD')"
	}
	return "DATE(requested_at)"
}
