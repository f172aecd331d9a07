package service

import (
	"context"
	"time"

	"gatepass/internal/models"
	"gatepass/internal/repository"
)

// requestStatsWindow is how far back the daily request breakdown reaches.
const requestStatsWindow = 30 * 24 * time.Hour

// StatsService serves the aggregate statistics endpoints.
type StatsService struct {
	stats repository.StatsRepository
	now   func() time.Time
}

// NewStatsService returns a new StatsService.
func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats, now: func() time.Time { return time.Now().UTC() }}
}

// UserStats counts users by role and status.
func (s *StatsService) UserStats(ctx context.Context) (*models.UserStats, error) {
	return s.stats.UserStats(ctx)
}

// RequestStats counts the last 30 days of requests per day, and all requests per type.
func (s *StatsService) RequestStats(ctx context.Context) (*models.RequestStats, error) {
	return s.stats.RequestStats(ctx, s.now().Add(-requestStatsWindow))
}
