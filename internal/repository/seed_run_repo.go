package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/insights/internal/domain"
	"gorm.io/gorm"
)

// SeedRunRepository records seed command executions.
type SeedRunRepository struct {
	db *gorm.DB
}

// NewSeedRunRepository creates a new SeedRunRepository.
func NewSeedRunRepository(db *gorm.DB) *SeedRunRepository {
	return &SeedRunRepository{db: db}
}

// Start inserts a running record for source.
func (r *SeedRunRepository) Start(ctx context.Context, source string, total int) (*domain.SeedRun, error) {
	run := &domain.SeedRun{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    domain.SeedStatusRunning,
		Total:     total,
		StartedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Finish stores the final status. A non-nil runErr marks the run failed.
func (r *SeedRunRepository) Finish(ctx context.Context, run *domain.SeedRun, written int, runErr error) error {
	now := time.Now()
	run.CompletedAt = &now
	run.Written = written
	run.Status = domain.SeedStatusCompleted
	if runErr != nil {
		run.Status = domain.SeedStatusFailed
		run.ErrorLog = runErr.Error()
	}
	return r.db.WithContext(ctx).Save(run).Error
}

// Latest returns the most recent runs, newest first.
func (r *SeedRunRepository) Latest(ctx context.Context, limit int) ([]domain.SeedRun, error) {
	var runs []domain.SeedRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
