package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RunRepository persists analysis run records and their query samples.
type RunRepository interface {
	CreateRun(ctx context.Context, run *AnalysisRun) error
	UpdateRunStatus(ctx context.Context, id uint, status RunStatus) error
	CompleteRun(ctx context.Context, id uint, stats RunStats) error
	FailRun(ctx context.Context, id uint, errMsg string) error
	GetRun(ctx context.Context, id uint) (*AnalysisRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*AnalysisRun, error)
	SaveQuerySample(ctx context.Context, sample *QuerySample) error
	GetQuerySamples(ctx context.Context, runID uint) ([]*QuerySample, error)
}

// RunStats is the subset of AnalysisRun fields the engine reports once a
// run finishes.
type RunStats struct {
	NodeCount         int
	ConstraintCount   int
	ObjectCount       int
	SolveDurationMS   int64
	TotalDurationMS   int64
	TerminationReason string
	DiagnosticsKey    string
}

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// CreateRun inserts a new pending run record.
func (r *GormRunRepository) CreateRun(ctx context.Context, run *AnalysisRun) error {
	if run.Status == "" {
		run.Status = RunStatusPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}
	return nil
}

// UpdateRunStatus transitions a run to a new status without touching stats.
func (r *GormRunRepository) UpdateRunStatus(ctx context.Context, id uint, status RunStatus) error {
	result := r.db.WithContext(ctx).
		Model(&AnalysisRun{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("analysis run not found: %d", id)
	}
	return nil
}

// CompleteRun marks a run completed and records its final statistics.
func (r *GormRunRepository) CompleteRun(ctx context.Context, id uint, stats RunStats) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&AnalysisRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             RunStatusCompleted,
			"node_count":         stats.NodeCount,
			"constraint_count":   stats.ConstraintCount,
			"object_count":       stats.ObjectCount,
			"solve_duration_ms":  stats.SolveDurationMS,
			"total_duration_ms":  stats.TotalDurationMS,
			"termination_reason": stats.TerminationReason,
			"diagnostics_key":    stats.DiagnosticsKey,
			"completed_at":       now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("analysis run not found: %d", id)
	}
	return nil
}

// FailRun marks a run failed and records the error message.
func (r *GormRunRepository) FailRun(ctx context.Context, id uint, errMsg string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&AnalysisRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        RunStatusFailed,
			"error_message": errMsg,
			"completed_at":  now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark run failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("analysis run not found: %d", id)
	}
	return nil
}

// GetRun retrieves a run by its ID.
func (r *GormRunRepository) GetRun(ctx context.Context, id uint) (*AnalysisRun, error) {
	var run AnalysisRun

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("analysis run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRecentRuns returns the most recently created runs, newest first.
func (r *GormRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*AnalysisRun, error) {
	var runs []*AnalysisRun

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// SaveQuerySample persists a single points-to query answer for a run.
func (r *GormRunRepository) SaveQuerySample(ctx context.Context, sample *QuerySample) error {
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(sample).Error; err != nil {
		return fmt.Errorf("failed to save query sample: %w", err)
	}
	return nil
}

// GetQuerySamples retrieves all query samples recorded for a run.
func (r *GormRunRepository) GetQuerySamples(ctx context.Context, runID uint) ([]*QuerySample, error) {
	var samples []*QuerySample

	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}

	return samples, nil
}
