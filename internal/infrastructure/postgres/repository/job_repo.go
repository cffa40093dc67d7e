package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	staleRequeueReason = "released after worker timeout"
	staleFailReason    = "worker timed out and no attempts left"
)

type DefaultJobRepository struct {
	DB *gorm.DB
}

func NewDefaultJobRepository(db *gorm.DB) *DefaultJobRepository {
	return &DefaultJobRepository{DB: db}
}

func (r *DefaultJobRepository) Create(ctx context.Context, job *domain.Job) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mappers.ToGORMJob(job))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DefaultJobRepository) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var model models.JobModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return mappers.ToDomainJob(&model), nil
}

func (r *DefaultJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Job, error) {
	var model models.JobModel
	if err := r.DB.WithContext(ctx).First(&model, "idempotency_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return mappers.ToDomainJob(&model), nil
}

// ClaimNext selects with FOR UPDATE SKIP LOCKED so concurrent claimers never pick the same row.
// The status guard on the update keeps the claim exclusive on drivers without row locks.
func (r *DefaultJobRepository) ClaimNext(ctx context.Context, now time.Time, workerID string) (*domain.Job, error) {
	var claimed *domain.Job

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.JobModel
		res := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND scheduled_at <= ?", domain.JobPending, now).
			Order("scheduled_at ASC").
			Order("created_at ASC").
			Limit(1).
			Find(&model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		upd := tx.Model(&models.JobModel{}).
			Where("id = ? AND status = ?", model.ID, domain.JobPending).
			Updates(map[string]interface{}{
				"status":      domain.JobRunning,
				"attempts":    gorm.Expr("attempts + 1"),
				"started_at":  now,
				"finished_at": nil,
				"claimed_by":  workerID,
				"updated_at":  now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return nil
		}

		model.Status = domain.JobRunning
		model.Attempts++
		model.StartedAt = &now
		model.FinishedAt = nil
		model.ClaimedBy = workerID
		model.UpdatedAt = now
		claimed = mappers.ToDomainJob(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *DefaultJobRepository) MarkDone(ctx context.Context, claim domain.JobClaim, finishedAt time.Time) error {
	return r.finish(ctx, claim, domain.JobDone, "", finishedAt)
}

func (r *DefaultJobRepository) MarkFailed(ctx context.Context, claim domain.JobClaim, lastError string, finishedAt time.Time) error {
	return r.finish(ctx, claim, domain.JobFailed, lastError, finishedAt)
}

// finish only touches the row while it is still RUNNING under the same claim,
// so a worker whose job was released and reclaimed cannot overwrite the new run.
func (r *DefaultJobRepository) finish(ctx context.Context, claim domain.JobClaim, status domain.JobStatus, lastError string, finishedAt time.Time) error {
	res := r.DB.WithContext(ctx).
		Model(&models.JobModel{}).
		Where("id = ? AND status = ? AND claimed_by = ? AND attempts = ?",
			claim.JobID, domain.JobRunning, claim.WorkerID, claim.Attempt).
		Updates(map[string]interface{}{
			"status":      status,
			"last_error":  lastError,
			"finished_at": finishedAt,
			"updated_at":  finishedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: job %s attempt %d by %q", domain.ErrClaimLost, claim.JobID, claim.Attempt, claim.WorkerID)
	}
	return nil
}

func (r *DefaultJobRepository) ResetFailed(ctx context.Context, jobID string, scheduledAt time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.JobModel{}).
		Where("id = ? AND status = ? AND attempts < max_attempts", jobID, domain.JobFailed).
		Updates(map[string]interface{}{
			"status":       domain.JobPending,
			"scheduled_at": scheduledAt,
			"started_at":   nil,
			"finished_at":  nil,
			"claimed_by":   "",
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DefaultJobRepository) FindRetryable(ctx context.Context, finishedBefore time.Time, after domain.RetryCursor, limit int) ([]*domain.Job, error) {
	query := r.DB.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts AND finished_at <= ?", domain.JobFailed, finishedBefore)
	if after.ID != "" {
		query = query.Where("(finished_at > ? OR (finished_at = ? AND id > ?))", after.FinishedAt, after.FinishedAt, after.ID)
	}

	var jobModels []models.JobModel
	if err := query.
		Order("finished_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*domain.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = mappers.ToDomainJob(&jobModels[i])
	}
	return jobs, nil
}

func (r *DefaultJobRepository) ReleaseStale(ctx context.Context, startedBefore, now time.Time) (int64, int64, error) {
	var requeued, failed int64

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.JobModel{}).
			Where("status = ? AND started_at < ? AND attempts < max_attempts", domain.JobRunning, startedBefore).
			Updates(map[string]interface{}{
				"status":       domain.JobPending,
				"scheduled_at": now,
				"last_error":   staleRequeueReason,
				"claimed_by":   "",
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		requeued = res.RowsAffected

		res = tx.Model(&models.JobModel{}).
			Where("status = ? AND started_at < ? AND attempts >= max_attempts", domain.JobRunning, startedBefore).
			Updates(map[string]interface{}{
				"status":      domain.JobFailed,
				"last_error":  staleFailReason,
				"finished_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		failed = res.RowsAffected
		return nil
	})
	return requeued, failed, err
}
