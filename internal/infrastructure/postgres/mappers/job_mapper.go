package mappers

import (
	"encoding/json"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
)

func ToDomainJob(model *models.JobModel) *domain.Job {
	return &domain.Job{
		ID:             model.ID,
		Type:           model.Type,
		Payload:        json.RawMessage(model.Payload),
		Status:         model.Status,
		Attempts:       model.Attempts,
		MaxAttempts:    model.MaxAttempts,
		IdempotencyKey: model.IdempotencyKey,
		LastError:      model.LastError,
		ClaimedBy:      model.ClaimedBy,
		ScheduledAt:    model.ScheduledAt,
		StartedAt:      model.StartedAt,
		FinishedAt:     model.FinishedAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func ToGORMJob(job *domain.Job) *models.JobModel {
	return &models.JobModel{
		ID:             job.ID,
		Type:           job.Type,
		Payload:        datatypes.JSON(job.Payload),
		Status:         job.Status,
		Attempts:       job.Attempts,
		MaxAttempts:    job.MaxAttempts,
		IdempotencyKey: job.IdempotencyKey,
		LastError:      job.LastError,
		ClaimedBy:      job.ClaimedBy,
		ScheduledAt:    job.ScheduledAt,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}
