package models

import (
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"gorm.io/datatypes"
)

type JobModel struct {
	ID             string           `gorm:"primaryKey;type:uuid"`
	Type           string           `gorm:"size:64;not null;index"`
	Payload        datatypes.JSON   `gorm:"type:jsonb;not null"`
	Status         domain.JobStatus `gorm:"size:16;not null;index:idx_job_claim,priority:1"`
	Attempts       int              `gorm:"not null"`
	MaxAttempts    int              `gorm:"not null"`
	IdempotencyKey *string          `gorm:"size:255;uniqueIndex"`
	LastError      string           `gorm:"type:text"`
	ClaimedBy      string           `gorm:"size:32"`
	ScheduledAt    time.Time        `gorm:"not null;index:idx_job_claim,priority:2"`
	StartedAt      *time.Time       `gorm:"index"`
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
