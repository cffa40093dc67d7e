package mappers

import (
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
)

func ToGORMActivationMarker(marker *domain.ActivationMarker) *models.ActivationMarkerModel {
	return &models.ActivationMarkerModel{
		ID:          marker.ID,
		UserID:      marker.UserID,
		PackageCode: marker.PackageCode,
		SourceType:  marker.Source.Type,
		SourceID:    marker.Source.ID,
		CreatedAt:   marker.CreatedAt,
	}
}

func ToDomainDistributionAudit(model *models.DistributionAuditModel) *domain.DistributionAudit {
	return &domain.DistributionAudit{
		ID: model.ID,
		Source: domain.SourceRef{
			Type: model.SourceType,
			ID:   model.SourceID,
		},
		PoolType:    domain.PoolType(model.PoolType),
		PayoutCount: model.PayoutCount,
		TotalPaid:   model.TotalPaid,
		CreatedAt:   model.CreatedAt,
	}
}

func ToGORMDistributionAudit(audit *domain.DistributionAudit) *models.DistributionAuditModel {
	return &models.DistributionAuditModel{
		ID:          audit.ID,
		SourceType:  audit.Source.Type,
		SourceID:    audit.Source.ID,
		PoolType:    string(audit.PoolType),
		PayoutCount: audit.PayoutCount,
		TotalPaid:   audit.TotalPaid,
		CreatedAt:   audit.CreatedAt,
	}
}
