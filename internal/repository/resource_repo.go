package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/models"
)

// ResourceRepository defines the interface for data-resource lookups. Data
// resources are written by the ingest pipeline; this component only reads
// them when a deployment has to be created.
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.DataResource) (*models.DataResource, error)
	FindByDataID(ctx context.Context, dataID string) (*models.DataResource, error)
}

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{
		db: db,
	}
}

func (r *resourceRepository) Create(ctx context.Context, resource *models.DataResource) (*models.DataResource, error) {
	err := r.db.WithContext(ctx).Create(resource).Error
	if err != nil {
		return nil, err
	}
	return resource, nil
}

func (r *resourceRepository) FindByDataID(ctx context.Context, dataID string) (*models.DataResource, error) {
	var resource models.DataResource
	err := r.db.WithContext(ctx).First(&resource, "data_id = ?", dataID).Error
	if err != nil {
		return nil, err
	}
	return &resource, nil
}
