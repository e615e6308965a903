package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mapstack/mapstack-access/internal/models"
)

// LeaseRepository defines the interface for lease persistence operations.
// A deployment has exactly one current lease; Create supersedes any prior
// lease for the same deployment by resetting its expiration in place.
type LeaseRepository interface {
	Create(ctx context.Context, lease *models.Lease) (*models.Lease, error)
	FindByDeploymentID(ctx context.Context, deploymentID uuid.UUID) (*models.Lease, error)
	Update(ctx context.Context, lease *models.Lease) error
}

type leaseRepository struct {
	db *gorm.DB
}

func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{
		db: db,
	}
}

func (r *leaseRepository) Create(ctx context.Context, lease *models.Lease) (*models.Lease, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "deployment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"expiration_date", "updated_at"}),
		}).
		Create(lease).Error
	if err != nil {
		return nil, err
	}
	return lease, nil
}

func (r *leaseRepository) FindByDeploymentID(ctx context.Context, deploymentID uuid.UUID) (*models.Lease, error) {
	var lease models.Lease
	err := r.db.WithContext(ctx).First(&lease, "deployment_id = ?", deploymentID).Error
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) Update(ctx context.Context, lease *models.Lease) error {
	return r.db.WithContext(ctx).Save(lease).Error
}
