package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mapstack/mapstack-access/internal/models"
)

// DeploymentRepository defines the interface for deployment persistence
// operations.
type DeploymentRepository interface {
	// CreateIfAbsent inserts the deployment unless a row for the same
	// data id already exists. It returns the canonical row and whether
	// the insert won; concurrent callers for one data id all observe the
	// same surviving deployment.
	CreateIfAbsent(ctx context.Context, deployment *models.Deployment) (*models.Deployment, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deployment, error)
	FindByDataID(ctx context.Context, dataID string) (*models.Deployment, error)
	ExistsByDataID(ctx context.Context, dataID string) (bool, error)
	GetAll(ctx context.Context) ([]*models.Deployment, error)
	// DeleteWithLease removes the deployment and its lease in one
	// transaction so reaping never leaves a dangling lease row.
	DeleteWithLease(ctx context.Context, id uuid.UUID) error
}

type deploymentRepository struct {
	db *gorm.DB
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{
		db: db,
	}
}

func (r *deploymentRepository) CreateIfAbsent(ctx context.Context, deployment *models.Deployment) (*models.Deployment, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "data_id"}},
			DoNothing: true,
		}).
		Create(deployment)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return deployment, true, nil
	}
	// Lost the race; hand back the row that won.
	existing, err := r.FindByDataID(ctx, deployment.DataID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *deploymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	var deployment models.Deployment
	err := r.db.WithContext(ctx).First(&deployment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (r *deploymentRepository) FindByDataID(ctx context.Context, dataID string) (*models.Deployment, error) {
	var deployment models.Deployment
	err := r.db.WithContext(ctx).First(&deployment, "data_id = ?", dataID).Error
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (r *deploymentRepository) ExistsByDataID(ctx context.Context, dataID string) (bool, error) {
	_, err := r.FindByDataID(ctx, dataID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *deploymentRepository) GetAll(ctx context.Context) ([]*models.Deployment, error) {
	var deployments []*models.Deployment
	err := r.db.WithContext(ctx).Find(&deployments).Error
	if err != nil {
		return nil, err
	}
	return deployments, nil
}

func (r *deploymentRepository) DeleteWithLease(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Lease{}, "deployment_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Deployment{}, "id = ?", id).Error
	})
}
