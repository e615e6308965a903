package deploy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/models"
	"github.com/mapstack/mapstack-access/internal/repository"
)

// Leaser issues and renews the availability guarantees attached to
// deployments. Renewal resets the expiration window rather than extending
// whatever remains of it.
type Leaser interface {
	CreateLease(ctx context.Context, deployment *models.Deployment) (*models.Lease, error)
	RenewLease(ctx context.Context, deployment *models.Deployment) (*models.Lease, error)
	// IsActive reports whether the lease guarantees availability at the
	// given instant. Only the reaper consults this.
	IsActive(lease *models.Lease, now time.Time) bool
}

type leaser struct {
	leases   repository.LeaseRepository
	duration time.Duration
	now      func() time.Time
}

func NewLeaser(leases repository.LeaseRepository, duration time.Duration) Leaser {
	return &leaser{
		leases:   leases,
		duration: duration,
		now:      time.Now,
	}
}

func (l *leaser) CreateLease(ctx context.Context, deployment *models.Deployment) (*models.Lease, error) {
	lease := &models.Lease{
		ID:             uuid.New(),
		DeploymentID:   deployment.ID,
		ExpirationDate: l.now().Add(l.duration),
	}
	created, err := l.leases.Create(ctx, lease)
	if err != nil {
		return nil, err
	}
	log.Printf("Created lease %s for deployment %s, expires %s", created.ID, deployment.ID, created.ExpirationDate)
	return created, nil
}

func (l *leaser) RenewLease(ctx context.Context, deployment *models.Deployment) (*models.Lease, error) {
	lease, err := l.leases.FindByDeploymentID(ctx, deployment.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoLease, deployment.ID)
	}
	if err != nil {
		return nil, err
	}

	lease.ExpirationDate = l.now().Add(l.duration)
	if err := l.leases.Update(ctx, lease); err != nil {
		return nil, err
	}
	log.Printf("Renewed lease %s for deployment %s, expires %s", lease.ID, deployment.ID, lease.ExpirationDate)
	return lease, nil
}

func (l *leaser) IsActive(lease *models.Lease, now time.Time) bool {
	return lease.Active(now)
}
