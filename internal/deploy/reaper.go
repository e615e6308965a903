package deploy

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/models"
	"github.com/mapstack/mapstack-access/internal/repository"
)

// Reaper periodically reclaims deployments whose lease has been expired for
// longer than the grace period. An expired lease only withdraws the
// availability guarantee; the deployment stays up until a sweep removes it.
// Sweeps are at-least-once per candidate: a failed removal is logged and the
// deployment stays eligible for the next pass.
type Reaper struct {
	deployments repository.DeploymentRepository
	leases      repository.LeaseRepository
	deployer    Deployer
	leaser      Leaser
	interval    time.Duration
	grace       time.Duration
	now         func() time.Time
}

func NewReaper(deployments repository.DeploymentRepository, leases repository.LeaseRepository, deployer Deployer, leaser Leaser, interval, grace time.Duration) *Reaper {
	return &Reaper{
		deployments: deployments,
		leases:      leases,
		deployer:    deployer,
		leaser:      leaser,
		interval:    interval,
		grace:       grace,
		now:         time.Now,
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep examines every deployment once and reaps the expired ones. Errors
// are scoped to the deployment that raised them.
func (r *Reaper) Sweep(ctx context.Context) {
	deployments, err := r.deployments.GetAll(ctx)
	if err != nil {
		log.Printf("Reaper could not list deployments: %v", err)
		return
	}

	now := r.now()
	for _, deployment := range deployments {
		if !r.reapable(ctx, deployment, now) {
			continue
		}
		r.reap(ctx, deployment)
	}
}

func (r *Reaper) reapable(ctx context.Context, deployment *models.Deployment, now time.Time) bool {
	lease, err := r.leases.FindByDeploymentID(ctx, deployment.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A deployment without a lease can only come from a crash
		// between the two creation writes; its requester already saw
		// an error, so nothing guarantees it.
		log.Printf("Deployment %s has no lease, reaping", deployment.ID)
		return true
	}
	if err != nil {
		log.Printf("Reaper could not load lease for deployment %s: %v", deployment.ID, err)
		return false
	}
	if r.leaser.IsActive(lease, now) {
		return false
	}
	return now.Sub(lease.ExpirationDate) > r.grace
}

// reap removes the backend resources first, then the records. If the
// backend call fails the records stay put and the deployment is retried on
// the next sweep; the backend tolerates re-deleting what is already gone.
func (r *Reaper) reap(ctx context.Context, deployment *models.Deployment) {
	if err := r.deployer.Undeploy(ctx, deployment); err != nil {
		log.Printf("Could not undeploy %s (layer %s): %v", deployment.ID, deployment.Layer, err)
		return
	}
	if err := r.deployments.DeleteWithLease(ctx, deployment.ID); err != nil {
		log.Printf("Could not delete records for deployment %s: %v", deployment.ID, err)
		return
	}
	log.Printf("Reaped deployment %s for data %s", deployment.ID, deployment.DataID)
}
