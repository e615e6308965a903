package models

import (
	"time"

	"github.com/google/uuid"
)

// Lease is a time-bounded availability guarantee for exactly one Deployment.
// A deployment is guaranteed to stay reachable while its lease is active; an
// expired lease means the deployment is merely not guaranteed until the
// reaper gets to it. Renewal mutates ExpirationDate in place.
type Lease struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DeploymentID   uuid.UUID `json:"deployment_id" gorm:"column:deployment_id;type:uuid;not null;uniqueIndex"`
	ExpirationDate time.Time `json:"expiration_date" gorm:"column:expiration_date;not null"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Active reports whether the lease still guarantees availability at the
// given instant.
func (l *Lease) Active(now time.Time) bool {
	return now.Before(l.ExpirationDate)
}
