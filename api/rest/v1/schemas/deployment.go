package schemas

import (
	"time"

	"github.com/mapstack/mapstack-access/internal/models"
)

// DeploymentResponse represents one deployment in API responses.
type DeploymentResponse struct {
	ID              string     `json:"id"`
	DataID          string     `json:"data_id"`
	Host            string     `json:"host"`
	Port            string     `json:"port"`
	Layer           string     `json:"layer"`
	CapabilitiesURL string     `json:"capabilities_url"`
	CreatedAt       time.Time  `json:"created_at"`
	LeaseExpiration *time.Time `json:"lease_expiration,omitempty"` // absent when no lease is on record
}

func FromDeployment(deployment *models.Deployment, lease *models.Lease) DeploymentResponse {
	resp := DeploymentResponse{
		ID:              deployment.ID.String(),
		DataID:          deployment.DataID,
		Host:            deployment.Host,
		Port:            deployment.Port,
		Layer:           deployment.Layer,
		CapabilitiesURL: deployment.CapabilitiesURL,
		CreatedAt:       deployment.CreatedAt,
	}
	if lease != nil {
		resp.LeaseExpiration = &lease.ExpirationDate
	}
	return resp
}
