package models

import (
	"time"

	"github.com/google/uuid"
)

// Deployment represents a provisioned GeoServer layer backing one data
// resource. Host, port and layer are fixed at creation time; a deployment is
// only ever written once and deleted by the reaper.
type Deployment struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DataID          string    `json:"data_id" gorm:"column:data_id;not null;uniqueIndex"`
	Host            string    `json:"host" gorm:"not null"`
	Port            string    `json:"port" gorm:"not null"`
	Layer           string    `json:"layer" gorm:"not null"`
	CapabilitiesURL string    `json:"capabilities_url" gorm:"column:capabilities_url;not null"`
	CreatedAt       time.Time `json:"created_at"`
}
