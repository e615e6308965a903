package messaging

import "github.com/mapstack/mapstack-access/internal/models"

// Job statuses, one status update emitted per transition.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Access kinds a job may request.
const (
	AccessTypeFile      = "file"
	AccessTypeGeoServer = "geoserver"
)

// AccessJob is the inbound request to make a data resource accessible.
type AccessJob struct {
	JobID          string `json:"job_id"`
	DataID         string `json:"data_id"`
	DeploymentType string `json:"deployment_type"`
}

// StatusUpdate is the outbound event describing a job's progress or terminal
// outcome. Result is only set on terminal updates.
type StatusUpdate struct {
	JobID  string  `json:"job_id"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
}

// Result carries exactly one of: a file reference (the data id to retrieve
// directly), a deployment, or an error description.
type Result struct {
	FileReference string             `json:"file_reference,omitempty"`
	Deployment    *models.Deployment `json:"deployment,omitempty"`
	Message       string             `json:"message,omitempty"`
	Cause         string             `json:"cause,omitempty"`
}

// Message is one raw broker entry. Key is the job identifier the sender
// attached; ID is the broker's own entry id used for acknowledgment.
type Message struct {
	ID   string
	Key  string
	Body []byte
}
