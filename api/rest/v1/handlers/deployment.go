package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/api/rest/server"
	v1 "github.com/mapstack/mapstack-access/api/rest/v1"
	"github.com/mapstack/mapstack-access/api/rest/v1/schemas"
	"github.com/mapstack/mapstack-access/internal/models"
)

type DeploymentHandler struct {
	server *server.Server
}

func NewDeploymentHandler(server *server.Server) *DeploymentHandler {
	return &DeploymentHandler{
		server: server,
	}
}

// HandleListDeployments returns every deployment on record, optionally
// filtered to one data id with ?dataId=.
func (d *DeploymentHandler) HandleListDeployments(c *gin.Context) error {
	ctx := c.Request.Context()

	if dataID := c.Query("dataId"); dataID != "" {
		deployment, err := d.server.Deployments.FindByDataID(ctx, dataID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return v1.APIError{Code: http.StatusNotFound, Err: "no deployment for data id " + dataID}
		}
		if err != nil {
			return err
		}
		return v1.APIResponse{
			Code: http.StatusOK,
			Msg:  "OK",
			Data: []schemas.DeploymentResponse{d.withLease(c, deployment)},
		}
	}

	deployments, err := d.server.Deployments.GetAll(ctx)
	if err != nil {
		return err
	}

	responses := make([]schemas.DeploymentResponse, 0, len(deployments))
	for _, deployment := range deployments {
		responses = append(responses, d.withLease(c, deployment))
	}
	return v1.APIResponse{
		Code: http.StatusOK,
		Msg:  "OK",
		Data: responses,
	}
}

// HandleGetDeployment returns a single deployment by id.
func (d *DeploymentHandler) HandleGetDeployment(c *gin.Context) error {
	id, exists := c.Get("uuid")
	if !exists {
		return v1.APIError{Code: http.StatusBadRequest, Err: "deployment id missing"}
	}

	deployment, err := d.server.Deployments.FindByID(c.Request.Context(), id.(uuid.UUID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return v1.APIError{Code: http.StatusNotFound, Err: "deployment not found"}
	}
	if err != nil {
		return err
	}

	return v1.APIResponse{
		Code: http.StatusOK,
		Msg:  "OK",
		Data: d.withLease(c, deployment),
	}
}

func (d *DeploymentHandler) withLease(c *gin.Context, deployment *models.Deployment) schemas.DeploymentResponse {
	lease, err := d.server.Leases.FindByDeploymentID(c.Request.Context(), deployment.ID)
	if err != nil {
		lease = nil
	}
	return schemas.FromDeployment(deployment, lease)
}
