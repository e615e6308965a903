package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mapstack/mapstack-access/api/rest/server"
	v1 "github.com/mapstack/mapstack-access/api/rest/v1"
	"github.com/mapstack/mapstack-access/api/rest/v1/handlers"
	"github.com/mapstack/mapstack-access/api/rest/v1/middleware"
)

func deploymentRoutes(server *server.Server, router gin.IRoutes) {
	deploymentHandler := handlers.NewDeploymentHandler(server)
	router.GET("/deployments", v1.ErrorHandler(deploymentHandler.HandleListDeployments))
	router.GET("/deployments/:uuid", middleware.UUIDValidator(), v1.ErrorHandler(deploymentHandler.HandleGetDeployment))
}

func RegisterRoutes(server *server.Server) {
	apiv1 := server.Engine.Group("/api/v1")
	deploymentRoutes(server, apiv1)
}
