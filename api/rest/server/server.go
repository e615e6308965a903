package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mapstack/mapstack-access/internal/repository"
)

type Server struct {
	Addr        string
	Engine      *gin.Engine
	Deployments repository.DeploymentRepository
	Leases      repository.LeaseRepository
}

func NewServer(addr string, deployments repository.DeploymentRepository, leases repository.LeaseRepository) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		Addr:        addr,
		Engine:      gin.Default(),
		Deployments: deployments,
		Leases:      leases,
	}

	return s
}

func (s *Server) Run() error {
	return s.Engine.Run(s.Addr)
}
