package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/mapstack/mapstack-access/api/rest/server"
	"github.com/mapstack/mapstack-access/api/rest/v1/routes"
	"github.com/mapstack/mapstack-access/internal/config"
	"github.com/mapstack/mapstack-access/internal/deploy"
	"github.com/mapstack/mapstack-access/internal/geoserver"
	"github.com/mapstack/mapstack-access/internal/messaging"
	"github.com/mapstack/mapstack-access/internal/repository"
	"github.com/mapstack/mapstack-access/internal/storage"
	"github.com/mapstack/mapstack-access/internal/worker"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to open deployment store: %v", err)
	}
	deployments := repository.NewDeploymentRepository(db)
	leases := repository.NewLeaseRepository(db)
	resources := repository.NewResourceRepository(db)

	s3Storage, err := storage.NewS3Storage(storage.S3Config{
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Region:          cfg.S3Region,
	})
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	gs := geoserver.NewClient(geoserver.Config{
		Host:     cfg.GeoServerHost,
		Port:     cfg.GeoServerPort,
		Username: cfg.GeoServerUsername,
		Password: cfg.GeoServerPassword,
	})

	deployer := deploy.NewDeployer(gs, deployments, resources, s3Storage, cfg.GeoServerDataDir)
	leaser := deploy.NewLeaser(leases, cfg.LeaseDuration)
	reaper := deploy.NewReaper(deployments, leases, deployer, leaser, cfg.SweepInterval, cfg.GracePeriod)

	broker := messaging.NewRedisBroker(messaging.BrokerConfig{
		Addr:         cfg.RedisAddr,
		JobStream:    cfg.JobStream,
		StatusStream: cfg.StatusStream,
		Group:        cfg.ConsumerGroup,
		Consumer:     cfg.ConsumerName,
	})
	if err := broker.EnsureGroup(ctx); err != nil {
		log.Fatalf("Failed to create consumer group: %v", err)
	}

	accessWorker := worker.NewWorker(deployer, leaser, deployments, resources, broker, cfg.WorkerBaseline, cfg.WorkerBurst)

	go reaper.Run(ctx)
	go accessWorker.Run(ctx, broker)

	srv := server.NewServer(cfg.ListenAddr, deployments, leases)
	routes.RegisterRoutes(srv)

	log.Printf("Starting Gin HTTP server on %s", cfg.ListenAddr)
	if err := srv.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
