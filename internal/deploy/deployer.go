package deploy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/geoserver"
	"github.com/mapstack/mapstack-access/internal/models"
	"github.com/mapstack/mapstack-access/internal/repository"
	"github.com/mapstack/mapstack-access/internal/storage"
	"github.com/mapstack/mapstack-access/internal/utils"
)

// Deployer turns a data-resource descriptor into a live GeoServer layer and
// the Deployment record tracking it.
type Deployer interface {
	// CreateDeployment provisions the resource on the backend and
	// persists a Deployment before returning it. Pass-through resources
	// are already reachable; for those it returns (nil, nil) and nothing
	// is provisioned or persisted.
	CreateDeployment(ctx context.Context, resource *models.DataResource) (*models.Deployment, error)
	DeploymentExists(ctx context.Context, dataID string) (bool, error)
	// Undeploy removes the backend layer and data store for a
	// deployment. It is safe to call again after a partial failure: the
	// backend treats already-removed resources as removed.
	Undeploy(ctx context.Context, deployment *models.Deployment) error
}

type deployer struct {
	geoserver   geoserver.Client
	deployments repository.DeploymentRepository
	resources   repository.ResourceRepository
	s3          storage.S3Storage
	dataDir     string
}

func NewDeployer(gs geoserver.Client, deployments repository.DeploymentRepository, resources repository.ResourceRepository, s3 storage.S3Storage, dataDir string) Deployer {
	return &deployer{
		geoserver:   gs,
		deployments: deployments,
		resources:   resources,
		s3:          s3,
		dataDir:     dataDir,
	}
}

func (d *deployer) CreateDeployment(ctx context.Context, resource *models.DataResource) (*models.Deployment, error) {
	var deployment *models.Deployment
	var err error

	switch resource.Kind {
	case models.ResourceTable:
		deployment, err = d.deployTable(ctx, resource)
	case models.ResourcePassThrough:
		// Hosted externally already; nothing to deploy.
		return nil, nil
	case models.ResourceRaster:
		deployment, err = d.deployRaster(ctx, resource)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedResourceKind, resource.Kind)
	}
	if err != nil {
		return nil, err
	}

	canonical, created, err := d.deployments.CreateIfAbsent(ctx, deployment)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent request for the same data id got there first;
		// its row is the canonical one.
		log.Printf("Deployment for data %s already recorded as %s", resource.DataID, canonical.ID)
		return canonical, nil
	}

	log.Printf("Created deployment %s for data %s on host %s", canonical.ID, canonical.DataID, canonical.Host)
	return canonical, nil
}

// deployTable registers an existing Postgres table as a feature layer.
// Tables are materialized ahead of time by the ingest pipeline, whether the
// source was a shapefile or vector data loaded directly.
func (d *deployer) deployTable(ctx context.Context, resource *models.DataResource) (*models.Deployment, error) {
	if resource.TableName == "" {
		return nil, fmt.Errorf("table-backed resource %s has no table name", resource.DataID)
	}

	if err := d.geoserver.CreateFeatureType(ctx, resource.TableName, nativeCRS(resource)); err != nil {
		return nil, err
	}

	return d.newDeployment(resource.DataID, resource.TableName), nil
}

// deployRaster stages the raster payload into the GeoServer data directory,
// then registers a coverage store over the staged file and a coverage layer
// over the store.
func (d *deployer) deployRaster(ctx context.Context, resource *models.DataResource) (*models.Deployment, error) {
	if resource.FileKey == "" || resource.FileName == "" {
		return nil, fmt.Errorf("raster resource %s has no file location", resource.DataID)
	}

	stagedPath, err := d.stageRasterFile(ctx, resource)
	if err != nil {
		return nil, err
	}

	if err := d.geoserver.CreateCoverageStore(ctx, resource.DataID, stagedPath); err != nil {
		return nil, err
	}

	meta := geoserver.CoverageMetadata{
		CRS:      resource.CRS,
		EPSGCode: resource.EPSGCode,
		MinX:     resource.MinX,
		MaxX:     resource.MaxX,
		MinY:     resource.MinY,
		MaxY:     resource.MaxY,
	}
	if err := d.geoserver.CreateCoverage(ctx, resource.DataID, meta); err != nil {
		return nil, err
	}

	layer := fmt.Sprintf("%s-%s", resource.FileName, resource.DataID)
	return d.newDeployment(resource.DataID, layer), nil
}

// stageRasterFile copies the payload from object storage into the data
// directory GeoServer reads coverages from. An identical already-staged file
// is left alone so a redeploy of the same payload skips the write.
func (d *deployer) stageRasterFile(ctx context.Context, resource *models.DataResource) (string, error) {
	exists, err := d.s3.FileExists(ctx, resource.FileBucket, resource.FileKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("raster payload %s/%s not found", resource.FileBucket, resource.FileKey)
	}

	payload, err := d.s3.DownloadFile(ctx, resource.FileBucket, resource.FileKey)
	if err != nil {
		return "", err
	}

	stagedPath := filepath.Join(d.dataDir, resource.FileName)
	if staged, err := os.ReadFile(stagedPath); err == nil {
		if utils.GetHash(staged) == utils.GetHash(payload) {
			return stagedPath, nil
		}
	}

	if err := os.WriteFile(stagedPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("staging raster file: %w", err)
	}
	return stagedPath, nil
}

func (d *deployer) DeploymentExists(ctx context.Context, dataID string) (bool, error) {
	return d.deployments.ExistsByDataID(ctx, dataID)
}

func (d *deployer) Undeploy(ctx context.Context, deployment *models.Deployment) error {
	resource, err := d.resources.FindByDataID(ctx, deployment.DataID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The resource record is gone; remove whichever backend shape
		// the layer had. Both calls tolerate already-removed targets.
		if err := d.geoserver.DeleteFeatureType(ctx, deployment.Layer); err != nil {
			return err
		}
		return d.geoserver.DeleteCoverageStore(ctx, deployment.DataID)
	}
	if err != nil {
		return err
	}

	switch resource.Kind {
	case models.ResourceRaster:
		return d.geoserver.DeleteCoverageStore(ctx, deployment.DataID)
	default:
		return d.geoserver.DeleteFeatureType(ctx, deployment.Layer)
	}
}

func (d *deployer) newDeployment(dataID, layer string) *models.Deployment {
	return &models.Deployment{
		ID:              uuid.New(),
		DataID:          dataID,
		Host:            d.geoserver.Host(),
		Port:            d.geoserver.Port(),
		Layer:           layer,
		CapabilitiesURL: d.geoserver.CapabilitiesURL(),
	}
}

func nativeCRS(resource *models.DataResource) string {
	if resource.CRS != "" {
		return resource.CRS
	}
	return fmt.Sprintf("EPSG:%d", resource.EPSGCode)
}
