package deploy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/geoserver"
	"github.com/mapstack/mapstack-access/internal/models"
)

// fakeGeoServer records provisioning calls and can be told to fail them.
type fakeGeoServer struct {
	mu sync.Mutex

	featureTypes   []string
	coverageStores []string
	coverages      []string
	deletedLayers  []string
	deletedStores  []string

	failWith error
}

func (f *fakeGeoServer) CreateFeatureType(ctx context.Context, tableName, nativeCRS string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.featureTypes = append(f.featureTypes, tableName)
	return nil
}

func (f *fakeGeoServer) CreateCoverageStore(ctx context.Context, storeName, filePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.coverageStores = append(f.coverageStores, storeName)
	return nil
}

func (f *fakeGeoServer) CreateCoverage(ctx context.Context, storeName string, meta geoserver.CoverageMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.coverages = append(f.coverages, storeName)
	return nil
}

func (f *fakeGeoServer) DeleteFeatureType(ctx context.Context, layer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	// Deleting an already-removed layer is fine, as on the real backend.
	f.deletedLayers = append(f.deletedLayers, layer)
	return nil
}

func (f *fakeGeoServer) DeleteCoverageStore(ctx context.Context, storeName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.deletedStores = append(f.deletedStores, storeName)
	return nil
}

func (f *fakeGeoServer) Host() string { return "geoserver.local" }
func (f *fakeGeoServer) Port() string { return "8081" }
func (f *fakeGeoServer) CapabilitiesURL() string {
	return "http://geoserver.local:8081/geoserver/mapstack/wfs?service=wfs&version=2.0.0&request=GetCapabilities"
}

// fakeDeploymentRepo is an in-memory DeploymentRepository keyed by data id.
type fakeDeploymentRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Deployment
	failAll error
}

func newFakeDeploymentRepo() *fakeDeploymentRepo {
	return &fakeDeploymentRepo{rows: make(map[string]*models.Deployment)}
}

func (f *fakeDeploymentRepo) CreateIfAbsent(ctx context.Context, deployment *models.Deployment) (*models.Deployment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, false, f.failAll
	}
	if existing, ok := f.rows[deployment.DataID]; ok {
		return existing, false, nil
	}
	f.rows[deployment.DataID] = deployment
	return deployment, true, nil
}

func (f *fakeDeploymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDeploymentRepo) FindByDataID(ctx context.Context, dataID string) (*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.rows[dataID]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDeploymentRepo) ExistsByDataID(ctx context.Context, dataID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	_, ok := f.rows[dataID]
	return ok, nil
}

func (f *fakeDeploymentRepo) GetAll(ctx context.Context) ([]*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var all []*models.Deployment
	for _, d := range f.rows {
		all = append(all, d)
	}
	return all, nil
}

func (f *fakeDeploymentRepo) DeleteWithLease(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for dataID, d := range f.rows {
		if d.ID == id {
			delete(f.rows, dataID)
			return nil
		}
	}
	return nil
}

// fakeLeaseRepo is an in-memory LeaseRepository keyed by deployment id.
type fakeLeaseRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Lease
}

func newFakeLeaseRepo() *fakeLeaseRepo {
	return &fakeLeaseRepo{rows: make(map[uuid.UUID]*models.Lease)}
}

func (f *fakeLeaseRepo) Create(ctx context.Context, lease *models.Lease) (*models.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[lease.DeploymentID]; ok {
		existing.ExpirationDate = lease.ExpirationDate
		return existing, nil
	}
	f.rows[lease.DeploymentID] = lease
	return lease, nil
}

func (f *fakeLeaseRepo) FindByDeploymentID(ctx context.Context, deploymentID uuid.UUID) (*models.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.rows[deploymentID]; ok {
		// Return a copy so callers see value semantics, as with a real
		// repository that hydrates a fresh struct per query.
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaseRepo) Update(ctx context.Context, lease *models.Lease) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[lease.DeploymentID] = lease
	return nil
}

// fakeResourceRepo is an in-memory ResourceRepository.
type fakeResourceRepo struct {
	mu   sync.Mutex
	rows map[string]*models.DataResource
}

func newFakeResourceRepo(resources ...*models.DataResource) *fakeResourceRepo {
	f := &fakeResourceRepo{rows: make(map[string]*models.DataResource)}
	for _, r := range resources {
		f.rows[r.DataID] = r
	}
	return f
}

func (f *fakeResourceRepo) Create(ctx context.Context, resource *models.DataResource) (*models.DataResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[resource.DataID] = resource
	return resource, nil
}

func (f *fakeResourceRepo) FindByDataID(ctx context.Context, dataID string) (*models.DataResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[dataID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// fakeS3 serves raster payloads from a map.
type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) key(bucket, key string) string { return bucket + "/" + key }

func (f *fakeS3) DownloadFile(ctx context.Context, bucket, key string) ([]byte, error) {
	if b, ok := f.objects[f.key(bucket, key)]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("file not found: %s", key)
}

func (f *fakeS3) FileExists(ctx context.Context, bucket, key string) (bool, error) {
	_, ok := f.objects[f.key(bucket, key)]
	return ok, nil
}
