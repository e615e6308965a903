package worker

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/geoserver"
	"github.com/mapstack/mapstack-access/internal/messaging"
	"github.com/mapstack/mapstack-access/internal/models"
)

// capturingProducer records every status update in order.
type capturingProducer struct {
	mu      sync.Mutex
	updates []*messaging.StatusUpdate
}

func (p *capturingProducer) PublishStatus(ctx context.Context, update *messaging.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
	return nil
}

func (p *capturingProducer) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.updates))
	for i, u := range p.updates {
		out[i] = u.Status
	}
	return out
}

func (p *capturingProducer) last() *messaging.StatusUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.updates) == 0 {
		return nil
	}
	return p.updates[len(p.updates)-1]
}

// scriptedDeployer drives the worker's orchestration branch.
type scriptedDeployer struct {
	existing  map[string]bool
	created   *models.Deployment
	createErr error
	panics    bool
}

func (d *scriptedDeployer) CreateDeployment(ctx context.Context, resource *models.DataResource) (*models.Deployment, error) {
	if d.panics {
		panic("deployer exploded")
	}
	if d.createErr != nil {
		return nil, d.createErr
	}
	return d.created, nil
}

func (d *scriptedDeployer) DeploymentExists(ctx context.Context, dataID string) (bool, error) {
	if d.panics {
		panic("deployer exploded")
	}
	return d.existing[dataID], nil
}

func (d *scriptedDeployer) Undeploy(ctx context.Context, deployment *models.Deployment) error {
	return nil
}

// scriptedLeaser records lease calls.
type scriptedLeaser struct {
	mu       sync.Mutex
	created  []uuid.UUID
	renewed  []uuid.UUID
	renewErr error
}

func (l *scriptedLeaser) CreateLease(ctx context.Context, deployment *models.Deployment) (*models.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = append(l.created, deployment.ID)
	return &models.Lease{ID: uuid.New(), DeploymentID: deployment.ID, ExpirationDate: time.Now().Add(time.Hour)}, nil
}

func (l *scriptedLeaser) RenewLease(ctx context.Context, deployment *models.Deployment) (*models.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.renewErr != nil {
		return nil, l.renewErr
	}
	l.renewed = append(l.renewed, deployment.ID)
	return &models.Lease{ID: uuid.New(), DeploymentID: deployment.ID, ExpirationDate: time.Now().Add(time.Hour)}, nil
}

func (l *scriptedLeaser) IsActive(lease *models.Lease, now time.Time) bool {
	return lease.Active(now)
}

// mapRepo serves deployments and resources from maps.
type mapDeployments struct {
	byDataID map[string]*models.Deployment
}

func (m *mapDeployments) CreateIfAbsent(ctx context.Context, d *models.Deployment) (*models.Deployment, bool, error) {
	m.byDataID[d.DataID] = d
	return d, true, nil
}

func (m *mapDeployments) FindByID(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mapDeployments) FindByDataID(ctx context.Context, dataID string) (*models.Deployment, error) {
	if d, ok := m.byDataID[dataID]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mapDeployments) ExistsByDataID(ctx context.Context, dataID string) (bool, error) {
	_, ok := m.byDataID[dataID]
	return ok, nil
}

func (m *mapDeployments) GetAll(ctx context.Context) ([]*models.Deployment, error) { return nil, nil }
func (m *mapDeployments) DeleteWithLease(ctx context.Context, id uuid.UUID) error  { return nil }

type mapResources struct {
	byDataID map[string]*models.DataResource
}

func (m *mapResources) Create(ctx context.Context, r *models.DataResource) (*models.DataResource, error) {
	m.byDataID[r.DataID] = r
	return r, nil
}

func (m *mapResources) FindByDataID(ctx context.Context, dataID string) (*models.DataResource, error) {
	if r, ok := m.byDataID[dataID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fixture struct {
	worker   *Worker
	deployer *scriptedDeployer
	leaser   *scriptedLeaser
	producer *capturingProducer
}

func newFixture(deployer *scriptedDeployer, leaser *scriptedLeaser, deployments *mapDeployments, resources *mapResources) *fixture {
	if deployments == nil {
		deployments = &mapDeployments{byDataID: map[string]*models.Deployment{}}
	}
	if resources == nil {
		resources = &mapResources{byDataID: map[string]*models.DataResource{}}
	}
	producer := &capturingProducer{}
	return &fixture{
		worker:   NewWorker(deployer, leaser, deployments, resources, producer, 2, 4),
		deployer: deployer,
		leaser:   leaser,
		producer: producer,
	}
}

// runOne submits a single message and waits for its terminal result,
// reporting whether the acknowledgment fired.
func (f *fixture) runOne(t *testing.T, body string) (Result, bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.worker.Start(ctx)

	acked := make(chan struct{}, 1)
	handle, err := f.worker.Submit(ctx, &messaging.Message{ID: "1-0", Key: "job-1", Body: []byte(body)}, func() {
		acked <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	select {
	case res := <-handle:
		select {
		case <-acked:
			return res, true
		case <-time.After(time.Second):
			return res, false
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
		return Result{}, false
	}
}

func TestFileAccess(t *testing.T) {
	t.Parallel()

	f := newFixture(&scriptedDeployer{}, &scriptedLeaser{}, nil, nil)
	res, acked := f.runOne(t, `{"job_id":"job-1","data_id":"d1","deployment_type":"file"}`)

	if res.Err != nil {
		t.Fatalf("task errored: %v", res.Err)
	}
	if !acked {
		t.Error("message was not acknowledged")
	}
	if got, want := f.producer.statuses(), []string{"running", "success"}; !slices.Equal(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	last := f.producer.last()
	if last.Result == nil || last.Result.FileReference != "d1" {
		t.Errorf("success result = %+v, want file reference d1", last.Result)
	}
	if last.Result != nil && last.Result.Deployment != nil {
		t.Error("file access produced a deployment")
	}
	if len(f.leaser.created)+len(f.leaser.renewed) != 0 {
		t.Error("file access touched leases")
	}
}

func TestGeoServerAccess(t *testing.T) {
	t.Parallel()

	t.Run("creates deployment and lease when none exists", func(t *testing.T) {
		t.Parallel()

		deployment := &models.Deployment{ID: uuid.New(), DataID: "d2", Host: "h", Port: "p", Layer: "t2"}
		deployer := &scriptedDeployer{created: deployment}
		resources := &mapResources{byDataID: map[string]*models.DataResource{
			"d2": {DataID: "d2", Kind: models.ResourceTable, TableName: "t2"},
		}}
		f := newFixture(deployer, &scriptedLeaser{}, nil, resources)

		res, acked := f.runOne(t, `{"job_id":"job-1","data_id":"d2","deployment_type":"geoserver"}`)
		if res.Err != nil {
			t.Fatalf("task errored: %v", res.Err)
		}
		if !acked {
			t.Error("message was not acknowledged")
		}
		last := f.producer.last()
		if last.Status != messaging.StatusSuccess {
			t.Fatalf("terminal status = %s, want success", last.Status)
		}
		if last.Result.Deployment == nil || last.Result.Deployment.ID != deployment.ID {
			t.Errorf("success result = %+v, want deployment %s", last.Result, deployment.ID)
		}
		if len(f.leaser.created) != 1 || f.leaser.created[0] != deployment.ID {
			t.Errorf("lease creations = %v, want one for %s", f.leaser.created, deployment.ID)
		}
	})

	t.Run("renews the lease of an existing deployment", func(t *testing.T) {
		t.Parallel()

		deployment := &models.Deployment{ID: uuid.New(), DataID: "d2", Host: "h", Port: "p", Layer: "t2"}
		deployer := &scriptedDeployer{existing: map[string]bool{"d2": true}}
		deployments := &mapDeployments{byDataID: map[string]*models.Deployment{"d2": deployment}}
		f := newFixture(deployer, &scriptedLeaser{}, deployments, nil)

		res, _ := f.runOne(t, `{"job_id":"job-1","data_id":"d2","deployment_type":"geoserver"}`)
		if res.Err != nil {
			t.Fatalf("task errored: %v", res.Err)
		}
		last := f.producer.last()
		if last.Result.Deployment == nil || last.Result.Deployment.ID != deployment.ID {
			t.Errorf("expected the existing deployment back, got %+v", last.Result)
		}
		if len(f.leaser.renewed) != 1 || f.leaser.renewed[0] != deployment.ID {
			t.Errorf("lease renewals = %v, want one for %s", f.leaser.renewed, deployment.ID)
		}
		if len(f.leaser.created) != 0 {
			t.Error("renewal path created a lease")
		}
	})

	t.Run("provisioning failure becomes an error status", func(t *testing.T) {
		t.Parallel()

		deployer := &scriptedDeployer{
			createErr: &geoserver.ProvisioningError{Operation: "create feature type", Status: 500},
		}
		resources := &mapResources{byDataID: map[string]*models.DataResource{
			"d3": {DataID: "d3", Kind: models.ResourceTable, TableName: "t3"},
		}}
		f := newFixture(deployer, &scriptedLeaser{}, nil, resources)

		res, acked := f.runOne(t, `{"job_id":"job-1","data_id":"d3","deployment_type":"geoserver"}`)
		if res.Err == nil {
			t.Fatal("expected task error")
		}
		if !acked {
			t.Error("failed message was not acknowledged")
		}
		last := f.producer.last()
		if last.Status != messaging.StatusError {
			t.Fatalf("terminal status = %s, want error", last.Status)
		}
		if last.Result.Message == "" {
			t.Error("error result has no human-readable message")
		}
		if !strings.Contains(last.Result.Cause, "non-OK response code") {
			t.Errorf("cause = %q, want the backend status text", last.Result.Cause)
		}
	})

	t.Run("missing lease on renewal is surfaced as error", func(t *testing.T) {
		t.Parallel()

		deployment := &models.Deployment{ID: uuid.New(), DataID: "d4"}
		deployer := &scriptedDeployer{existing: map[string]bool{"d4": true}}
		deployments := &mapDeployments{byDataID: map[string]*models.Deployment{"d4": deployment}}
		leaser := &scriptedLeaser{renewErr: errors.New("no lease exists for deployment")}
		f := newFixture(deployer, leaser, deployments, nil)

		res, _ := f.runOne(t, `{"job_id":"job-1","data_id":"d4","deployment_type":"geoserver"}`)
		if res.Err == nil {
			t.Fatal("expected task error")
		}
		if f.producer.last().Status != messaging.StatusError {
			t.Errorf("terminal status = %s, want error", f.producer.last().Status)
		}
	})
}

func TestUnknownDeploymentType(t *testing.T) {
	t.Parallel()

	f := newFixture(&scriptedDeployer{}, &scriptedLeaser{}, nil, nil)
	res, acked := f.runOne(t, `{"job_id":"job-1","data_id":"d1","deployment_type":"teleport"}`)

	if res.Err == nil {
		t.Fatal("expected task error")
	}
	if !acked {
		t.Error("message was not acknowledged")
	}
	last := f.producer.last()
	if last.Status != messaging.StatusError {
		t.Fatalf("terminal status = %s, want error", last.Status)
	}
	if !strings.Contains(last.Result.Cause, "teleport") {
		t.Errorf("cause = %q, should name the unknown type", last.Result.Cause)
	}
}

func TestMalformedMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(&scriptedDeployer{}, &scriptedLeaser{}, nil, nil)
	res, acked := f.runOne(t, `{"job_id": not json`)

	if res.Err == nil {
		t.Fatal("expected parse error")
	}
	if !acked {
		t.Error("malformed message was not acknowledged")
	}
	last := f.producer.last()
	if last == nil || last.Status != messaging.StatusError {
		t.Fatalf("expected a single error status, got %v", f.producer.statuses())
	}
	if last.JobID != "job-1" {
		t.Errorf("error keyed by %q, want the message key job-1", last.JobID)
	}
}

func TestPanicStillAcknowledges(t *testing.T) {
	t.Parallel()

	f := newFixture(&scriptedDeployer{panics: true}, &scriptedLeaser{}, nil, nil)
	res, acked := f.runOne(t, `{"job_id":"job-1","data_id":"d1","deployment_type":"geoserver"}`)

	if res.Err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
	if !acked {
		t.Error("panicking task did not acknowledge its message")
	}
}
