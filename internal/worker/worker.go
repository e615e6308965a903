package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mapstack/mapstack-access/internal/deploy"
	"github.com/mapstack/mapstack-access/internal/messaging"
	"github.com/mapstack/mapstack-access/internal/models"
	"github.com/mapstack/mapstack-access/internal/repository"
)

// Result is the terminal outcome of one job task, delivered on the handle
// returned by Submit.
type Result struct {
	Job *messaging.AccessJob
	Err error
}

type task struct {
	msg    *messaging.Message
	ack    func()
	handle chan Result
}

// Worker translates inbound access-job messages into deployer and leaser
// calls and emits status updates. Each message runs as its own task on a
// bounded pool: Baseline tasks execute concurrently, further work queues up
// to Burst, and Submit blocks beyond that. A task always acknowledges its
// message, whatever the outcome, so the broker contract is never violated.
type Worker struct {
	deployer    deploy.Deployer
	leaser      deploy.Leaser
	deployments repository.DeploymentRepository
	resources   repository.ResourceRepository
	producer    messaging.Producer

	baseline int
	tasks    chan task
	wg       sync.WaitGroup
}

func NewWorker(deployer deploy.Deployer, leaser deploy.Leaser, deployments repository.DeploymentRepository, resources repository.ResourceRepository, producer messaging.Producer, baseline, burst int) *Worker {
	if baseline < 1 {
		baseline = 1
	}
	if burst < baseline {
		burst = baseline
	}
	return &Worker{
		deployer:    deployer,
		leaser:      leaser,
		deployments: deployments,
		resources:   resources,
		producer:    producer,
		baseline:    baseline,
		tasks:       make(chan task, burst),
	}
}

// Start launches the pool runners. They drain until the context is canceled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.baseline; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-w.tasks:
					w.execute(ctx, t)
				}
			}
		}()
	}
}

// Wait blocks until all runners have stopped.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Submit hands a message to the pool and returns a handle that receives the
// terminal result. ack fires exactly once when the task finishes, success or
// not. Submit blocks while the queue is full.
func (w *Worker) Submit(ctx context.Context, msg *messaging.Message, ack func()) (<-chan Result, error) {
	t := task{
		msg:    msg,
		ack:    ack,
		handle: make(chan Result, 1),
	}
	select {
	case w.tasks <- t:
		return t.handle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run consumes messages until the context is canceled. Acknowledgment is
// wired to the consumer so a finished task frees its message immediately.
func (w *Worker) Run(ctx context.Context, consumer messaging.Consumer) {
	w.Start(ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Receiving job message failed: %v", err)
			continue
		}
		if msg == nil {
			continue
		}
		id := msg.ID
		if _, err := w.Submit(ctx, msg, func() {
			if err := consumer.Ack(ctx, id); err != nil {
				log.Printf("Could not acknowledge message %s: %v", id, err)
			}
		}); err != nil {
			return
		}
	}
}

// execute runs one task to a terminal outcome. The deferred block guarantees
// the acknowledgment and the handle delivery on every exit path, panics
// included.
func (w *Worker) execute(ctx context.Context, t task) {
	var res Result
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("job task panicked: %v", r)
		}
		t.ack()
		t.handle <- res
	}()
	res.Job, res.Err = w.handle(ctx, t.msg)
}

// handle is the per-message state machine: parse, RUNNING, dispatch, then
// exactly one terminal status. Every failure becomes an ERROR update; none
// escapes to the pool.
func (w *Worker) handle(ctx context.Context, msg *messaging.Message) (*messaging.AccessJob, error) {
	var job messaging.AccessJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		parseErr := fmt.Errorf("malformed job message: %w", err)
		w.emitError(ctx, msg.Key, parseErr)
		return nil, parseErr
	}
	if job.JobID == "" {
		job.JobID = msg.Key
	}

	log.Printf("Received request to access data %s of type %s under job %s", job.DataID, job.DeploymentType, job.JobID)
	w.emit(ctx, &messaging.StatusUpdate{JobID: job.JobID, Status: messaging.StatusRunning})

	switch job.DeploymentType {
	case messaging.AccessTypeFile:
		// Nothing to provision; the data id is the file reference.
		w.emit(ctx, &messaging.StatusUpdate{
			JobID:  job.JobID,
			Status: messaging.StatusSuccess,
			Result: &messaging.Result{FileReference: job.DataID},
		})

	case messaging.AccessTypeGeoServer:
		deployment, err := w.accessDeployment(ctx, job.DataID)
		if err != nil {
			w.emitError(ctx, job.JobID, err)
			return &job, err
		}
		result := &messaging.Result{Deployment: deployment}
		if deployment == nil {
			// Pass-through resource: already reachable without a
			// deployment of ours.
			result = &messaging.Result{FileReference: job.DataID}
		}
		w.emit(ctx, &messaging.StatusUpdate{
			JobID:  job.JobID,
			Status: messaging.StatusSuccess,
			Result: result,
		})

	default:
		err := fmt.Errorf("unknown deployment type: %q", job.DeploymentType)
		w.emitError(ctx, job.JobID, err)
		return &job, err
	}

	return &job, nil
}

// accessDeployment renews the lease of an existing deployment or provisions
// a new one with a fresh lease.
func (w *Worker) accessDeployment(ctx context.Context, dataID string) (*models.Deployment, error) {
	exists, err := w.deployer.DeploymentExists(ctx, dataID)
	if err != nil {
		return nil, err
	}

	if exists {
		log.Printf("Renewing deployment lease for %s", dataID)
		deployment, err := w.deployments.FindByDataID(ctx, dataID)
		if err != nil {
			return nil, err
		}
		if _, err := w.leaser.RenewLease(ctx, deployment); err != nil {
			return nil, err
		}
		return deployment, nil
	}

	log.Printf("Creating a new deployment and lease for %s", dataID)
	resource, err := w.resources.FindByDataID(ctx, dataID)
	if err != nil {
		return nil, err
	}
	deployment, err := w.deployer.CreateDeployment(ctx, resource)
	if err != nil {
		return nil, err
	}
	if deployment == nil {
		return nil, nil
	}
	if _, err := w.leaser.CreateLease(ctx, deployment); err != nil {
		return nil, err
	}
	return deployment, nil
}

func (w *Worker) emit(ctx context.Context, update *messaging.StatusUpdate) {
	if err := w.producer.PublishStatus(ctx, update); err != nil {
		log.Printf("Could not publish %s status for job %s: %v", update.Status, update.JobID, err)
	}
}

func (w *Worker) emitError(ctx context.Context, jobID string, cause error) {
	w.emit(ctx, &messaging.StatusUpdate{
		JobID:  jobID,
		Status: messaging.StatusError,
		Result: &messaging.Result{
			Message: "Could not access data resource",
			Cause:   cause.Error(),
		},
	})
}
