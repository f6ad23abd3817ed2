// ============================================================================
// clustersched scheduling engine
// ============================================================================
//
// Package: internal/engine
// Purpose: the in-memory placement index linking jobs and nodes, the
// imperative operations that mutate it, and the time-driven tick that
// advances job and node state.
//
// The engine owns both the job/node state machine and the lock discipline
// and background loop that drive it, merged into one component since
// placement and lifecycle are tightly coupled. Jobs are never dispatched to
// a real worker pool for execution; this engine simulates execution
// entirely from wall-clock arithmetic: there is no task channel, no worker
// goroutine, no WAL, no snapshot.
//
// Concurrency: a single sync.RWMutex serializes every mutating operation
// (Lock) and the scheduling tick; GetNodeJobs takes a read lock over the
// index only (RLock). Pure storage delegations (GetJob, GetJobs, GetNode,
// GetNodes) take no engine lock at all.
//
// ============================================================================

package engine

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hatchway/clustersched/internal/storage"
	"github.com/hatchway/clustersched/pkg/types"
)

var log = slog.Default()

// SchedulingInterval is the maximum idle time between ticks when nothing is
// due.
const SchedulingInterval = 60 * time.Second

// MetricsRecorder is the subset of internal/metrics.Collector the engine
// drives. Defined here (not imported from internal/metrics) so the engine
// package has no dependency on the metrics library; New installs
// noopRecorder below, so every call is safe even with no collector wired
// in.
type MetricsRecorder interface {
	RecordSubmitted()
	RecordPlaced()
	RecordCompleted()
	RecordTerminated()
	ObserveTick(d time.Duration)
	SetStats(pending, running, nodeCount int)
}

type noopRecorder struct{}

func (noopRecorder) RecordSubmitted()                         {}
func (noopRecorder) RecordPlaced()                            {}
func (noopRecorder) RecordCompleted()                         {}
func (noopRecorder) RecordTerminated()                        {}
func (noopRecorder) ObserveTick(time.Duration)                {}
func (noopRecorder) SetStats(pending, running, nodeCount int) {}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock injects the wall clock, letting tests drive time deterministically.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithSchedulingInterval overrides SchedulingInterval, mainly for tests that
// would otherwise need to wait a full minute to see the idle-interval cap.
func WithSchedulingInterval(d time.Duration) Option {
	return func(e *Engine) { e.schedulingInterval = d }
}

// WithMetrics attaches a MetricsRecorder; omitted, the engine records nothing.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine owns the placement indexes and serializes every mutating operation
// against the background scheduling tick.
type Engine struct {
	mu sync.RWMutex

	store storage.Store
	clock func() time.Time

	nodeJobs    map[types.Id][]types.Id // node id -> ordered running job ids
	jobsNodes   map[types.Id]types.Id   // job id -> node id, RUNNING jobs only
	pendingJobs []types.Id              // job ids with status NEW, submission order

	nextJobID  uint64
	nextNodeID uint64

	nextScheduleTime   time.Time
	schedulingInterval time.Duration

	metrics MetricsRecorder
}

// New creates an Engine backed by store. The engine never closes store;
// the caller is responsible for storage lifecycle.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:              store,
		clock:              time.Now,
		nodeJobs:           make(map[types.Id][]types.Id),
		jobsNodes:          make(map[types.Id]types.Id),
		schedulingInterval: SchedulingInterval,
		metrics:            noopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.nextScheduleTime = e.clock()
	return e
}

func (e *Engine) now() time.Time { return e.clock() }

func (e *Engine) allocJobID() types.Id {
	e.nextJobID++
	return strconv.FormatUint(e.nextJobID, 10)
}

func (e *Engine) allocNodeID() types.Id {
	e.nextNodeID++
	return strconv.FormatUint(e.nextNodeID, 10)
}

// wake forces the next Tick call to run its phases immediately: every
// state-mutating operation sets next_schedule_time := now.
func (e *Engine) wake() {
	e.nextScheduleTime = e.now()
}

// SubmitJob allocates an id, persists a NEW job, and queues it for
// placement on the next tick. No request field is validated: a job that
// can never fit any node simply waits in pendingJobs forever.
func (e *Engine) SubmitJob(spec types.NewJobSpec) (types.Id, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.allocJobID()
	job := &types.Job{
		ID:              id,
		Status:          types.StatusNew,
		ExpectedRunTime: spec.ExpectedRunTime,
		RequestsCPU:     spec.RequestsCPU,
		RequestsMemory:  spec.RequestsMemory,
		CreatedAt:       e.now().Unix(),
	}
	if err := e.store.AddJob(job); err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	e.pendingJobs = append(e.pendingJobs, id)
	e.wake()
	e.metrics.RecordSubmitted()
	return id, nil
}

// DeleteJob removes a job from every placement index it appears in and then
// deletes its storage record. It does not recompute the host node's
// allocated counters; they stay stale (over-counted, so placement can only
// under-utilize, never over-commit) until the next tick's Phase 1 recompute.
func (e *Engine) DeleteJob(id types.Id) (types.ActionStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if idx := indexOf(e.pendingJobs, id); idx >= 0 {
		e.pendingJobs = removeAt(e.pendingJobs, idx)
		e.wake()
	}
	if nodeID, running := e.jobsNodes[id]; running {
		delete(e.jobsNodes, id)
		e.nodeJobs[nodeID] = removeID(e.nodeJobs[nodeID], id)
		e.wake()
	}

	status, err := e.store.DeleteJob(id)
	if err != nil {
		return types.StatusNotFound, fmt.Errorf("delete job %s: %w", id, err)
	}
	return status, nil
}

// TerminateJob transitions a RUNNING job to TERMINATED. Any other status
// (NEW, COMPLETED, already TERMINATED, or unknown) is NOT_FOUND.
func (e *Engine) TerminateJob(id types.Id) (types.ActionStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nodeID, running := e.jobsNodes[id]
	if !running {
		return types.StatusNotFound, nil
	}

	job, err := e.store.GetJob(id)
	if err != nil {
		return types.StatusNotFound, fmt.Errorf("terminate job %s: %w", id, err)
	}
	if job == nil {
		return types.StatusNotFound, nil
	}

	delete(e.jobsNodes, id)
	e.nodeJobs[nodeID] = removeID(e.nodeJobs[nodeID], id)

	job.Status = types.StatusTerminated
	if _, err := e.store.UpdateJob(job); err != nil {
		return types.StatusNotFound, fmt.Errorf("terminate job %s: %w", id, err)
	}
	e.wake()
	e.metrics.RecordTerminated()
	return types.StatusOK, nil
}

// AddNode registers a node with all allocated counters at zero.
func (e *Engine) AddNode(spec types.NewNodeSpec) (types.Id, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.allocNodeID()
	node := &types.Node{
		ID:             id,
		JobsCapacity:   spec.JobsCapacity,
		CPUCapacity:    spec.CPUCapacity,
		MemoryCapacity: spec.MemoryCapacity,
	}
	if err := e.store.AddNode(node); err != nil {
		return "", fmt.Errorf("add node: %w", err)
	}
	e.nodeJobs[id] = make([]types.Id, 0)
	e.wake()
	return id, nil
}

// DeleteNode removes a node, returning any of its RUNNING jobs to NEW and
// splicing them back into pendingJobs ahead of already-queued submissions.
// A node unknown to the engine's index falls through to storage.DeleteNode,
// which reports NOT_FOUND. Deleting a node with no running jobs leaves its
// nodeJobs entry in place, so GetNodeJobs keeps answering with an empty
// list rather than "unknown node" for it.
func (e *Engine) DeleteNode(id types.Id) (types.ActionStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if interrupted := e.nodeJobs[id]; len(interrupted) > 0 {
		for _, jobID := range interrupted {
			job, err := e.store.GetJob(jobID)
			if err != nil {
				return types.StatusNotFound, fmt.Errorf("delete node %s: %w", id, err)
			}
			if job == nil {
				continue
			}
			job.Status = types.StatusNew
			job.StartedAt = nil
			if _, err := e.store.UpdateJob(job); err != nil {
				return types.StatusNotFound, fmt.Errorf("delete node %s: %w", id, err)
			}
			delete(e.jobsNodes, jobID)
		}
		e.pendingJobs = append(append([]types.Id{}, interrupted...), e.pendingJobs...)
		delete(e.nodeJobs, id)
		e.wake()
	}

	status, err := e.store.DeleteNode(id)
	if err != nil {
		return types.StatusNotFound, fmt.Errorf("delete node %s: %w", id, err)
	}
	return status, nil
}

// GetJob, GetNode, GetJobs and GetNodes are pure storage delegations: they
// take no engine lock and may observe a multi-step write mid-flight.
func (e *Engine) GetJob(id types.Id) (*types.Job, error)   { return e.store.GetJob(id) }
func (e *Engine) GetNode(id types.Id) (*types.Node, error) { return e.store.GetNode(id) }
func (e *Engine) GetJobs() ([]*types.Job, error)           { return e.store.GetJobs() }
func (e *Engine) GetNodes() ([]*types.Node, error)         { return e.store.GetNodes() }

// ErrUnknownNode is returned by GetNodeJobs when id was never registered
// (or was deleted while hosting running jobs), distinguishing it from a
// known node with no running jobs.
var ErrUnknownNode = fmt.Errorf("unknown node")

// GetNodeJobs resolves node_jobs[id] through storage. It takes a read lock
// over the index only, not the full engine lock, so it may race a
// concurrent mutation and observe a job that was just removed, returning a
// shorter list than the index suggested.
func (e *Engine) GetNodeJobs(id types.Id) ([]*types.Job, error) {
	e.mu.RLock()
	ids, known := e.nodeJobs[id]
	idsCopy := append([]types.Id(nil), ids...)
	e.mu.RUnlock()

	if !known {
		return nil, ErrUnknownNode
	}

	result := make([]*types.Job, 0, len(idsCopy))
	for _, jobID := range idsCopy {
		job, err := e.store.GetJob(jobID)
		if err != nil {
			return nil, fmt.Errorf("get node jobs %s: %w", id, err)
		}
		if job != nil {
			result = append(result, job)
		}
	}
	return result, nil
}

// Stats reports point-in-time index sizes for diagnostics; it takes a read
// lock over the index. Tick feeds the metrics gauges from the same index
// sizes directly, under its own lock.
func (e *Engine) Stats() (pending, running int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pendingJobs), len(e.jobsNodes)
}

func indexOf(ids []types.Id, target types.Id) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

func removeAt(ids []types.Id, idx int) []types.Id {
	return append(ids[:idx], ids[idx+1:]...)
}

func removeID(ids []types.Id, target types.Id) []types.Id {
	if idx := indexOf(ids, target); idx >= 0 {
		return removeAt(ids, idx)
	}
	return ids
}
