package engine

import (
	"time"

	"github.com/hatchway/clustersched/pkg/types"
)

// Tick is the scheduler's single entry point for time passing. It is a
// no-op unless now has reached next_schedule_time, in which case it runs
// Phase 1 (complete_running_jobs) followed by Phase 2 (schedule_jobs) under
// one lock acquisition.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if now.Before(e.nextScheduleTime) {
		return
	}

	start := now
	e.completeRunningJobs(now)
	nodeCount := e.scheduleJobs(now)

	pending, running := len(e.pendingJobs), len(e.jobsNodes)
	e.metrics.SetStats(pending, running, nodeCount)
	e.metrics.ObserveTick(e.now().Sub(start))
}

// bumpIfPast relaxes next_schedule_time to candidate when it has already
// fallen into the past, giving Phase 2 (or the next idle tick) a concrete
// fallback deadline even if nothing below lowers it further.
func (e *Engine) bumpIfPast(now, candidate time.Time) {
	if e.nextScheduleTime.Before(now) {
		e.nextScheduleTime = candidate
	}
}

// lowerTo pulls next_schedule_time earlier when candidate is sooner, never
// later; apart from the roll-forward in bumpIfPast at the start of each
// phase, both phases only ever tighten the deadline.
func (e *Engine) lowerTo(candidate time.Time) {
	if candidate.Before(e.nextScheduleTime) {
		e.nextScheduleTime = candidate
	}
}

// completeRunningJobs is Phase 1: every node's running jobs are checked for
// completion, node counters are recomputed from the survivors (the
// authoritative fix for any allocation drift left by DeleteJob), and
// next_schedule_time is pulled in to the earliest remaining completion.
func (e *Engine) completeRunningJobs(now time.Time) {
	candidate := now.Add(e.schedulingInterval)
	e.bumpIfPast(now, candidate)

	nodes, err := e.store.GetNodes()
	if err != nil {
		log.Error("tick: list nodes failed", "error", err)
		return
	}

	for _, node := range nodes {
		ids := e.nodeJobs[node.ID]
		surviving := make([]types.Id, 0, len(ids))

		var jobsAllocated int
		var cpuAllocated float64
		var memAllocated int64

		for _, jobID := range ids {
			job, err := e.store.GetJob(jobID)
			if err != nil || job == nil {
				delete(e.jobsNodes, jobID)
				continue
			}

			completion := jobCompletionTime(job)
			if completion.Before(now) {
				job.Status = types.StatusCompleted
				if _, err := e.store.UpdateJob(job); err != nil {
					log.Error("tick: complete job failed", "job_id", jobID, "error", err)
				}
				delete(e.jobsNodes, jobID)
				e.metrics.RecordCompleted()
				log.Info("completed job", "job_id", jobID, "node_id", node.ID)
				continue
			}

			surviving = append(surviving, jobID)
			jobsAllocated++
			cpuAllocated += job.RequestsCPU
			memAllocated += job.RequestsMemory
			e.lowerTo(completion)
		}

		e.nodeJobs[node.ID] = surviving
		node.JobsAllocated = jobsAllocated
		node.CPUAllocated = cpuAllocated
		node.MemoryAllocated = memAllocated
		if _, err := e.store.UpdateNode(node); err != nil {
			log.Error("tick: update node failed", "node_id", node.ID, "error", err)
		}
	}
}

// scheduleJobs is Phase 2: pending jobs are matched against a snapshot of
// nodes taken after Phase 1's frees, in submission order, first-fit. The
// nodes snapshot is mutated in place as placements land so a node filled
// earlier in this same phase is correctly seen as full by a later pending
// job (mirroring a storage layer where get_nodes and get_node alias the
// same records). Returns the number of nodes in the snapshot, which feeds
// the node-count gauge.
func (e *Engine) scheduleJobs(now time.Time) int {
	candidate := now.Add(e.schedulingInterval)
	e.bumpIfPast(now, candidate)

	nodes, err := e.store.GetNodes()
	if err != nil {
		log.Error("tick: list nodes failed", "error", err)
		return 0
	}

	var assigned []types.Id
	for _, jobID := range e.pendingJobs {
		job, err := e.store.GetJob(jobID)
		if err != nil {
			log.Error("tick: get job failed", "job_id", jobID, "error", err)
			continue
		}
		if job == nil {
			continue
		}

		fit := fitAvailable(job, nodes)
		if len(fit) == 0 {
			continue
		}
		chosen := fit[0]

		if existing, err := e.store.GetNode(chosen.ID); err != nil || existing == nil {
			continue
		}

		startedAt := now.Unix()
		job.Status = types.StatusRunning
		job.StartedAt = &startedAt
		if _, err := e.store.UpdateJob(job); err != nil {
			log.Error("tick: place job failed", "job_id", jobID, "error", err)
			continue
		}

		chosen.JobsAllocated++
		chosen.CPUAllocated += job.RequestsCPU
		chosen.MemoryAllocated += job.RequestsMemory
		if _, err := e.store.UpdateNode(chosen); err != nil {
			log.Error("tick: update node failed", "node_id", chosen.ID, "error", err)
		}

		e.jobsNodes[jobID] = chosen.ID
		e.nodeJobs[chosen.ID] = append(e.nodeJobs[chosen.ID], jobID)
		e.metrics.RecordPlaced()
		log.Info("job assigned", "job_id", jobID, "node_id", chosen.ID)

		e.lowerTo(jobCompletionTime(job))
		assigned = append(assigned, jobID)
	}

	if len(assigned) > 0 {
		assignedSet := make(map[types.Id]struct{}, len(assigned))
		for _, id := range assigned {
			assignedSet[id] = struct{}{}
		}
		remaining := e.pendingJobs[:0]
		for _, id := range e.pendingJobs {
			if _, done := assignedSet[id]; !done {
				remaining = append(remaining, id)
			}
		}
		e.pendingJobs = remaining
	}
	return len(nodes)
}

func jobCompletionTime(job *types.Job) time.Time {
	started := time.Unix(*job.StartedAt, 0)
	return started.Add(time.Duration(job.ExpectedRunTime) * time.Second)
}
