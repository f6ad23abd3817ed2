package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchway/clustersched/internal/storage/memory"
	"github.com/hatchway/clustersched/pkg/types"
)

func newTestEngine(clock *fakeClock) *Engine {
	return New(memory.New(), WithClock(clock.Now), WithSchedulingInterval(time.Second))
}

func TestSubmitJobQueuesForPlacement(t *testing.T) {
	clock := newFakeClock(time.Unix(1000, 0))
	e := newTestEngine(clock)

	id, err := e.SubmitJob(types.NewJobSpec{ExpectedRunTime: 5, RequestsCPU: 1, RequestsMemory: 10})
	require.NoError(t, err)
	assert.Equal(t, types.Id("1"), id)

	job, err := e.GetJob(id)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, types.StatusNew, job.Status)
	assert.Equal(t, []types.Id{"1"}, e.pendingJobs)

	pending, running := e.Stats()
	assert.Equal(t, 1, pending)
	assert.Zero(t, running)
}

func TestSubmitJobAllocatesSequentialIDs(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	first, _ := e.SubmitJob(types.NewJobSpec{})
	second, _ := e.SubmitJob(types.NewJobSpec{})
	assert.Equal(t, types.Id("1"), first)
	assert.Equal(t, types.Id("2"), second)
}

func TestDeleteJobRemovesFromPendingAndStorage(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	id, _ := e.SubmitJob(types.NewJobSpec{ExpectedRunTime: 5})
	status, err := e.DeleteJob(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, status)
	assert.Empty(t, e.pendingJobs)

	job, err := e.GetJob(id)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDeleteUnknownJobIsNotFound(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	status, err := e.DeleteJob("missing")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotFound, status)
}

func TestTerminateJobRequiresRunning(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	id, _ := e.SubmitJob(types.NewJobSpec{ExpectedRunTime: 100})
	// still NEW, not RUNNING
	status, err := e.TerminateJob(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotFound, status)
}

func TestTerminateRunningJobFreesNodeAndMarksTerminated(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	nodeID, err := e.AddNode(types.NewNodeSpec{JobsCapacity: 1, CPUCapacity: 2, MemoryCapacity: 1000})
	require.NoError(t, err)
	jobID, err := e.SubmitJob(types.NewJobSpec{ExpectedRunTime: 100, RequestsCPU: 1, RequestsMemory: 10})
	require.NoError(t, err)

	e.Tick(clock.Now())

	job, err := e.GetJob(jobID)
	require.NoError(t, err)
	require.Equal(t, types.StatusRunning, job.Status)

	status, err := e.TerminateJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, status)

	job, err = e.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusTerminated, job.Status)

	jobs, err := e.GetNodeJobs(nodeID)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	pending, running := e.Stats()
	assert.Zero(t, pending)
	assert.Zero(t, running)
}

func TestAddNodeRegistersWithZeroAllocation(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	id, err := e.AddNode(types.NewNodeSpec{JobsCapacity: 10, CPUCapacity: 4, MemoryCapacity: 2000})
	require.NoError(t, err)

	node, err := e.GetNode(id)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, 0, node.JobsAllocated)
	assert.Zero(t, node.CPUAllocated)
	assert.Zero(t, node.MemoryAllocated)
}

func TestDeleteNodeInterruptsRunningJobs(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	nodeID, _ := e.AddNode(types.NewNodeSpec{JobsCapacity: 1, CPUCapacity: 2, MemoryCapacity: 1000})
	jobID, _ := e.SubmitJob(types.NewJobSpec{ExpectedRunTime: 100, RequestsCPU: 1, RequestsMemory: 10})
	e.Tick(clock.Now())

	job, _ := e.GetJob(jobID)
	require.Equal(t, types.StatusRunning, job.Status)

	status, err := e.DeleteNode(nodeID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, status)

	job, err = e.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNew, job.Status)
	assert.Nil(t, job.StartedAt)
	assert.Equal(t, []types.Id{jobID}, e.pendingJobs)
}

func TestDeleteNodeWithoutRunningJobsStaysQueryable(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	nodeID, _ := e.AddNode(types.NewNodeSpec{JobsCapacity: 1, CPUCapacity: 1, MemoryCapacity: 100})

	status, err := e.DeleteNode(nodeID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, status)

	node, err := e.GetNode(nodeID)
	require.NoError(t, err)
	assert.Nil(t, node)

	// The nodeJobs entry is only dropped when the node had running jobs, so
	// the empty node keeps answering with an empty list instead of
	// ErrUnknownNode.
	jobs, err := e.GetNodeJobs(nodeID)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestDeleteUnknownNodeFallsThroughToStorageNotFound(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	status, err := e.DeleteNode("missing")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotFound, status)
}

func TestGetNodeJobsUnknownNodeReturnsErrUnknownNode(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	_, err := e.GetNodeJobs("missing")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestGetNodeJobsKnownEmptyNodeReturnsEmptySlice(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := newTestEngine(clock)

	id, _ := e.AddNode(types.NewNodeSpec{JobsCapacity: 1, CPUCapacity: 1, MemoryCapacity: 100})
	jobs, err := e.GetNodeJobs(id)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
