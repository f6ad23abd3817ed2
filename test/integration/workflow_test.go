// ============================================================================
// clustersched workflow test suite
// ============================================================================
//
// Package: test/integration
// file: workflow_test.go
// functionality: end-to-end job lifecycle tests over the real HTTP surface
//
// test objectives:
//   verify the full submit -> place -> complete pipeline with every real
//   component wired together: in-memory storage, the scheduling engine, the
//   background driver (real wall clock, 1s poll), and the chi router.
//
// TestOneJobWorkflow:
//   - submit one job, register one node that exactly fits it
//   - wait for the driver to place it (status "running", node counters up)
//   - wait for the expected run time to elapse (status "completed",
//     node counters back to zero)
//
// TestTerminateRunningJobWorkflow:
//   - place a long-running job, terminate it through the status endpoint
//   - verify it reports "terminated" and frees its node slot
//
// test configuration:
//   the driver polls once per second, so placement is observed within ~1s of
//   submission and completion within ~1s of its nominal time; the Eventually
//   windows below leave a few seconds of slack on top of that.
//
// ============================================================================

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchway/clustersched/internal/engine"
	"github.com/hatchway/clustersched/internal/httpapi"
	"github.com/hatchway/clustersched/internal/storage/memory"
	"github.com/hatchway/clustersched/pkg/types"
)

func startScheduler(t *testing.T) *httptest.Server {
	t.Helper()

	e := engine.New(memory.New())
	driver := engine.NewDriver(e)
	driver.Start()
	t.Cleanup(driver.Stop)

	server := httptest.NewServer(httpapi.NewRouter(e))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, server *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func getJob(t *testing.T, server *httptest.Server, id types.Id) types.Job {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/jobs/%s", server.URL, id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job types.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	return job
}

func getNode(t *testing.T, server *httptest.Server, id types.Id) types.Node {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/nodes/%s", server.URL, id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var node types.Node
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&node))
	return node
}

func jobStatusIs(t *testing.T, server *httptest.Server, id types.Id, want types.JobStatus) func() bool {
	return func() bool { return getJob(t, server, id).Status == want }
}

func TestOneJobWorkflow(t *testing.T) {
	server := startScheduler(t)

	resp := postJSON(t, server, "/api/v1/jobs", types.NewJobSpec{
		ExpectedRunTime: 3,
		RequestsCPU:     2.0,
		RequestsMemory:  200,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Status string   `json:"status"`
		ID     types.Id `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, "ok", created.Status)
	jobID := created.ID

	require.Equal(t, types.StatusNew, getJob(t, server, jobID).Status)

	resp = postJSON(t, server, "/api/v1/nodes", types.NewNodeSpec{
		JobsCapacity:   20,
		CPUCapacity:    2.0,
		MemoryCapacity: 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, jobStatusIs(t, server, jobID, types.StatusRunning),
		3*time.Second, 100*time.Millisecond, "job was never placed")

	node := getNode(t, server, "1")
	assert.Equal(t, 1, node.JobsAllocated)
	assert.Equal(t, 2.0, node.CPUAllocated)
	assert.Equal(t, int64(200), node.MemoryAllocated)

	require.Eventually(t, jobStatusIs(t, server, jobID, types.StatusCompleted),
		6*time.Second, 100*time.Millisecond, "job never completed")

	node = getNode(t, server, "1")
	assert.Equal(t, 0, node.JobsAllocated)
	assert.Zero(t, node.CPUAllocated)
	assert.Zero(t, node.MemoryAllocated)
}

func TestTerminateRunningJobWorkflow(t *testing.T) {
	server := startScheduler(t)

	resp := postJSON(t, server, "/api/v1/jobs", types.NewJobSpec{
		ExpectedRunTime: 600,
		RequestsCPU:     1.0,
		RequestsMemory:  100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server, "/api/v1/nodes", types.NewNodeSpec{
		JobsCapacity:   1,
		CPUCapacity:    2.0,
		MemoryCapacity: 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, jobStatusIs(t, server, "1", types.StatusRunning),
		3*time.Second, 100*time.Millisecond, "job was never placed")

	resp = postJSON(t, server, "/api/v1/jobs/1/status?action=terminate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, types.StatusTerminated, getJob(t, server, "1").Status)

	nodeResp, err := http.Get(server.URL + "/api/v1/nodes/1/jobs")
	require.NoError(t, err)
	defer nodeResp.Body.Close()
	require.Equal(t, http.StatusOK, nodeResp.StatusCode)
	var jobs []types.Job
	require.NoError(t, json.NewDecoder(nodeResp.Body).Decode(&jobs))
	assert.Empty(t, jobs)
}
