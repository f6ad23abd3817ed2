package engine

import "github.com/hatchway/clustersched/pkg/types"

// fitAvailable returns the subset of nodes, in their given order, that have
// enough free capacity on all three axes to host job:
//
//   - jobs_allocated < jobs_capacity
//   - cpu_allocated + requests_cpu <= cpu_capacity
//   - memory_allocated + requests_memory <= memory_capacity
//
// A job with a negative cpu or memory request fits no node.
//
// It does not mutate job or any node; the caller picks the first entry and
// applies the allocation.
func fitAvailable(job *types.Job, nodes []*types.Node) []*types.Node {
	fit := make([]*types.Node, 0, len(nodes))
	if job.RequestsCPU < 0 || job.RequestsMemory < 0 {
		return fit
	}
	for _, node := range nodes {
		if node.JobsAllocated >= node.JobsCapacity {
			continue
		}
		if node.CPUAllocated+job.RequestsCPU > node.CPUCapacity {
			continue
		}
		if node.MemoryAllocated+job.RequestsMemory > node.MemoryCapacity {
			continue
		}
		fit = append(fit, node)
	}
	return fit
}
