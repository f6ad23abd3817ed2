// Package memory implements storage.Store entirely in process memory.
// It is the mandatory backend: the engine's property and scenario tests run
// against it exclusively, and it is the default --storage value.
package memory

import (
	"sync"

	"github.com/hatchway/clustersched/pkg/types"
)

// Store is a map-backed storage.Store. Insertion order is tracked
// separately from the maps (Go map iteration order is unspecified), since
// GetJobs/GetNodes must return records in insertion order.
type Store struct {
	mu sync.Mutex

	jobs     map[types.Id]*types.Job
	jobOrder []types.Id

	nodes     map[types.Id]*types.Node
	nodeOrder []types.Id
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{
		jobs:  make(map[types.Id]*types.Job),
		nodes: make(map[types.Id]*types.Node),
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = nil
	s.nodes = nil
	s.jobOrder = nil
	s.nodeOrder = nil
	return nil
}

func (s *Store) AddNode(node *types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[node.ID]; !exists {
		s.nodeOrder = append(s.nodeOrder, node.ID)
	}
	s.nodes[node.ID] = node.Clone()
	return nil
}

func (s *Store) GetNode(id types.Id) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, exists := s.nodes[id]
	if !exists {
		return nil, nil
	}
	return node.Clone(), nil
}

func (s *Store) UpdateNode(node *types.Node) (types.ActionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[node.ID]; !exists {
		return types.StatusNotFound, nil
	}
	s.nodes[node.ID] = node.Clone()
	return types.StatusOK, nil
}

func (s *Store) DeleteNode(id types.Id) (types.ActionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[id]; !exists {
		return types.StatusNotFound, nil
	}
	delete(s.nodes, id)
	s.nodeOrder = removeID(s.nodeOrder, id)
	return types.StatusOK, nil
}

func (s *Store) GetNodes() ([]*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*types.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		if node, exists := s.nodes[id]; exists {
			result = append(result, node.Clone())
		}
	}
	return result, nil
}

func (s *Store) AddJob(job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		s.jobOrder = append(s.jobOrder, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) GetJob(id types.Id) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, nil
	}
	return job.Clone(), nil
}

func (s *Store) UpdateJob(job *types.Job) (types.ActionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		return types.StatusNotFound, nil
	}
	s.jobs[job.ID] = job.Clone()
	return types.StatusOK, nil
}

func (s *Store) DeleteJob(id types.Id) (types.ActionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; !exists {
		return types.StatusNotFound, nil
	}
	delete(s.jobs, id)
	s.jobOrder = removeID(s.jobOrder, id)
	return types.StatusOK, nil
}

func (s *Store) GetJobs() ([]*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*types.Job, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		if job, exists := s.jobs[id]; exists {
			result = append(result, job.Clone())
		}
	}
	return result, nil
}

func removeID(ids []types.Id, target types.Id) []types.Id {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
