// Package storage defines the persistence contract the scheduling engine
// depends on: a uniform key-addressable store for Job and Node entities.
// The engine owns exactly one Storage instance; it is never shared across
// engine instances and is closed on shutdown.
package storage

import (
	"errors"

	"github.com/hatchway/clustersched/pkg/types"
)

// ErrBackendNotImplemented is returned by the constructor of a backend that
// is accepted as a --storage value but not actually implemented, so
// selecting one fails loudly at startup; see internal/storage/postgres and
// internal/storage/redisstore.
var ErrBackendNotImplemented = errors.New("storage backend not implemented")

// Kind enumerates the pluggable backends accepted on the command line.
type Kind string

const (
	KindMemory     Kind = "memory"
	KindPostgreSQL Kind = "postgresql"
	KindRedis      Kind = "redis"
)

// Store is the adapter the engine talks to for every entity read or write.
// Implementations must return records in insertion order from GetJobs and
// GetNodes; the engine's first-fit placement policy depends on it.
type Store interface {
	Close() error

	AddNode(node *types.Node) error
	GetNode(id types.Id) (*types.Node, error)
	UpdateNode(node *types.Node) (types.ActionStatus, error)
	DeleteNode(id types.Id) (types.ActionStatus, error)
	GetNodes() ([]*types.Node, error)

	AddJob(job *types.Job) error
	GetJob(id types.Id) (*types.Job, error)
	UpdateJob(job *types.Job) (types.ActionStatus, error)
	DeleteJob(id types.Id) (types.ActionStatus, error)
	GetJobs() ([]*types.Job, error)
}
