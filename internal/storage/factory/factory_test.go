package factory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchway/clustersched/internal/storage"
)

func TestNewMemory(t *testing.T) {
	store, err := New(storage.KindMemory, "")
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}

func TestNewPostgresFailsLoudly(t *testing.T) {
	_, err := New(storage.KindPostgreSQL, "postgres://localhost:5432/clustersched")
	assert.True(t, errors.Is(err, storage.ErrBackendNotImplemented))
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(storage.Kind("etcd"), "")
	assert.Error(t, err)
}
