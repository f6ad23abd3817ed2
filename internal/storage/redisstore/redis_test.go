package redisstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hatchway/clustersched/internal/storage"
)

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New("not-a-url")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrBackendNotImplemented)
}

func TestNewReportsNotImplementedForValidURL(t *testing.T) {
	// Port 1 is reserved and never accepts connections, so the ping inside
	// New fails fast without needing a real redis server; the method must
	// still report not-implemented rather than the ping error.
	_, err := New("redis://localhost:1/0")
	assert.True(t, errors.Is(err, storage.ErrBackendNotImplemented))
}
