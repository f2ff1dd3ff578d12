package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingStore struct {
	removed []Index
}

func (s *recordingStore) Remove(idx Index) { s.removed = append(s.removed, idx) }

func TestRegistryRemoveAll(t *testing.T) {
	a, b := &recordingStore{}, &recordingStore{}
	reg := NewRegistry()
	reg.Register(a)
	reg.Register(b)

	reg.RemoveAll(7)
	reg.RemoveAll(12)

	assert.Equal(t, []Index{7, 12}, a.removed)
	assert.Equal(t, []Index{7, 12}, b.removed)
}

func TestIndexValid(t *testing.T) {
	assert.True(t, Index(0).Valid())
	assert.True(t, Index(255).Valid())
	assert.False(t, Index(256).Valid())
	assert.False(t, None.Valid())
}
