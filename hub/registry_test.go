package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	c := &mockConn{id: "c1"}

	assert.True(t, r.Register(c))
	assert.False(t, r.Register(c))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_DeregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	c := &mockConn{id: "c1"}

	assert.False(t, r.Deregister(c))

	r.Register(c)
	assert.True(t, r.Deregister(c))
	assert.False(t, r.Deregister(c))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DeregisterIgnoresStaleConnection(t *testing.T) {
	r := NewRegistry()
	current := &mockConn{id: "same"}
	stale := &mockConn{id: "same"}
	r.Register(current)

	assert.False(t, r.Deregister(stale))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SnapshotExcluding(t *testing.T) {
	r := NewRegistry()
	a := &mockConn{id: "a"}
	b := &mockConn{id: "b"}
	c := &mockConn{id: "c"}
	r.Register(a)
	r.Register(b)
	r.Register(c)

	snap := r.SnapshotExcluding(b)
	require.Len(t, snap, 2)
	assert.Equal(t, []domain.Connection{a, c}, snap)

	r.Deregister(a)
	assert.Len(t, snap, 2, "snapshot must not follow later mutations")
	assert.Len(t, r.Snapshot(), 2)
}
