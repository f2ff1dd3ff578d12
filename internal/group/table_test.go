package group

import (
	"testing"

	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(t *Table, target ecs.Index) []Entry {
	var out []Entry
	t.Chain(target, func(e Entry) bool {
		out = append(out, Entry{Source: e.Source, Tag: e.Tag})
		return true
	})
	return out
}

func conserved(t *testing.T, tbl *Table) {
	t.Helper()
	assert.Equal(t, PoolSize, tbl.Allocated()+tbl.Free())
}

func TestNotifyIsLIFO(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.Notify(4, 1, 7))
	require.True(t, tbl.Notify(4, 2, 9))
	require.True(t, tbl.Notify(5, 1, 7))

	assert.Equal(t, []Entry{{Source: 2, Tag: 9}, {Source: 1, Tag: 7}}, chain(tbl, 4))
	assert.True(t, tbl.Pending(5))
	assert.False(t, tbl.Pending(6))
	assert.Equal(t, 3, tbl.Allocated())
	conserved(t, tbl)

	e, ok := tbl.Find(4, 7)
	assert.True(t, ok)
	assert.Equal(t, ecs.Index(1), e.Source)
	_, ok = tbl.Find(4, 1)
	assert.False(t, ok)
}

func TestReleaseAllIdempotent(t *testing.T) {
	tbl := NewTable()
	tbl.Notify(4, 1, 7)
	tbl.Notify(4, 2, 9)

	tbl.ReleaseAll(4)
	conserved(t, tbl)
	assert.Empty(t, chain(tbl, 4))

	tbl.ReleaseAll(4)
	tbl.ReleaseAll(ecs.None)
	assert.Equal(t, PoolSize, tbl.Free())
}

func TestExhaustion(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < PoolSize; i++ {
		require.True(t, tbl.Notify(ecs.Index(i%3), 9, uint16(i)))
	}
	assert.False(t, tbl.Notify(0, 9, 1), "dropped when the pool is empty")
	assert.Zero(t, tbl.Free())
	conserved(t, tbl)

	tbl.ReleaseAll(1)
	assert.Equal(t, PoolSize/3, tbl.Free())
	assert.True(t, tbl.Notify(0, 9, 1))
	conserved(t, tbl)
}

func TestRemovePurgesSourceAndTarget(t *testing.T) {
	tbl := NewTable()
	tbl.Notify(4, 1, 7)
	tbl.Notify(4, 2, 8)
	tbl.Notify(4, 1, 9)
	tbl.Notify(1, 4, 3)

	tbl.Remove(1)

	assert.Equal(t, []Entry{{Source: 2, Tag: 8}}, chain(tbl, 4))
	assert.Empty(t, chain(tbl, 1))
	assert.Equal(t, 1, tbl.Allocated())
	conserved(t, tbl)
}

func TestReset(t *testing.T) {
	tbl := NewTable()
	tbl.Notify(4, 1, 7)
	tbl.Reset()
	assert.Equal(t, PoolSize, tbl.Free())
	assert.Zero(t, tbl.Allocated())
}
