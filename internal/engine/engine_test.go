package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/event"
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/group"
	"github.com/pgesim/engine/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// walkLevel: rooms 0 and 5 form a loop, each left and right of the other.
// The player random-walks three pixels at a time, the monster signals the
// player every tick, and a pickup waits in the player's room.
func walkLevel(name string) *data.Level {
	lvl := data.NewLevel(name)
	lvl.Connectivity.Link(data.RoomLink{Room: 0, Up: -1, Down: -1, Right: 5, Left: 5})
	lvl.Connectivity.Link(data.RoomLink{Room: 5, Up: -1, Down: -1, Right: 0, Left: 0})
	lvl.Anims = []*data.AnimTable{nil, {Type: 1, Frames: []data.AnimFrame{{Number: 1}}}}
	lvl.Nodes = []*data.ObjectNode{
		node(
			data.Descriptor{Op1: 0x61, Arg1: 2, DX: 3},
			data.Descriptor{Op1: 0x2E, DX: -3},
		),
		node(data.Descriptor{Op1: 0x23, Arg1: 9}),
		node(data.Descriptor{Op1: 0x2E}),
	}
	lvl.Templates = []data.Template{
		{Type: 1, PosX: 128, PosY: 70, Life: 3, ObjectType: data.ObjectPlayer, RoomLocation: 1, Span: 1},
		{Type: 1, PosX: 180, PosY: 70, Life: 2, ObjNode: 1, ObjectType: data.ObjectMonster, RoomLocation: 1, Span: 1},
		{Type: 1, PosX: 200, PosY: 70, ObjNode: 2, ObjectType: data.ObjectPickup, Flags: data.TplWakeInRoom, Span: 1, Icon: 7},
	}
	return lvl
}

func node(ds ...data.Descriptor) *data.ObjectNode {
	for i := range ds {
		ds[i].Type = 1
		ds[i].NextType = 1
	}
	return &data.ObjectNode{LastObj: uint16(len(ds)), Descriptors: ds}
}

func levels(lvls ...*data.Level) LevelSource {
	return func(n int) (*data.Level, error) {
		if n < 0 || n >= len(lvls) {
			return nil, fmt.Errorf("no level %d", n)
		}
		return lvls[n], nil
	}
}

func newEngine(t *testing.T, seed uint32, lvls ...*data.Level) (*Engine, *event.Bus) {
	t.Helper()
	if len(lvls) == 0 {
		lvls = []*data.Level{walkLevel("walk")}
	}
	bus := event.NewBus()
	e, err := New(levels(lvls...), Options{Seed: seed, Skill: 1, AbortOnRoomChange: true}, nil, bus, zap.NewNop())
	require.NoError(t, err)
	return e, bus
}

// collect gathers every event of type T dispatched from now on.
func collect[T any](bus *event.Bus) *[]T {
	out := &[]T{}
	event.Subscribe(bus, func(ev T) { *out = append(*out, ev) })
	return out
}

func deliver(bus *event.Bus) {
	bus.SwapBuffers()
	bus.DispatchAll()
}

func inputAt(tick int) Input {
	return []Input{0, InputRight, InputLeft | InputShift, InputUp}[tick%4]
}

func TestDeterminism(t *testing.T) {
	a, _ := newEngine(t, 0x12345678)
	b, _ := newEngine(t, 0x12345678)
	for i := 0; i < 300; i++ {
		require.NoError(t, a.Step(inputAt(i)))
		require.NoError(t, b.Step(inputAt(i)))
		require.Equal(t, a.Snapshot(), b.Snapshot(), "tick %d", i)
	}
	assert.Equal(t, a.Digest(), b.Digest())

	c, _ := newEngine(t, 0x80000000)
	for i := 0; i < 300; i++ {
		require.NoError(t, c.Step(inputAt(i)))
	}
	assert.NotEqual(t, a.Digest(), c.Digest(), "the seed drives the walk")
}

func TestGroupPoolConservedEveryTick(t *testing.T) {
	e, _ := newEngine(t, 7)
	for i := 0; i < 20; i++ {
		require.NoError(t, e.Step(0))
		require.Equal(t, group.PoolSize, e.Groups.Allocated()+e.Groups.Free(), "tick %d", i)
	}
	assert.True(t, e.Groups.Pending(0), "monster runs after the player and leaves a signal")
}

func TestDeadEntityLeavesEveryIndex(t *testing.T) {
	e, _ := newEngine(t, 7)
	require.NoError(t, e.Step(0))
	e.Groups.Notify(1, 0, 3)
	e.State.Kill(1)

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Step(0))
	}
	for r := 0; r < data.RoomCount; r++ {
		assert.False(t, e.State.InRoomList(1, uint8(r)))
	}
	assert.False(t, e.State.IsActive(1))
	assert.False(t, e.Groups.Pending(1))
	for b := 0; b < e.Grid.Buckets(); b++ {
		assert.NotContains(t, e.Grid.Occupants(b), ecs.Index(1))
	}
	live, ok := e.Entity(1)
	require.True(t, ok)
	assert.True(t, live.Dead())
}

func TestRoomEntryWakesSleepers(t *testing.T) {
	e, _ := newEngine(t, 7)
	require.True(t, e.State.IsActive(2), "spawned in the current room")
	e.State.Deactivate(2)
	require.NoError(t, e.Step(0))
	assert.True(t, e.State.IsActive(2))
}

func TestInputLatch(t *testing.T) {
	e, _ := newEngine(t, 7)
	assert.Equal(t, uint8(0x04), e.latch(InputLeft))
	assert.Equal(t, uint8(0x44), e.latch(InputLeft|InputUp|InputShift), "diagonal keeps the last pure press")
	assert.Equal(t, uint8(0x01), e.latch(InputUp))
	assert.Equal(t, uint8(0x01), e.latch(InputRight|InputDown))
	assert.Equal(t, uint8(0x30), e.latch(InputEnter|InputSpace|InputBackspace), "backspace is not a script key")
}

func TestMapReloadOnFirstTick(t *testing.T) {
	e, bus := newEngine(t, 7)
	reloads := collect[event.MapReload](bus)
	require.True(t, e.State.LoadMap)

	require.NoError(t, e.Step(0))
	deliver(bus)
	assert.False(t, e.State.LoadMap)
	require.Len(t, *reloads, 1)
	assert.Equal(t, uint8(0), (*reloads)[0].Room)
}

func TestMissingMapKillsThePlayer(t *testing.T) {
	lvl := walkLevel("nomap")
	lvl.MapRooms = map[uint8]bool{5: true}
	e, bus := newEngine(t, 7, lvl)
	cuts := collect[event.Cutscene](bus)
	deaths := collect[event.DeathCutscene](bus)

	require.NoError(t, e.Step(0))
	assert.Equal(t, 1, e.State.DeathCounter)
	require.NoError(t, e.Step(0))
	deliver(bus)

	require.NotEmpty(t, *cuts)
	assert.Equal(t, cutsceneNoMap, (*cuts)[0].ID)
	require.Len(t, *deaths, 1)
	assert.False(t, (*deaths)[0].Restored)
	assert.Equal(t, 0, e.State.DeathCounter)
	assert.True(t, e.State.LoadMap, "level restarted")
}

func TestDeathCountdownRunsFirst(t *testing.T) {
	e, bus := newEngine(t, 7)
	deaths := collect[event.DeathCutscene](bus)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Step(0))
	}
	e.State.DeathCounter = 2
	e.State.DeathCutscene = 0x11

	require.NoError(t, e.Step(0))
	assert.Equal(t, 1, e.State.DeathCounter, "ordinary tick while counting down")

	require.NoError(t, e.Step(0))
	deliver(bus)
	require.Len(t, *deaths, 1)
	assert.Equal(t, uint16(0x11), (*deaths)[0].Cutscene)
	p, _ := e.Entity(0)
	assert.Equal(t, int16(128), p.PosX, "back at spawn")
	assert.Equal(t, uint16(0xFFFF), e.State.DeathCutscene)
	assert.Equal(t, uint16(0xFFFF), e.Scratch().TempVar2)
}

func TestDeathResumesFromCheckpoint(t *testing.T) {
	e, bus := newEngine(t, 7)
	saves := collect[event.SaveState](bus)
	deaths := collect[event.DeathCutscene](bus)
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Step(0))
	}
	host{e}.SaveState()
	require.NoError(t, e.Step(0))
	at, _ := e.Entity(0)
	assert.True(t, e.HUD().Checkpoint)

	for i := 0; i < 20; i++ {
		require.NoError(t, e.Step(0))
	}
	tick := e.Tick()
	e.State.DeathCounter = 1
	require.NoError(t, e.Step(0))
	deliver(bus)

	require.Len(t, *saves, 1)
	require.Len(t, *deaths, 1)
	assert.True(t, (*deaths)[0].Restored)
	p, _ := e.Entity(0)
	assert.Equal(t, at.PosX, p.PosX)
	assert.Equal(t, tick+1, e.Tick(), "ticks keep counting across a continue")
}

func TestScriptedLevelChange(t *testing.T) {
	one := walkLevel("one")
	one.Nodes[0] = node(data.Descriptor{Op1: 0x84, Arg1: 2})
	two := walkLevel("two")
	e, bus := newEngine(t, 7, one, two)
	changed := collect[event.LevelChanged](bus)

	require.NoError(t, e.Step(0))
	require.NoError(t, e.Step(0))
	deliver(bus)
	assert.Equal(t, "two", e.Level().Name)
	assert.Equal(t, 1, e.State.CurrentLevel)
	require.Len(t, *changed, 1)
	assert.Equal(t, 1, (*changed)[0].Level)
	assert.Zero(t, e.Scratch().TempVar1)
}

func TestScriptedLevelChangeToMissingLevel(t *testing.T) {
	one := walkLevel("one")
	one.Nodes[0] = node(data.Descriptor{Op1: 0x84, Arg1: 9})
	e, _ := newEngine(t, 7, one)
	require.NoError(t, e.Step(0))
	assert.Error(t, e.Step(0))
}

func TestTextQueuedOnce(t *testing.T) {
	lvl := walkLevel("text")
	lvl.Nodes[0] = node(data.Descriptor{Op1: 0x2E, Op3: 0x7B, Arg3: 12})
	e, bus := newEngine(t, 7, lvl)
	texts := collect[event.Text](bus)

	require.NoError(t, e.Step(0))
	require.NoError(t, e.Step(0))
	deliver(bus)
	require.Len(t, *texts, 1)
	assert.Equal(t, uint16(12), (*texts)[0].ID)
	assert.Equal(t, world.TextNone, e.State.Text)
}

func TestHUD(t *testing.T) {
	e, _ := newEngine(t, 7)
	require.NoError(t, e.Step(0))
	e.State.UpdateInventory(0, 2)
	e.State.Score = 1200

	h := e.HUD()
	assert.Equal(t, uint32(1200), h.Score)
	assert.Equal(t, int16(3), h.Life)
	assert.Equal(t, uint8(0), h.Room)
	assert.Equal(t, uint8(7), h.Item)
	assert.False(t, h.Checkpoint)

	_, ok := e.Entity(200)
	assert.False(t, ok)
	assert.NotEmpty(t, e.AnimationBuffer(1), "player queued in its bucket")
}

func TestSnapshotRestoreReplays(t *testing.T) {
	e, _ := newEngine(t, 0x12345678)
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Step(inputAt(i)))
	}
	snap := e.Snapshot()
	var want [][32]byte
	for i := 50; i < 100; i++ {
		require.NoError(t, e.Step(inputAt(i)))
		want = append(want, e.Digest())
	}

	require.NoError(t, e.Restore(snap))
	assert.Equal(t, snap, e.Snapshot(), "restore is exact")
	assert.Equal(t, uint64(50), e.Tick())
	label, err := SnapshotLabel(snap)
	require.NoError(t, err)
	assert.Equal(t, "walk tick 50", label)
	for i := 50; i < 100; i++ {
		require.NoError(t, e.Step(inputAt(i)))
		require.Equal(t, want[i-50], [32]byte(e.Digest()), "tick %d", i)
	}
}

func TestRestoreRejectsBadData(t *testing.T) {
	e, _ := newEngine(t, 7)
	snap := e.Snapshot()

	err := e.Restore(append([]byte("XXXX"), snap[4:]...))
	assert.True(t, fault.IsCorruption(err))

	err = e.Restore(snap[:len(snap)-3])
	assert.True(t, fault.IsCorruption(err))

	other, _ := newEngine(t, 7, walkLevel("bigger"))
	other.level.Templates = append(other.level.Templates, other.level.Templates[2])
	require.NoError(t, other.Restart())
	err = other.Restore(snap)
	assert.True(t, fault.IsCorruption(err), "template count differs")
}

func TestRestoreRejectsLinkLoops(t *testing.T) {
	cases := []struct {
		name    string
		corrupt func(e *Engine)
	}{
		{"room list links to itself", func(e *Engine) {
			h := e.State.RoomHead(0)
			e.State.Live[h].NextInRoom = h
		}},
		{"entity in two room lists", func(e *Engine) {
			e.State.RoomHeads()[5] = e.State.RoomHead(0)
		}},
		{"group chain loops", func(e *Engine) {
			entries, heads, _ := e.Groups.Raw()
			entries[heads[0]].Next = heads[0]
		}},
		{"group chain runs into the free list", func(e *Engine) {
			entries, heads, free := e.Groups.Raw()
			entries[heads[0]].Next = *free
		}},
		{"inventory loops", func(e *Engine) {
			e.State.Live[0].CurrentInventory = 2
			e.State.Live[2].NextInventory = 2
		}},
		{"record out of place", func(e *Engine) {
			e.State.Live[1].Index = 2
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newEngine(t, 7)
			require.True(t, e.Groups.Notify(0, 1, 9))
			require.NotEqual(t, ecs.None, e.State.RoomHead(0))
			tc.corrupt(e)
			snap := e.Snapshot()

			fresh, _ := newEngine(t, 7)
			done := make(chan error, 1)
			go func() { done <- fresh.Restore(snap) }()
			select {
			case err := <-done:
				assert.True(t, fault.IsCorruption(err), "%v", err)
			case <-time.After(2 * time.Second):
				t.Fatal("restore did not return")
			}
		})
	}
}
