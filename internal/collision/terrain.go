package collision

import (
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

// PatchPoolSize bounds the terrain patches alive in one level.
const PatchPoolSize = 255

// MaxPatchSpan is the widest run a single patch can save.
const MaxPatchSpan = 15

// Patch remembers the original cells under a run written by a terrain opcode.
type Patch struct {
	Origin int // index into the flat collision table
	Saved  []int8
}

func patchOrigin(e *world.Live, dy, span int, facingLeft bool) int {
	row := (int(e.PosY)/36)&^1 + dy
	col := (int(e.PosX) + 8) >> 4
	o := data.CTGrid + int(e.Room)*data.RoomCells + row*data.RoomCols + col
	if facingLeft {
		o -= span - 1
	}
	return o
}

// SetTerrain writes value over span cells at row dy of e's cell (extending
// left when facing left). The first write at an origin saves the original
// cells; rewriting the same origin keeps the first save. When the pool is
// full the write is dropped.
func (g *Grid) SetTerrain(e *world.Live, span int, facingLeft bool, dy int, value int8) error {
	if !world.ValidRoom(e.Room) || span <= 0 {
		return nil
	}
	if span > MaxPatchSpan {
		return fault.Corrupt("terrain", "entity %d: span %d exceeds %d", e.Index, span, MaxPatchSpan)
	}
	origin := patchOrigin(e, dy, span, facingLeft)
	if origin < data.CTGrid || origin+span > len(g.ct) {
		return fault.Corrupt("terrain", "entity %d: run %d+%d outside the grid", e.Index, origin, span)
	}
	run := g.ct[origin : origin+span]

	for i := len(g.patches) - 1; i >= 0; i-- {
		if g.patches[i].Origin == origin {
			g.patches[i].Saved = resize(g.patches[i].Saved, run)
			fill(run, value)
			return nil
		}
	}
	if len(g.patches) >= PatchPoolSize {
		return nil
	}
	g.patches = append(g.patches, Patch{Origin: origin, Saved: append([]int8(nil), run...)})
	fill(run, value)
	return nil
}

// resize keeps the saved cells of a re-patched origin but follows the new
// run length; cells beyond the first save are taken from the current grid.
func resize(saved, run []int8) []int8 {
	if len(saved) >= len(run) {
		return saved[:len(run)]
	}
	return append(saved, run[len(saved):]...)
}

func fill(run []int8, v int8) {
	for i := range run {
		run[i] = v
	}
}

// RestoreTerrain puts back the cells saved by the patch at row dy of e's
// cell. Missing patches are ignored.
func (g *Grid) RestoreTerrain(e *world.Live, dy int) {
	if !world.ValidRoom(e.Room) {
		return
	}
	origin := patchOrigin(e, dy, 1, false)
	for i := len(g.patches) - 1; i >= 0; i-- {
		if g.patches[i].Origin == origin {
			copy(g.ct[origin:], g.patches[i].Saved)
			return
		}
	}
}

// Patches returns the live patches, oldest first.
func (g *Grid) Patches() []Patch { return g.patches }

// SetTerrainState replaces the collision table and patch list after a restore.
func (g *Grid) SetTerrainState(cells []int8, patches []Patch) error {
	if len(cells) != len(g.ct) {
		return fault.Corrupt("restore terrain", "%d cells, want %d", len(cells), len(g.ct))
	}
	if len(patches) > PatchPoolSize {
		return fault.Corrupt("restore terrain", "%d patches exceeds %d", len(patches), PatchPoolSize)
	}
	copy(g.ct, cells)
	g.patches = append(g.patches[:0], patches...)
	return nil
}
