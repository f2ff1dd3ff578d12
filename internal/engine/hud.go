package engine

import (
	"github.com/pgesim/engine/internal/anim"
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/world"
)

// HUD is what the status bar shows after a tick.
type HUD struct {
	Score      uint32
	Life       int16
	Room       uint8
	Level      int
	Blinking   uint8
	Item       uint8 // icon of the player's current inventory item, 0xFF if none
	Colliding  uint8 // icon of the object the player stands on, 0 if none
	Checkpoint bool
}

func (e *Engine) HUD() HUD {
	s := e.State
	h := HUD{
		Score:      s.Score,
		Room:       s.CurrentRoom,
		Level:      s.CurrentLevel,
		Blinking:   s.Blinking,
		Item:       0xFF,
		Checkpoint: e.checkpoint != nil,
	}
	if s.Count == 0 {
		return h
	}
	p := s.Player()
	h.Life = p.Life
	if inv := p.CurrentInventory; inv != world.NoLink && int(inv) < s.Count {
		h.Item = s.Template(ecs.Index(inv)).Icon
	}
	h.Colliding, _ = e.Machine.CollidingObject(0)
	return h
}

// Entity returns a copy of slot idx; false when idx is outside the level.
func (e *Engine) Entity(idx ecs.Index) (world.Live, bool) {
	l := e.State.Entity(idx)
	if l == nil {
		return world.Live{}, false
	}
	return *l, true
}

// AnimationBuffer returns the draw requests of bucket, newest first.
func (e *Engine) AnimationBuffer(bucket int) []anim.Request {
	return e.Buffers.Get(bucket)
}
