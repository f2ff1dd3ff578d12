// Package anim advances entity animations and collects the per-frame draw
// requests handed to the renderer.
package anim

import (
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

// Sequencer applies animation frames to live entities.
type Sequencer struct {
	level *data.Level
}

func NewSequencer(lvl *data.Level) *Sequencer {
	return &Sequencer{level: lvl}
}

// SetLevel switches the animation tables after a level change.
func (s *Sequencer) SetLevel(lvl *data.Level) { s.level = lvl }

func (s *Sequencer) table(e *world.Live) (*data.AnimTable, error) {
	a, err := s.level.Anim(e.ObjType)
	if err != nil {
		return nil, fault.Corrupt("anim", "entity %d: %v", e.Index, err)
	}
	return a, nil
}

// Setup shows frame AnimSeq of the entity's current animation and moves the
// entity by the frame delta (dx mirrored when facing left). A sequence past
// the end of the table restarts at 0; empty markers keep the previous sprite.
func (s *Sequencer) Setup(e *world.Live) error {
	a, err := s.table(e)
	if err != nil {
		return err
	}
	if a.Count() < int(e.AnimSeq) {
		e.AnimSeq = 0
	}
	f := a.Frame(int(e.AnimSeq))
	if f.Number == data.FrameEmpty {
		return nil
	}
	if e.FacingLeft() {
		e.PosX -= int16(f.DX)
	} else {
		e.PosX += int16(f.DX)
	}
	e.PosY += int16(f.DY)
	show(e, a, f)
	return nil
}

// SetupDefault shows the current frame without moving the entity. Used after
// spawn and when an opcode swaps the entity's program.
func (s *Sequencer) SetupDefault(e *world.Live) error {
	a, err := s.table(e)
	if err != nil {
		return err
	}
	if a.Count() < int(e.AnimSeq) {
		e.AnimSeq = 0
	}
	f := a.Frame(int(e.AnimSeq))
	if f.Number == data.FrameEmpty {
		return nil
	}
	show(e, a, f)
	return nil
}

func show(e *world.Live, a *data.AnimTable, f data.AnimFrame) {
	n := f.Number
	if e.FacingLeft() {
		n ^= data.FrameFlip
	}
	e.Flags &^= world.FlagFlip | world.FlagBackground
	if n&data.FrameFlip != 0 {
		e.Flags |= world.FlagFlip
	}
	if a.Background {
		e.Flags |= world.FlagBackground
	}
	e.AnimNumber = f.Number &^ data.FrameFlip
}

// FastForward plays the rest of the current animation in one go: every
// non-empty frame from AnimSeq to the end applies its delta, dx mirrored when
// facingLeft. AnimSeq ends on the table's frame count.
func (s *Sequencer) FastForward(e *world.Live, facingLeft bool) error {
	a, err := s.table(e)
	if err != nil {
		return err
	}
	end := uint8(a.Count())
	for seq := e.AnimSeq; end > seq; seq++ {
		f := a.Frame(int(seq))
		if f.Number == data.FrameEmpty {
			continue
		}
		if facingLeft {
			e.PosX -= int16(f.DX)
		} else {
			e.PosX += int16(f.DX)
		}
		e.PosY += int16(f.DY)
	}
	e.AnimSeq = end
	return nil
}
