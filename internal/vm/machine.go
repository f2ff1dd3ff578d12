// Package vm runs the per-entity behavior scripts: each tick an active
// entity scans the descriptors of its current obj_type and fires the first
// one whose opcodes all hold.
package vm

import (
	"github.com/pgesim/engine/internal/anim"
	"github.com/pgesim/engine/internal/collision"
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/group"
	"github.com/pgesim/engine/internal/world"
	"go.uber.org/zap"
)

// Host receives the side effects scripts request from outside the core.
type Host interface {
	PlaySound(num, softVol uint8)
	Cutscene(id uint16)
	SaveState()
	Shake(offset uint8)
	Random() uint16
}

// Scratch is interpreter state that survives between passes and ticks.
type Scratch struct {
	CompareVar1 uint16
	CompareVar2 uint16
	TempVar1    uint16
	TempVar2    uint16
	ProcessOBJ  bool // player lost life; check for a hit reaction
}

// TickContext describes the entity currently being processed.
type TickContext struct {
	Index         ecs.Index
	Entity        *world.Live
	FacingLeft    bool  // facing at pass start
	PassRoom      uint8 // room at pass start
	Cell          collision.Cell
	PlayAnimSound bool
}

// Machine executes entity passes against the shared simulation state.
type Machine struct {
	State  *world.State
	Grid   *collision.Grid
	Groups *group.Table
	Anim   *anim.Sequencer
	Host   Host

	Scratch Scratch
	Input   uint8 // latched key mask of this tick

	ops *Registry
	log *zap.Logger
	ctx TickContext
	err error
}

func NewMachine(s *world.State, g *collision.Grid, groups *group.Table, seq *anim.Sequencer, host Host, ops *Registry, log *zap.Logger) *Machine {
	return &Machine{
		State:  s,
		Grid:   g,
		Groups: groups,
		Anim:   seq,
		Host:   host,
		ops:    ops,
		log:    log,
	}
}

// Context returns the context of the last pass.
func (m *Machine) Context() TickContext { return m.ctx }

// fail records the first fatal error of the pass. Opcodes return 0 after
// calling it so the descriptor halts.
func (m *Machine) fail(err error) uint16 {
	if m.err == nil {
		m.err = err
	}
	return 0
}

// Process runs one pass of entity idx.
func (m *Machine) Process(idx ecs.Index) error {
	s := m.State
	e := m.enter(idx)

	if m.Groups.Pending(idx) {
		if err := m.fastForward(e); err != nil {
			return err
		}
	}

	a, err := m.anim(e)
	if err != nil {
		return err
	}
	if a.Count() <= int(e.AnimSeq) {
		node, err := s.Node(idx)
		if err != nil {
			return err
		}
		for i := int(e.FirstObj); ; i++ {
			d := node.At(i)
			if d == nil || d.Type != e.ObjType {
				m.Groups.ReleaseAll(idx)
				return nil
			}
			fired := m.execute(d)
			if m.err != nil {
				return m.err
			}
			if !fired {
				continue
			}
			a, err := m.anim(e)
			if err != nil {
				return err
			}
			if a.Sound != 0 {
				m.playAnimSound(e, a.Sound)
			}
			m.crossRooms(e)
			break
		}
	}

	if err := m.Anim.Setup(e); err != nil {
		return err
	}
	e.AnimSeq++
	m.Groups.ReleaseAll(idx)
	return nil
}

// enter starts the pass of idx.
func (m *Machine) enter(idx ecs.Index) *world.Live {
	e := &m.State.Live[idx]
	m.err = nil
	m.ctx = TickContext{
		Index:         idx,
		Entity:        e,
		FacingLeft:    e.FacingLeft(),
		PassRoom:      e.Room,
		Cell:          collision.CellOf(e),
		PlayAnimSound: true,
	}
	return e
}

func (m *Machine) anim(e *world.Live) (*data.AnimTable, error) {
	a, err := m.State.Level.Anim(e.ObjType)
	if err != nil {
		return nil, fault.Corrupt("process", "entity %d: %v", e.Index, err)
	}
	return a, nil
}

func (m *Machine) call(op uint8, a, b int16) uint16 {
	if m.err != nil {
		return 0
	}
	r, err := m.ops.Dispatch(m, op, Args{A: a, B: b})
	if err != nil {
		return m.fail(err)
	}
	return r
}

// execute runs the opcodes of d and applies its effects when the first two
// hold. Reports whether the descriptor fired.
func (m *Machine) execute(d *data.Descriptor) bool {
	if d.Op1 != 0 && m.call(d.Op1, d.Arg1, 0)&0xFF == 0 {
		return false
	}
	if d.Op2 != 0 && m.call(d.Op2, d.Arg2, d.Arg1)&0xFF == 0 {
		return false
	}
	if d.Op3 != 0 {
		m.call(d.Op3, d.Arg3, 0)
	}
	if m.err != nil {
		return false
	}

	s := m.State
	e := m.ctx.Entity
	tpl := s.Template(e.Index)
	e.ObjType = d.NextType
	e.FirstObj = d.NextIndex
	e.AnimSeq = 0
	if d.Flags&0xF0 != 0 {
		s.Score += uint32(s.Level.ScoreTable[d.Flags>>4])
	}
	if d.Flags&data.DescToggleFacing != 0 {
		e.Flags ^= world.FlagFacingLeft
	}
	if d.Flags&data.DescLoseLife != 0 {
		e.Life--
		switch tpl.ObjectType {
		case data.ObjectPlayer:
			m.Scratch.ProcessOBJ = true
		case data.ObjectMonster:
			s.Score += 100
		}
	}
	if d.Flags&data.DescGainLife != 0 {
		e.Life++
	}
	if d.Flags&data.DescKill != 0 {
		e.Life = -1
	}
	if e.FacingLeft() {
		e.PosX -= int16(d.DX)
	} else {
		e.PosX += int16(d.DX)
	}
	e.PosY += int16(d.DY)

	if m.Scratch.ProcessOBJ && tpl.ObjectType == data.ObjectPlayer {
		if m.reactsToHit(e) {
			s.Blinking = 60
			m.Scratch.ProcessOBJ = false
		}
	}
	return true
}

// reactsToHit reports whether the entity's new program listens for a hit
// signal (group tags 1..4).
func (m *Machine) reactsToHit(e *world.Live) bool {
	node, err := m.State.Node(e.Index)
	if err != nil {
		m.fail(err)
		return false
	}
	for i := int(e.FirstObj); i < int(node.LastObj); i++ {
		d := node.At(i)
		if d == nil || d.Type != e.ObjType {
			break
		}
		if d.Op2 == opIsInGroupSlice || (d.Op2 == opIsInGroup && d.Arg2 <= 4) {
			return true
		}
		if d.Op1 == opIsInGroupSlice || (d.Op1 == opIsInGroup && d.Arg1 <= 4) {
			return true
		}
	}
	return false
}

// crossRooms moves an entity that walked off its room into the neighbor and
// brings the room lists in line. The player drags the view along.
func (m *Machine) crossRooms(e *world.Live) {
	s := m.State
	dir := data.Direction(-1)
	switch {
	case e.PosX < 0:
		e.PosX += data.RoomW
		dir = data.DirLeft
	case e.PosX > data.RoomW-1:
		e.PosX -= data.RoomW
		dir = data.DirRight
	case e.PosY < 0:
		e.PosY += data.RoomH
		dir = data.DirUp
	case e.PosY > data.RoomH-1:
		e.PosY -= data.RoomH
		dir = data.DirDown
	}
	if dir >= 0 {
		if world.ValidRoom(e.Room) {
			e.Room = uint8(m.Grid.Neighbor(e.Room, dir))
		}
		if s.Template(e.Index).ObjectType == data.ObjectPlayer {
			s.CurrentRoom = e.Room
			m.Grid.PrepareRoom(s.CurrentRoom)
			s.LoadMap = true
			m.wakeAround(s.CurrentRoom)
		}
	}
	s.Relocate(e.Index)
}

// wakeAround activates the room-entry sleepers of room and the near edges of
// the rooms above and below it.
func (m *Machine) wakeAround(room uint8) {
	s := m.State
	if !world.ValidRoom(room) {
		return
	}
	wake := func(cond func(e *world.Live, tpl *data.Template) bool) func(e *world.Live) {
		return func(e *world.Live) {
			tpl := s.Template(e.Index)
			if tpl.Flags&data.TplWakeInRoom != 0 && cond(e, tpl) {
				s.Activate(e.Index)
			}
		}
	}
	s.EachInRoom(room, wake(func(*world.Live, *data.Template) bool { return true }))
	if up := m.Grid.Neighbor(room, data.DirUp); up >= 0 {
		s.EachInRoom(uint8(up), wake(func(e *world.Live, tpl *data.Template) bool {
			return tpl.ObjectType != data.ObjectMonster && e.PosY >= 48
		}))
	}
	if down := m.Grid.Neighbor(room, data.DirDown); down >= 0 {
		s.EachInRoom(uint8(down), wake(func(e *world.Live, tpl *data.Template) bool {
			return tpl.ObjectType != data.ObjectMonster && e.PosY >= 176
		}))
	}
}

// playAnimSound plays the 1-based sound of an animation, quieter when the
// entity is in a room next to the current one.
func (m *Machine) playAnimSound(e *world.Live, snd uint8) {
	if !e.Active() || !m.ctx.PlayAnimSound {
		return
	}
	id := snd - 1
	cur := m.State.CurrentRoom
	if e.Room == cur {
		m.Host.PlaySound(id, 0)
		return
	}
	for _, d := range []data.Direction{data.DirDown, data.DirUp, data.DirRight, data.DirLeft} {
		if n := m.Grid.Neighbor(cur, d); n >= 0 && uint8(n) == e.Room {
			m.Host.PlaySound(id, 1)
			return
		}
	}
}

// fastForward finishes the running animation at once when the entity's
// program reacts to one of its pending signals, so the reaction fires this
// tick.
func (m *Machine) fastForward(e *world.Live) error {
	node, err := m.State.Node(e.Index)
	if err != nil {
		return err
	}
	for i := int(e.FirstObj); i < int(node.LastObj); i++ {
		d := node.At(i)
		if d == nil || d.Type != e.ObjType {
			return nil
		}
		hit := false
		m.Groups.Chain(e.Index, func(g group.Entry) bool {
			hit = listens(d.Op2, d.Arg2, g.Tag, true) || listens(d.Op1, d.Arg1, g.Tag, true)
			return !hit
		})
		if hit {
			if err := m.Anim.FastForward(e, m.ctx.FacingLeft); err != nil {
				return err
			}
			m.ctx.Cell = collision.CellOf(e)
			return nil
		}
	}
	return nil
}

// listens reports whether opcode op with argument arg matches signal tag:
// group slices cover tags 1|2 (arg 0) and 3|4 (arg 1), isInGroup matches the
// exact tag. withCopy also accepts the signal-forwarding opcode.
func listens(op uint8, arg int16, tag uint16, withCopy bool) bool {
	if op == opIsInGroupSlice {
		switch arg {
		case 0:
			return tag == 1 || tag == 2
		case 1:
			return tag == 3 || tag == 4
		}
		return false
	}
	if tag != uint16(arg) {
		return false
	}
	return op == opIsInGroup || (withCopy && op == opForwardGroup)
}

// updateGroup sends signal tag from src to target. Sleeping targets only
// accept it when their template wakes on signals; hit tags (1..4) need both
// in the same room and never reach a blinking player.
func (m *Machine) updateGroup(src, target ecs.Index, tag uint16) {
	s := m.State
	t := &s.Live[target]
	if t.Dead() {
		return
	}
	if !t.Active() {
		if s.Template(target).Flags&data.TplWakeOnGroup == 0 {
			return
		}
		s.Activate(target)
	}
	if tag <= 4 {
		if t.Room != s.Live[src].Room {
			return
		}
		if target == 0 && s.Blinking != 0 {
			return
		}
	}
	if !m.Groups.Notify(target, src, tag) {
		m.log.Debug("group pool exhausted",
			zap.Int("source", src.Int()),
			zap.Int("target", target.Int()),
			zap.Uint16("tag", tag),
		)
	}
}

// self is the entity of the running pass.
func (m *Machine) self() *world.Live { return m.ctx.Entity }

func (m *Machine) tpl() *data.Template { return m.State.Template(m.ctx.Index) }

// counter reads template counter n of the running entity.
func (m *Machine) counter(n int) int16 {
	if n < 0 || n > 3 {
		m.fail(fault.Corrupt("opcode", "entity %d: counter %d out of range", m.ctx.Index, n))
		return 0
	}
	return m.tpl().Counters[n]
}

// entity resolves a script-supplied entity index.
func (m *Machine) entity(n int) *world.Live {
	if n < 0 || n >= m.State.Count {
		m.fail(fault.Corrupt("opcode", "entity %d: index %d out of range", m.ctx.Index, n))
		return nil
	}
	return &m.State.Live[n]
}

// grid reads the collision cell dy rows and dx columns from the pass cell,
// dx mirrored by the pass facing.
func (m *Machine) grid(dy, dx int) int16 {
	c := m.ctx.Cell
	c.Room = m.ctx.Entity.Room
	return m.Grid.Query(c, m.ctx.FacingLeft, dy, dx)
}

func boolRes(ok bool, v uint16) uint16 {
	if ok {
		return v
	}
	return 0
}
