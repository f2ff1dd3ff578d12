// Package engine drives the simulation one tick at a time: input latch,
// collision rebuild, the entity sweep, and the bookkeeping that follows it.
package engine

import (
	"fmt"

	"github.com/pgesim/engine/internal/anim"
	"github.com/pgesim/engine/internal/collision"
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/event"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/group"
	"github.com/pgesim/engine/internal/vm"
	"github.com/pgesim/engine/internal/world"
	"go.uber.org/zap"
)

// LevelSource loads the resources of level n.
type LevelSource func(n int) (*data.Level, error)

// cutsceneNoMap plays when the player ends up in a room without a map.
const cutsceneNoMap uint16 = 6

// Options are the run parameters fixed at construction.
type Options struct {
	Level             int
	Skill             uint8
	Seed              uint32
	AbortOnRoomChange bool // stop the sweep once the player changes room or level
}

// Engine owns every piece of simulation state. Not safe for concurrent use.
type Engine struct {
	levels LevelSource
	level  *data.Level
	opts   Options

	State   *world.State
	Grid    *collision.Grid
	Groups  *group.Table
	Seq     *anim.Sequencer
	Buffers *anim.Buffers
	Machine *vm.Machine
	Rand    LFSR

	audio Audio
	bus   *event.Bus
	log   *zap.Logger

	tick       uint64
	scratch    vm.Scratch
	lastLR     uint8 // last pure left/right mask, reused for diagonals
	checkpoint []byte
	saveWanted bool
}

// New loads opts.Level and spawns it. bus may be nil when nobody listens.
func New(levels LevelSource, opts Options, audio Audio, bus *event.Bus, log *zap.Logger) (*Engine, error) {
	lvl, err := levels(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("load level %d: %w", opts.Level, err)
	}
	e := &Engine{
		levels:  levels,
		opts:    opts,
		State:   world.NewState(),
		Grid:    collision.NewGrid(),
		Groups:  group.NewTable(),
		Seq:     anim.NewSequencer(lvl),
		Buffers: anim.NewBuffers(),
		Rand:    LFSR{Seed: opts.Seed},
		audio:   audio,
		bus:     bus,
		log:     log,
	}
	if e.audio == nil {
		e.audio = NewLogAudio(log, lvl.SoundCount)
	}
	e.State.Registry.Register(e.Grid)
	e.State.Registry.Register(e.Groups)
	e.State.CurrentLevel = opts.Level
	e.Machine = vm.NewMachine(e.State, e.Grid, e.Groups, e.Seq, host{e}, vm.DefaultRegistry(log), log)

	if err := e.load(lvl); err != nil {
		return nil, err
	}
	e.resetGameState()
	log.Info("關卡載入完成",
		zap.String("level", lvl.Name),
		zap.Int("entities", e.State.Count),
		zap.Uint8("room", e.State.CurrentRoom),
		zap.Uint8("skill", opts.Skill))
	return e, nil
}

// Tick returns the number of completed steps.
func (e *Engine) Tick() uint64 { return e.tick }

// Level returns the loaded level resources.
func (e *Engine) Level() *data.Level { return e.level }

// load spawns lvl from its templates and drops every piece of per-level state.
func (e *Engine) load(lvl *data.Level) error {
	e.level = lvl
	s := e.State
	if err := s.Spawn(lvl, e.opts.Skill); err != nil {
		return fmt.Errorf("spawn %s: %w", lvl.Name, err)
	}
	e.Grid.Load(lvl)
	e.Seq.SetLevel(lvl)
	e.Groups.Reset()
	e.Buffers.Reset()
	for i := 0; i < s.Count; i++ {
		if !s.Eligible(ecs.Index(i)) {
			continue
		}
		if err := e.Seq.SetupDefault(&s.Live[i]); err != nil {
			return err
		}
	}
	e.checkpoint = nil
	return nil
}

// resetGameState puts the level-wide counters back to their start values.
func (e *Engine) resetGameState() {
	s := e.State
	e.Buffers.Reset()
	if s.Count > 0 {
		s.CurrentRoom = e.level.Templates[0].InitRoom
	}
	s.DeathCutscene = 0xFFFF
	s.DeathCounter = 0
	s.LoadMap = true
	s.Blinking = 0
	s.Text = world.TextNone
	e.Groups.Reset()
	e.scratch = vm.Scratch{TempVar2: 0xFFFF}
}

// Restart reloads the current level from its templates.
func (e *Engine) Restart() error {
	if err := e.load(e.level); err != nil {
		return err
	}
	e.resetGameState()
	return nil
}

// Step runs one tick with the given input.
func (e *Engine) Step(in Input) error {
	e.tick++
	s := e.State

	if s.DeathCounter > 0 {
		s.DeathCounter--
		if s.DeathCounter == 0 {
			return e.continueAfterDeath()
		}
	}

	e.Machine.Input = e.latch(in)
	if err := e.prepare(); err != nil {
		return fmt.Errorf("tick %d: %w", e.tick, err)
	}
	e.Grid.PrepareRoom(s.CurrentRoom)

	if err := e.sweep(); err != nil {
		return fmt.Errorf("tick %d: %w", e.tick, err)
	}

	if s.CurrentLevel != e.opts.Level {
		if err := e.changeLevel(s.CurrentLevel); err != nil {
			return fmt.Errorf("tick %d: %w", e.tick, err)
		}
		e.scratch.TempVar1 = 0
		return nil
	}

	if s.LoadMap {
		player := s.Player()
		if !world.ValidRoom(s.CurrentRoom) || !e.level.HasRoomMap(player.Room) {
			emit(e, event.Cutscene{Tick: e.tick, ID: cutsceneNoMap})
			s.DeathCounter = 1
		} else {
			s.CurrentRoom = player.Room
			s.LoadMap = false
			emit(e, event.MapReload{Tick: e.tick, Room: s.CurrentRoom})
		}
	}

	e.Buffers.Reset()
	e.Buffers.Prepare(s)

	if s.Text != world.TextNone {
		emit(e, event.Text{Tick: e.tick, ID: s.Text})
		s.Text = world.TextNone
	}
	if s.Blinking != 0 {
		s.Blinking--
	}
	if e.saveWanted {
		e.saveWanted = false
		e.checkpoint = e.Snapshot()
		emit(e, event.SaveState{Tick: e.tick, Snapshot: e.checkpoint})
	}
	return nil
}

// prepare rebuilds this tick's occupancy: residents of the current room
// first (waking room-entry sleepers), then active entities elsewhere.
func (e *Engine) prepare() error {
	s := e.State
	e.Grid.Reset()
	var err error
	s.EachInRoom(s.CurrentRoom, func(l *world.Live) {
		if err != nil {
			return
		}
		err = e.Grid.Place(s, l.Index)
		if !l.Active() && s.Template(l.Index).Flags&data.TplWakeInRoom != 0 {
			s.Activate(l.Index)
		}
	})
	if err != nil {
		return err
	}
	for i := 0; i < s.Count; i++ {
		idx := ecs.Index(i)
		if s.IsActive(idx) && s.Live[i].Room != s.CurrentRoom {
			if err := e.Grid.Place(s, idx); err != nil {
				return err
			}
		}
	}
	return nil
}

// sweep runs every active entity once, in slot order.
func (e *Engine) sweep() error {
	s := e.State
	m := e.Machine
	m.Scratch = e.scratch
	defer func() { e.scratch = m.Scratch }()

	room, level := s.Player().Room, s.CurrentLevel
	for i := 0; i < s.Count; i++ {
		idx := ecs.Index(i)
		if !s.IsActive(idx) {
			continue
		}
		if err := m.Process(idx); err != nil {
			return err
		}
		if e.opts.AbortOnRoomChange && (s.Player().Room != room || s.CurrentLevel != level) {
			e.log.Debug("sweep cut short",
				zap.Uint64("tick", e.tick),
				zap.Int("entity", i),
				zap.Uint8("room", s.Player().Room),
				zap.Int("level", s.CurrentLevel))
			break
		}
	}
	return nil
}

// changeLevel swaps in level n. Counters survive; the map is shown at once.
func (e *Engine) changeLevel(n int) error {
	lvl, err := e.levels(n)
	if err != nil {
		return fmt.Errorf("change to level %d: %w", n, err)
	}
	e.opts.Level = n
	e.State.CurrentLevel = n
	if err := e.load(lvl); err != nil {
		return err
	}
	e.State.LoadMap = false
	e.log.Info("切換關卡", zap.Int("level", n), zap.String("name", lvl.Name))
	emit(e, event.LevelChanged{Tick: e.tick, Level: n})
	emit(e, event.MapReload{Tick: e.tick, Room: e.State.CurrentRoom})
	return nil
}

// continueAfterDeath plays the queued death cutscene and resumes from the
// script checkpoint, or from the level start when there is none.
func (e *Engine) continueAfterDeath() error {
	cut := e.State.DeathCutscene
	restored := false
	if cp := e.checkpoint; cp != nil {
		tick := e.tick
		if err := e.Restore(cp); err != nil {
			return fmt.Errorf("continue from checkpoint: %w", err)
		}
		e.tick, e.checkpoint = tick, cp
		restored = true
	} else if err := e.Restart(); err != nil {
		return fmt.Errorf("restart level: %w", err)
	}
	e.log.Info("玩家死亡", zap.Uint64("tick", e.tick), zap.Uint16("cutscene", cut), zap.Bool("checkpoint", restored))
	emit(e, event.DeathCutscene{Tick: e.tick, Cutscene: cut, Restored: restored})
	return nil
}

// emit queues ev on the bus, if there is one.
func emit[T any](e *Engine, ev T) {
	if e.bus != nil {
		event.Emit(e.bus, ev)
	}
}

// Scratch returns the interpreter state carried between ticks.
func (e *Engine) Scratch() vm.Scratch { return e.scratch }

// Checkpoint returns the snapshot a death resumes from, nil if none.
func (e *Engine) Checkpoint() []byte { return e.checkpoint }

// SetCheckpoint replaces the death checkpoint; rewinding restores it together
// with the state it belongs to.
func (e *Engine) SetCheckpoint(cp []byte) { e.checkpoint = cp }
