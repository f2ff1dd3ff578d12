package system

import (
	"errors"
	"time"

	coresys "github.com/pgesim/engine/internal/core/system"
	"github.com/pgesim/engine/internal/engine"
	"github.com/pgesim/engine/internal/scripting"
)

// ErrInputDone stops the loop once the input source runs dry.
var ErrInputDone = errors.New("input exhausted")

// InputSource yields the raw input of a tick. ok is false when there is no more.
type InputSource interface {
	Next(tick uint64) (in engine.Input, ok bool)
}

// DemoSource replays a recorded key-mask file, one byte per tick. It is
// indexed by tick, so a rewound run picks the recording up where it lands.
type DemoSource struct {
	masks []uint8
}

func NewDemoSource(masks []uint8) *DemoSource {
	return &DemoSource{masks: masks}
}

func (d *DemoSource) Next(tick uint64) (engine.Input, bool) {
	if tick == 0 || tick > uint64(len(d.masks)) {
		return 0, false
	}
	return engine.Input(d.masks[tick-1]), true
}

// LuaSource asks the input_mask script function.
type LuaSource struct {
	Lua *scripting.Engine
}

func (l LuaSource) Next(tick uint64) (engine.Input, bool) {
	m, ok := l.Lua.InputMask(tick)
	return engine.Input(m), ok
}

// IdleSource presses nothing, forever.
type IdleSource struct{}

func (IdleSource) Next(uint64) (engine.Input, bool) { return 0, true }

// InputSystem picks the input of the coming tick. Phase 0 (Input).
type InputSystem struct {
	src InputSource
	eng *engine.Engine
	cur engine.Input
	err error
}

func NewInputSystem(src InputSource, eng *engine.Engine) *InputSystem {
	return &InputSystem{src: src, eng: eng}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	in, ok := s.src.Next(s.eng.Tick() + 1)
	if !ok {
		s.err = ErrInputDone
		return
	}
	s.cur = in
}

func (s *InputSystem) Err() error { return s.err }

// Current returns the input chosen for the coming tick.
func (s *InputSystem) Current() engine.Input { return s.cur }
