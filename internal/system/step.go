package system

import (
	"time"

	coresys "github.com/pgesim/engine/internal/core/system"
	"github.com/pgesim/engine/internal/engine"
	"go.uber.org/zap"
)

// StepSystem advances the engine by one tick. Phase 1 (Step).
// Any step error is fatal to the run.
type StepSystem struct {
	eng   *engine.Engine
	input *InputSystem
	log   *zap.Logger

	last engine.Input
	err  error
}

func NewStepSystem(eng *engine.Engine, input *InputSystem, log *zap.Logger) *StepSystem {
	return &StepSystem{eng: eng, input: input, log: log}
}

func (s *StepSystem) Phase() coresys.Phase { return coresys.PhaseStep }

func (s *StepSystem) Update(_ time.Duration) {
	if s.err != nil {
		return
	}
	s.last = s.input.Current()
	if err := s.eng.Step(s.last); err != nil {
		s.err = err
		s.log.Error("模擬步進失敗", zap.Uint64("tick", s.eng.Tick()), zap.Error(err))
	}
}

func (s *StepSystem) Err() error { return s.err }

// Last returns the input of the most recent step.
func (s *StepSystem) Last() engine.Input { return s.last }
