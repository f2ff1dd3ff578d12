package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: pick this tick's key mask
	PhaseStep                 // 1: advance the simulation
	PhaseEvents               // 2: dispatch what the step emitted
	PhasePersist              // 3: rewind ring, autosave, journal flush
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseStep:
		return "step"
	case PhaseEvents:
		return "events"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is the interface every loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Failer is a System that can stop the loop. Err is checked after Update.
type Failer interface {
	Err() error
}
