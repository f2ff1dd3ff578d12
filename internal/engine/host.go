package engine

import "github.com/pgesim/engine/internal/core/event"

// host carries script side effects out of the interpreter.
type host struct{ e *Engine }

func (h host) PlaySound(num, softVol uint8) {
	h.e.audio.PlaySound(num, softVol)
	emit(h.e, event.Sound{Tick: h.e.tick, ID: num, Attenuation: softVol})
}

func (h host) Cutscene(id uint16) {
	emit(h.e, event.Cutscene{Tick: h.e.tick, ID: id})
}

// SaveState defers the checkpoint to the end of the tick so it captures a
// consistent frame.
func (h host) SaveState() { h.e.saveWanted = true }

func (h host) Shake(offset uint8) {
	emit(h.e, event.Shake{Tick: h.e.tick, Offset: offset})
}

func (h host) Random() uint16 { return h.e.Rand.Next() }
