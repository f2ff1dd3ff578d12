package system

import (
	"errors"
	"fmt"

	"github.com/pgesim/engine/internal/engine"
	"github.com/pgesim/engine/internal/persist"
)

// ErrDigestMismatch means a replayed tick did not land on the recorded state.
var ErrDigestMismatch = errors.New("digest mismatch")

// Replay feeds a journal into a freshly built engine and compares every
// recorded digest. It returns how many digests matched.
func Replay(eng *engine.Engine, entries []persist.JournalEntry) (int, error) {
	checked := 0
	for _, e := range entries {
		if e.Tick != eng.Tick()+1 {
			return checked, fmt.Errorf("journal jumps from tick %d to %d", eng.Tick(), e.Tick)
		}
		if err := eng.Step(engine.Input(e.Mask)); err != nil {
			return checked, err
		}
		if e.Digest == "" {
			continue
		}
		if got := eng.Digest().String(); got != e.Digest {
			return checked, fmt.Errorf("tick %d: got %s, recorded %s: %w", e.Tick, got, e.Digest, ErrDigestMismatch)
		}
		checked++
	}
	return checked, nil
}
