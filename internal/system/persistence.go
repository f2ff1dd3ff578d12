package system

import (
	"context"
	"fmt"
	"time"

	"github.com/pgesim/engine/internal/config"
	"github.com/pgesim/engine/internal/core/event"
	coresys "github.com/pgesim/engine/internal/core/system"
	"github.com/pgesim/engine/internal/engine"
	"github.com/pgesim/engine/internal/persist"
	"github.com/pgesim/engine/internal/savestate"
	"go.uber.org/zap"
)

// SlotStore keeps save slots; persist.SnapshotRepo in production.
type SlotStore interface {
	Save(ctx context.Context, row *persist.SlotRow) error
}

// JournalStore keeps the input journal; persist.JournalRepo in production.
type JournalStore interface {
	Append(ctx context.Context, runID int64, entries []persist.JournalEntry) error
	Truncate(ctx context.Context, runID int64, after uint64) error
}

// PersistenceSystem journals every tick's input, keeps the rewind ring, and
// writes save slots. Phase 3 (Persist). The stores may be nil when the run
// has no database; the ring still works.
type PersistenceSystem struct {
	eng     *engine.Engine
	step    *StepSystem
	slots   SlotStore
	journal JournalStore
	runID   int64
	rewind  config.RewindConfig
	cfg     config.PersistConfig
	log     *zap.Logger

	ring      *Rewind
	pending   []persist.JournalEntry
	journaled uint64 // last tick put into pending
	ingame    *persist.SlotRow
	rewindTo  int // frames back from the newest, -1 when nothing is asked
}

func NewPersistenceSystem(
	eng *engine.Engine,
	step *StepSystem,
	bus *event.Bus,
	slots SlotStore,
	journal JournalStore,
	runID int64,
	rewind config.RewindConfig,
	cfg config.PersistConfig,
	log *zap.Logger,
) *PersistenceSystem {
	s := &PersistenceSystem{
		eng:       eng,
		step:      step,
		slots:     slots,
		journal:   journal,
		runID:     runID,
		rewind:    rewind,
		cfg:       cfg,
		log:       log,
		ring:      NewRewind(rewind.Capacity),
		journaled: eng.Tick(),
		rewindTo:  -1,
	}
	event.Subscribe(bus, func(ev event.SaveState) {
		s.ingame = &persist.SlotRow{
			RunID:  s.runID,
			Slot:   persist.SlotIngame,
			Tick:   ev.Tick,
			Digest: savestate.Sum(ev.Snapshot).String(),
			Data:   ev.Snapshot,
		}
	})
	event.Subscribe(bus, func(ev event.LevelChanged) {
		s.ring.Clear()
	})
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	tick := s.eng.Tick()
	var entry *persist.JournalEntry
	if tick > s.journaled {
		s.pending = append(s.pending, persist.JournalEntry{Tick: tick, Mask: uint8(s.step.Last())})
		entry = &s.pending[len(s.pending)-1]
		s.journaled = tick
	}

	if s.ingame != nil {
		s.saveSlot(s.ingame)
		s.ingame = nil
	}
	if s.cfg.AutosaveTicks > 0 && tick%s.cfg.AutosaveTicks == 0 && s.alive() {
		data := s.eng.Snapshot()
		s.saveSlot(&persist.SlotRow{
			RunID:  s.runID,
			Slot:   persist.SlotAutosave,
			Tick:   tick,
			Digest: savestate.Sum(data).String(),
			Data:   data,
		})
	}

	if s.rewindTo >= 0 {
		n := s.rewindTo
		s.rewindTo = -1
		if err := s.Rewind(n); err != nil {
			s.log.Error("回溯失敗", zap.Int("back", n), zap.Error(err))
		}
		return
	}

	if s.rewind.IntervalTicks > 0 && tick%s.rewind.IntervalTicks == 0 {
		data := s.eng.Snapshot()
		d := savestate.Sum(data)
		if entry != nil {
			entry.Digest = d.String()
		}
		if s.rewind.Enabled && s.alive() {
			s.ring.Push(Frame{Tick: tick, Data: data, Digest: d, Checkpoint: s.eng.Checkpoint()})
		}
	}

	if s.cfg.JournalFlushTicks > 0 && uint64(len(s.pending)) >= s.cfg.JournalFlushTicks {
		s.Flush()
	}
}

// alive reports whether an autosave would capture a playable state.
func (s *PersistenceSystem) alive() bool {
	st := s.eng.State
	return st.Count > 0 && st.Player().Life > 0 && st.DeathCounter == 0
}

func (s *PersistenceSystem) saveSlot(row *persist.SlotRow) {
	if s.slots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.slots.Save(ctx, row); err != nil {
		s.log.Error("存檔失敗", zap.Int16("slot", row.Slot), zap.Uint64("tick", row.Tick), zap.Error(err))
		return
	}
	s.log.Debug("存檔完成", zap.Int16("slot", row.Slot), zap.Uint64("tick", row.Tick))
}

// Flush writes the pending journal batch. Called for graceful shutdown too.
func (s *PersistenceSystem) Flush() {
	if len(s.pending) == 0 {
		return
	}
	if s.journal == nil {
		s.pending = s.pending[:0]
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Append(ctx, s.runID, s.pending); err != nil {
		// keep the batch; the next flush retries it
		s.log.Error("輸入紀錄寫入失敗", zap.Int("entries", len(s.pending)), zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}

// RequestRewind asks for a rewind of n frames back from the newest, carried
// out at the end of the current tick.
func (s *PersistenceSystem) RequestRewind(n int) {
	s.rewindTo = n
}

// Rewind restores the frame n back from the newest, together with its death
// checkpoint, and forgets every frame and journal entry recorded after it.
func (s *PersistenceSystem) Rewind(n int) error {
	f, ok := s.ring.Back(n)
	if !ok {
		return fmt.Errorf("rewind %d back: ring holds %d frames", n, s.ring.Len())
	}
	if err := s.eng.Restore(f.Data); err != nil {
		return err
	}
	s.eng.SetCheckpoint(f.Checkpoint)
	s.ring.Truncate(n)

	kept := s.pending[:0]
	for _, e := range s.pending {
		if e.Tick <= f.Tick {
			kept = append(kept, e)
		}
	}
	s.pending = kept
	s.journaled = f.Tick
	if s.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.journal.Truncate(ctx, s.runID, f.Tick); err != nil {
			return err
		}
	}
	s.log.Info("回溯完成", zap.Uint64("tick", f.Tick), zap.String("digest", f.Digest.String()))
	return nil
}

// Frames returns the rewind ring.
func (s *PersistenceSystem) Frames() *Rewind { return s.ring }
