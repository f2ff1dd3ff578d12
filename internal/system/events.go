package system

import (
	"time"

	"github.com/pgesim/engine/internal/core/event"
	coresys "github.com/pgesim/engine/internal/core/system"
	"github.com/pgesim/engine/internal/scripting"
	"go.uber.org/zap"
)

// EventSystem delivers what the step emitted: to the Lua hooks when scripts
// are loaded, to the log otherwise. Phase 2 (Events).
type EventSystem struct {
	bus *event.Bus
}

// NewEventSystem subscribes the hooks. lua may be nil.
func NewEventSystem(bus *event.Bus, lua *scripting.Engine, log *zap.Logger) *EventSystem {
	event.Subscribe(bus, func(ev event.LevelChanged) {
		log.Info("關卡切換", zap.Uint64("tick", ev.Tick), zap.Int("level", ev.Level))
		if lua != nil {
			lua.OnLevelChange(ev.Tick, ev.Level)
		}
	})
	event.Subscribe(bus, func(ev event.DeathCutscene) {
		log.Info("死亡過場", zap.Uint64("tick", ev.Tick), zap.Uint16("cutscene", ev.Cutscene), zap.Bool("restored", ev.Restored))
		if lua != nil {
			lua.OnDeath(ev.Tick, ev.Cutscene, ev.Restored)
		}
	})
	event.Subscribe(bus, func(ev event.MapReload) {
		log.Debug("map reload", zap.Uint64("tick", ev.Tick), zap.Uint8("room", ev.Room))
	})

	if lua == nil {
		event.Subscribe(bus, func(ev event.Cutscene) {
			log.Info("cutscene", zap.Uint64("tick", ev.Tick), zap.Uint16("id", ev.ID))
		})
		event.Subscribe(bus, func(ev event.Text) {
			log.Info("text", zap.Uint64("tick", ev.Tick), zap.Uint16("id", ev.ID))
		})
		event.Subscribe(bus, func(ev event.Shake) {
			log.Debug("shake", zap.Uint64("tick", ev.Tick), zap.Uint8("offset", ev.Offset))
		})
		return &EventSystem{bus: bus}
	}

	event.Subscribe(bus, func(ev event.Cutscene) { lua.OnCutscene(ev.Tick, ev.ID) })
	event.Subscribe(bus, func(ev event.Text) { lua.OnText(ev.Tick, ev.ID) })
	event.Subscribe(bus, func(ev event.Shake) { lua.OnShake(ev.Tick, ev.Offset) })
	event.Subscribe(bus, func(ev event.Sound) { lua.OnSound(ev.Tick, ev.ID, ev.Attenuation) })
	event.Subscribe(bus, func(ev event.SaveState) { lua.OnSaveState(ev.Tick) })
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
