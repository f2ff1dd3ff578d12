package event

// Simulation events. The engine emits them during Step; they are readable
// after the next SwapBuffers.

// LevelChanged follows a script-requested level switch; the new level is
// already loaded.
type LevelChanged struct {
	Tick  uint64
	Level int
}

// MapReload asks the presentation side to redraw the background of Room.
type MapReload struct {
	Tick uint64
	Room uint8
}

// DeathCutscene is played when the death countdown runs out. The engine has
// already continued from the last checkpoint or restarted the level.
type DeathCutscene struct {
	Tick     uint64
	Cutscene uint16
	Restored bool // continued from a checkpoint rather than a restart
}

type Cutscene struct {
	Tick uint64
	ID   uint16
}

// Text carries a text id queued by a script for display.
type Text struct {
	Tick uint64
	ID   uint16
}

// SaveState is emitted after a script checkpoint has been captured.
type SaveState struct {
	Tick     uint64
	Snapshot []byte
}

type Shake struct {
	Tick   uint64
	Offset uint8
}

type Sound struct {
	Tick        uint64
	ID          uint8
	Attenuation uint8
}
