package engine

import "go.uber.org/zap"

// Audio receives every sound the scripts request. attenuation is 0 in the
// current room and 1 next door.
type Audio interface {
	PlaySound(id, attenuation uint8)
}

// Sound ids above the sample bank that still mean something to the mixer.
const (
	soundMusicStop  uint8 = 66
	soundMusicFirst uint8 = 68
	soundMusicLast  uint8 = 75
	soundMusicTrack uint8 = 77
)

// KnownSound reports whether the mixer can play id given soundCount samples.
func KnownSound(id uint8, soundCount int) bool {
	switch {
	case int(id) < soundCount:
		return true
	case id == soundMusicStop, id == soundMusicTrack:
		return true
	case id >= soundMusicFirst && id <= soundMusicLast:
		return true
	}
	return false
}

// LogAudio is the headless sink: it only logs, warning on ids nothing could play.
type LogAudio struct {
	log        *zap.Logger
	soundCount int
	Played     int
}

func NewLogAudio(log *zap.Logger, soundCount int) *LogAudio {
	return &LogAudio{log: log, soundCount: soundCount}
}

func (a *LogAudio) PlaySound(id, attenuation uint8) {
	a.Played++
	if !KnownSound(id, a.soundCount) {
		a.log.Warn("未知音效", zap.Uint8("sound", id), zap.Int("samples", a.soundCount))
		return
	}
	a.log.Debug("play sound", zap.Uint8("sound", id), zap.Uint8("attenuation", attenuation))
}
