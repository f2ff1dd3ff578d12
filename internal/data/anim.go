package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FrameEmpty marks an animation step that keeps the previous sprite.
const FrameEmpty uint16 = 0xFFFF

// FrameFlip is set in a frame number when the sprite is drawn mirrored.
const FrameFlip uint16 = 0x8000

// AnimFrame is one step of an animation: sprite number plus a position delta.
type AnimFrame struct {
	Number uint16 `yaml:"n"`
	DX     int8   `yaml:"dx"`
	DY     int8   `yaml:"dy"`
}

// AnimTable is the frame table of one obj_type.
type AnimTable struct {
	Type       uint16      `yaml:"type"`
	Sound      uint8       `yaml:"sound"`      // 1-based sfx id, 0 = silent
	Kind       uint8       `yaml:"kind"`       // compared by the ZOrderByAnimY opcodes
	Background bool        `yaml:"background"` // frames index background/overlay graphics
	Frames     []AnimFrame `yaml:"frames"`
}

// Count is the frame count stored in the table header.
func (a *AnimTable) Count() int { return len(a.Frames) }

// Frame returns step seq. Steps past the table read as empty markers.
func (a *AnimTable) Frame(seq int) AnimFrame {
	if seq < 0 || seq >= len(a.Frames) {
		return AnimFrame{Number: FrameEmpty}
	}
	return a.Frames[seq]
}

type animListFile struct {
	Anims []AnimTable `yaml:"anims"`
}

// LoadAnims loads animation tables indexed by obj_type.
func LoadAnims(path string) ([]*AnimTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read anims %s: %w", path, err)
	}
	var f animListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse anims %s: %w", path, err)
	}
	maxType := -1
	for i := range f.Anims {
		if int(f.Anims[i].Type) > maxType {
			maxType = int(f.Anims[i].Type)
		}
	}
	out := make([]*AnimTable, maxType+1)
	for i := range f.Anims {
		a := &f.Anims[i]
		if out[a.Type] != nil {
			return nil, fmt.Errorf("anim type %d defined twice", a.Type)
		}
		out[a.Type] = a
	}
	return out, nil
}

// SpriteMetrics gives the draw offset and size of one sprite number.
type SpriteMetrics struct {
	Number  uint16 `yaml:"n"`
	OffsetX int8   `yaml:"dx"`
	OffsetY int8   `yaml:"dy"`
	Width   uint8  `yaml:"w"`
	Height  uint8  `yaml:"h"`
}

type spriteListFile struct {
	Sprites []SpriteMetrics `yaml:"sprites"`
}

// LoadSprites loads optional sprite metrics. A missing file yields an empty table.
func LoadSprites(path string) (map[uint16]SpriteMetrics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[uint16]SpriteMetrics{}, nil
		}
		return nil, fmt.Errorf("read sprites %s: %w", path, err)
	}
	var f spriteListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sprites %s: %w", path, err)
	}
	out := make(map[uint16]SpriteMetrics, len(f.Sprites))
	for _, s := range f.Sprites {
		out[s.Number] = s
	}
	return out, nil
}
