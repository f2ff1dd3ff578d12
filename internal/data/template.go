package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Object types with engine-side meaning.
const (
	ObjectPlayer  uint8 = 1
	ObjectPickup  uint8 = 3
	ObjectMonster uint8 = 10
	ObjectOverlay uint8 = 11
)

// Template flag bits (Template.Flags).
const (
	TplWakeOnGroup   uint8 = 0x01 // inactive target of a group notify gets activated
	TplWakeOnCollide uint8 = 0x02 // live flag 0x80: activated when a bucket is shared
	TplWakeInRoom    uint8 = 0x04 // activated whenever its room becomes current
)

// Template is the static spawn record of one entity slot. Immutable after load.
type Template struct {
	Type          uint16   `yaml:"type"` // initial obj_type
	PosX          int16    `yaml:"pos_x"`
	PosY          int16    `yaml:"pos_y"`
	ObjNode       uint16   `yaml:"obj_node"` // object-node id
	Life          int16    `yaml:"life"`
	Counters      [4]int16 `yaml:"counters"` // scripted parameters, often entity indices
	ObjectType    uint8    `yaml:"object_type"`
	InitRoom      uint8    `yaml:"init_room"`
	RoomLocation  uint8    `yaml:"room_location"` // non-zero: active from spawn
	InitFlags     uint8    `yaml:"init_flags"`    // bits 0-1 colour group, bit 3 foreground
	CollidingIcon uint8    `yaml:"colliding_icon"`
	Icon          uint8    `yaml:"icon"`
	ObjectID      uint8    `yaml:"object_id"`
	Skill         uint8    `yaml:"skill"` // minimum skill level for the entity to exist
	MirrorX       uint8    `yaml:"mirror_x"`
	Flags         uint8    `yaml:"flags"`
	Span          uint8    `yaml:"span"` // consecutive 16px grid cells occupied
	TextNum       uint16   `yaml:"text"`
}

type templateListFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates loads the entity templates of a level from a YAML file.
func LoadTemplates(path string) ([]Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	var f templateListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	if len(f.Templates) > MaxTemplates {
		return nil, fmt.Errorf("templates %s: %d entries exceeds capacity %d", path, len(f.Templates), MaxTemplates)
	}
	return f.Templates, nil
}
