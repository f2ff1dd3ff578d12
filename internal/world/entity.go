package world

import (
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/data"
)

// Room sentinels. Valid rooms are 0..63; any value with bit 7 set is off-map.
const (
	RoomNone uint8 = 0xFF // not placed (carried in an inventory)
	RoomDead uint8 = 0xFE // killed; fully inert
)

// NoLink terminates byte-sized links (inventory chains, owner, collision slot).
const NoLink uint8 = 0xFF

// Live flag bits.
const (
	FlagFacingLeft    uint8 = 0x01
	FlagFlip          uint8 = 0x02 // current sprite drawn mirrored
	FlagActive        uint8 = 0x04
	FlagBackground    uint8 = 0x08 // frames index background/overlay graphics
	FlagForeground    uint8 = 0x10
	FlagColourMask    uint8 = 0x60
	FlagWakeOnCollide uint8 = 0x80
)

// ValidRoom reports whether r addresses one of the 64 rooms.
func ValidRoom(r uint8) bool { return r < data.RoomCount }

// Live is the runtime state of one entity slot.
type Live struct {
	Index            ecs.Index
	ObjType          uint16
	PosX             int16
	PosY             int16
	AnimSeq          uint8
	Room             uint8
	Life             int16
	CounterValue     int16
	CollisionSlot    uint8 // first bucket of the entity this frame, NoLink if unplaced
	NextInventory    uint8 // next item in the owner's chain
	CurrentInventory uint8 // head of this entity's own item chain
	Owner            uint8 // entity carrying this one
	AnimNumber       uint16
	Flags            uint8
	FirstObj         uint16 // descriptor index where the current obj_type starts
	NextInRoom       ecs.Index
}

func (e *Live) FacingLeft() bool { return e.Flags&FlagFacingLeft != 0 }
func (e *Live) Active() bool     { return e.Flags&FlagActive != 0 }
func (e *Live) Dead() bool       { return e.Room == RoomDead }

// reset clears the slot to its pre-spawn state.
func (e *Live) reset(idx ecs.Index, tpl *data.Template) {
	*e = Live{
		Index:            idx,
		ObjType:          tpl.Type,
		PosX:             tpl.PosX,
		PosY:             tpl.PosY,
		Room:             tpl.InitRoom,
		Life:             tpl.Life,
		CollisionSlot:    NoLink,
		NextInventory:    NoLink,
		CurrentInventory: NoLink,
		Owner:            NoLink,
		NextInRoom:       ecs.None,
	}
}
