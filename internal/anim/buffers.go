package anim

import (
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

// Draw buckets.
const (
	BucketDefault    = 0
	BucketPlayer     = 1
	BucketForeground = 2
	BucketOverlay    = 3
	BucketCount      = 4
)

// RingSize is the capacity of one bucket; older requests are overwritten.
const RingSize = 256

// cursorEmpty is the cursor of a bucket with nothing queued.
const cursorEmpty = 0xFF

// DrawOrder is the order the renderer composes the buckets in.
var DrawOrder = [BucketCount]int{BucketForeground, BucketPlayer, BucketDefault, BucketOverlay}

// Request is one queued sprite draw.
type Request struct {
	X, Y       int16
	W, H       uint8
	Sprite     uint16 // AnimNumber at queue time
	Background bool   // Sprite indexes background graphics
	Entity     ecs.Index
}

// Buffers are the four draw rings of one frame.
type Buffers struct {
	rings  [BucketCount][RingSize]Request
	cursor [BucketCount]uint8
}

func NewBuffers() *Buffers {
	b := &Buffers{}
	b.Reset()
	return b
}

// Reset drains every bucket.
func (b *Buffers) Reset() {
	for i := range b.cursor {
		b.cursor[i] = cursorEmpty
	}
}

func (b *Buffers) add(bucket int, r Request) {
	b.cursor[bucket]++ // 0xFF wraps to slot 0
	b.rings[bucket][b.cursor[bucket]] = r
}

// Get returns the queued requests of bucket, newest first.
func (b *Buffers) Get(bucket int) []Request {
	if bucket < 0 || bucket >= BucketCount || b.cursor[bucket] == cursorEmpty {
		return nil
	}
	n := int(b.cursor[bucket]) + 1
	out := make([]Request, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, b.rings[bucket][i])
	}
	return out
}

// Prepare queues the residents of the current room and the visible edges of
// its four neighbors.
func (b *Buffers) Prepare(s *world.State) {
	room := s.CurrentRoom
	if !world.ValidRoom(room) {
		return
	}
	conn := &s.Level.Connectivity
	s.EachInRoom(room, func(e *world.Live) { b.queue(s, e, 0, 0) })

	if up := conn.Neighbor(int(room), data.DirUp); up >= 0 {
		s.EachInRoom(uint8(up), func(e *world.Live) {
			monster := s.Template(e.Index).ObjectType == data.ObjectMonster
			if (!monster && e.PosY > 176) || (monster && e.PosY > 216) {
				b.queue(s, e, 0, -data.RoomH)
			}
		})
	}
	if down := conn.Neighbor(int(room), data.DirDown); down >= 0 {
		s.EachInRoom(uint8(down), func(e *world.Live) {
			if e.PosY < 48 {
				b.queue(s, e, 0, data.RoomH)
			}
		})
	}
	if left := conn.Neighbor(int(room), data.DirLeft); left >= 0 {
		s.EachInRoom(uint8(left), func(e *world.Live) {
			if e.PosX > 224 {
				b.queue(s, e, -data.RoomW, 0)
			}
		})
	}
	if right := conn.Neighbor(int(room), data.DirRight); right >= 0 {
		s.EachInRoom(uint8(right), func(e *world.Live) {
			if e.PosX <= 32 {
				b.queue(s, e, data.RoomW, 0)
			}
		})
	}
}

func (b *Buffers) queue(s *world.State, e *world.Live, dx, dy int) {
	if e.Flags&world.FlagBackground != 0 {
		bucket := BucketDefault
		switch {
		case s.Template(e.Index).ObjectType == data.ObjectOverlay:
			bucket = BucketOverlay
		case e.Flags&world.FlagForeground != 0:
			bucket = BucketForeground
		}
		b.add(bucket, Request{
			X:          int16(dx + int(e.PosX) + 8),
			Y:          int16(dy + int(e.PosY) + 2),
			Sprite:     e.AnimNumber,
			Background: true,
			Entity:     e.Index,
		})
		return
	}

	spr := s.Level.Sprite(e.AnimNumber)
	dw, dh := int(spr.OffsetX), int(spr.OffsetY)
	y := dy + int(e.PosY) - dh + 2
	x := dx + int(e.PosX) - dw
	if e.Flags&world.FlagFlip != 0 {
		w := int(spr.Width)
		if w&0x40 != 0 {
			w = int(spr.Height)
		} else {
			w &= 0x3F
		}
		x = dw + dx + int(e.PosX) - w
	}
	if x <= -32 || x >= 256 || y < -48 || y >= 224 {
		return
	}
	x += 8

	bucket := BucketDefault
	switch {
	case e.Index == 0:
		bucket = BucketPlayer
	case e.Flags&world.FlagForeground != 0:
		bucket = BucketForeground
	}
	b.add(bucket, Request{
		X:      int16(x),
		Y:      int16(y),
		W:      spr.Width,
		H:      spr.Height,
		Sprite: e.AnimNumber,
		Entity: e.Index,
	})
}
