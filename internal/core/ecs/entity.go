package ecs

// Index identifies a live entity by its template slot. Slots are assigned once
// per level load and never reused, so the index is the identity: no generation
// counter is needed.
type Index uint16

// None terminates index-linked lists (room chains, bucket chains).
const None Index = 0xFFFF

// Capacity is the fixed size of the template and live entity arrays.
const Capacity = 256

func (i Index) Valid() bool { return i < Capacity }

// Int returns the index as an int for array access.
func (i Index) Int() int { return int(i) }
