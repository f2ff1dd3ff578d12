package system

import "github.com/pgesim/engine/internal/savestate"

// Frame is one rewind point.
type Frame struct {
	Tick       uint64
	Data       []byte
	Digest     savestate.Digest
	Checkpoint []byte // death checkpoint in force when the frame was taken
}

// Rewind keeps the newest frames in a fixed ring.
type Rewind struct {
	frames []Frame
	head   int // next write
	n      int
}

func NewRewind(capacity int) *Rewind {
	if capacity < 1 {
		capacity = 1
	}
	return &Rewind{frames: make([]Frame, capacity)}
}

func (r *Rewind) Push(f Frame) {
	r.frames[r.head] = f
	r.head = (r.head + 1) % len(r.frames)
	if r.n < len(r.frames) {
		r.n++
	}
}

func (r *Rewind) Len() int { return r.n }

// Back returns the frame n steps behind the newest one (0 is the newest).
func (r *Rewind) Back(n int) (Frame, bool) {
	if n < 0 || n >= r.n {
		return Frame{}, false
	}
	i := (r.head - 1 - n + 2*len(r.frames)) % len(r.frames)
	return r.frames[i], true
}

// Truncate forgets the n newest frames.
func (r *Rewind) Truncate(n int) {
	if n > r.n {
		n = r.n
	}
	for ; n > 0; n-- {
		r.head = (r.head - 1 + len(r.frames)) % len(r.frames)
		r.frames[r.head] = Frame{}
		r.n--
	}
}

func (r *Rewind) Clear() {
	for i := range r.frames {
		r.frames[i] = Frame{}
	}
	r.head, r.n = 0, 0
}
