package engine

import "github.com/pgesim/engine/internal/vm"

// Input is one tick of player input: direction bits in the low nibble, then
// the action keys.
type Input uint8

const (
	InputUp        Input = 0x01
	InputDown      Input = 0x02
	InputLeft      Input = 0x04
	InputRight     Input = 0x08
	InputEnter     Input = 0x10
	InputSpace     Input = 0x20
	InputShift     Input = 0x40
	InputBackspace Input = 0x80 // inventory menu; never reaches the scripts

	inputDirs    = InputUp | InputDown | InputLeft | InputRight
	inputActions = InputEnter | InputSpace | InputShift
)

// latch turns raw input into the key mask the scripts see. A diagonal keeps
// the last pure direction instead, so scripts never observe two axes at once.
func (e *Engine) latch(in Input) uint8 {
	dirs := uint8(in & inputDirs)
	var mask uint8
	if dirs&(vm.KeyLeft|vm.KeyRight) != 0 && dirs&(vm.KeyUp|vm.KeyDown) != 0 {
		mask = e.lastLR & vm.KeyDirs
	} else {
		mask = dirs
		e.lastLR = dirs
	}
	return mask | uint8(in&inputActions)
}
