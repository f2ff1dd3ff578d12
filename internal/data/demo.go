package data

import (
	"fmt"
	"os"
)

// LoadDemo reads a recorded input file: one key-mask byte per tick
// (bits 0-3 direction, 0x10 enter, 0x20 space, 0x40 shift, 0x80 backspace).
func LoadDemo(path string) ([]uint8, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demo %s: %w", path, err)
	}
	return raw, nil
}
