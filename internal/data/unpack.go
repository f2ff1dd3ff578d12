package data

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadCRC is returned when a packed resource fails its checksum.
var ErrBadCRC = errors.New("packed data: bad crc")

// bitReader walks a bytekiller stream backwards, one 32-bit word at a time.
type bitReader struct {
	src  []byte
	off  int // offset of the next word to load
	bits uint32
	crc  uint32
	err  error
}

func (r *bitReader) word() uint32 {
	if r.off < 0 {
		if r.err == nil {
			r.err = errors.New("packed data: stream ends early")
		}
		return 0
	}
	w := binary.BigEndian.Uint32(r.src[r.off:])
	r.off -= 4
	return w
}

func (r *bitReader) bit() uint32 {
	b := r.bits & 1
	r.bits >>= 1
	if r.bits == 0 {
		w := r.word()
		r.crc ^= w
		b = w & 1
		r.bits = 1<<31 | w>>1
	}
	return b
}

func (r *bitReader) read(n int) int {
	v := 0
	for i := 0; i < n; i++ {
		v = v<<1 | int(r.bit())
	}
	return v
}

// Unpack expands a bytekiller-packed resource such as a level's .CT file.
// The stream is read from its end: unpacked size, checksum, first bit word,
// then the body. Output is produced back to front.
func Unpack(src []byte, maxSize int) ([]byte, error) {
	if len(src) < 12 || len(src)%4 != 0 {
		return nil, fmt.Errorf("packed data: bad length %d", len(src))
	}
	r := &bitReader{src: src, off: len(src) - 4}
	size := int(r.word())
	if size > maxSize {
		return nil, fmt.Errorf("packed data: unpacks to %d bytes, room for %d", size, maxSize)
	}
	r.crc = r.word()
	r.bits = r.word()
	r.crc ^= r.bits

	dst := make([]byte, size)
	pos := size - 1 // next byte to write
	left := size

	literal := func(n int) {
		if n > left {
			n = left
		}
		left -= n
		for i := 0; i < n; i++ {
			dst[pos-i] = byte(r.read(8))
		}
		pos -= n
	}
	reference := func(n, offset int) {
		if n > left {
			n = left
		}
		if pos+offset >= size {
			r.err = fmt.Errorf("packed data: reference %d past the end at %d", offset, pos)
			left = 0
			return
		}
		left -= n
		for i := 0; i < n; i++ {
			dst[pos-i] = dst[pos-i+offset]
		}
		pos -= n
	}

	for left > 0 && r.err == nil {
		if r.bit() == 0 {
			if r.bit() == 0 {
				literal(r.read(3) + 1)
			} else {
				reference(2, r.read(8))
			}
			continue
		}
		switch r.read(2) {
		case 3:
			literal(r.read(8) + 9)
		case 2:
			n := r.read(8) + 1
			reference(n, r.read(12))
		case 1:
			reference(4, r.read(10))
		case 0:
			reference(3, r.read(9))
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.crc != 0 {
		return nil, ErrBadCRC
	}
	return dst, nil
}
