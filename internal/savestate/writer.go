// Package savestate encodes simulation snapshots: a little-endian field
// stream behind a four-byte format tag and a DOS code page label.
package savestate

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"
)

// Writer builds a snapshot. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 16*1024)}
}

// NewWriterWithTag starts a snapshot with its format tag.
func NewWriterWithTag(tag string) *Writer {
	w := NewWriter()
	w.WriteBytes([]byte(tag))
	return w
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteBool writes 1 byte, 0 or 1.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteC(1)
		return
	}
	w.WriteC(0)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteD writes 4 bytes little-endian (signed or unsigned via cast).
func (w *Writer) WriteD(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteQ writes 8 bytes little-endian.
func (w *Writer) WriteQ(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteS writes a length-prefixed label in code page 437. Characters the
// code page lacks become '?'.
func (w *Writer) WriteS(s string) {
	enc, err := charmap.CodePage437.NewEncoder().Bytes([]byte(s))
	if err != nil {
		enc = make([]byte, 0, len(s))
		for _, r := range s {
			if b, ok := charmap.CodePage437.EncodeRune(r); ok {
				enc = append(enc, b)
			} else {
				enc = append(enc, '?')
			}
		}
	}
	if len(enc) > 0xFF {
		enc = enc[:0xFF]
	}
	w.WriteC(byte(len(enc)))
	w.buf = append(w.buf, enc...)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the encoded snapshot.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
