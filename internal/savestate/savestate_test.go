package savestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRoundTrip(t *testing.T) {
	w := NewWriterWithTag("PGS1")
	w.WriteC(0xAB)
	w.WriteBool(true)
	w.WriteH(0xBEEF)
	w.WriteD(-2)
	w.WriteQ(1 << 40)
	w.WriteS("Conrad ÇÉ")

	r := NewReader(w.Bytes())
	require.NoError(t, r.ExpectTag("PGS1"))
	assert.Equal(t, byte(0xAB), r.ReadC())
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint16(0xBEEF), r.ReadH())
	assert.Equal(t, int32(-2), r.ReadD())
	assert.Equal(t, uint64(1<<40), r.ReadQ())
	assert.Equal(t, "Conrad ÇÉ", r.ReadS())
	assert.Zero(t, r.Remaining())
	assert.NoError(t, r.Err())
}

func TestLabelIsSingleByte(t *testing.T) {
	w := NewWriter()
	w.WriteS("é")
	assert.Equal(t, []byte{1, 0x82}, w.Bytes())

	w = NewWriter()
	w.WriteS("日")
	assert.Equal(t, []byte{1, '?'}, w.Bytes())
}

func TestTruncatedReadLatches(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	assert.Equal(t, uint16(0x0201), r.ReadH())
	assert.Zero(t, r.ReadDU())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
	assert.Zero(t, r.ReadC(), "reader stays at end")
}

func TestWrongTag(t *testing.T) {
	r := NewReader([]byte("XXXX"))
	assert.Error(t, r.ExpectTag("PGS1"))
}

func TestDigest(t *testing.T) {
	a := Sum([]byte("tick"))
	assert.Equal(t, a, Sum([]byte("tick")))
	assert.NotEqual(t, a, Sum([]byte("tock")))

	d, err := ParseDigest(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, d)
	_, err = ParseDigest("abcd")
	assert.Error(t, err)
}
