package data

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packed(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestUnpack(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"short literal and 4-byte references": {
			src:  "20290142dc545098fc7d51da0000000c",
			want: "PGE!PGE!PGE!",
		},
		"long literal and every reference form": {
			src:  "c0ac0081a8086462666165636760e4e40000010769a5e46300000014",
			want: "67567897890123456789",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := Unpack(packed(t, tc.src), 64)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
		})
	}
}

func TestUnpackRejects(t *testing.T) {
	src := packed(t, "20290142dc545098fc7d51da0000000c")

	_, err := Unpack(src, 8)
	assert.ErrorContains(t, err, "room for 8")

	bad := append([]byte(nil), src...)
	bad[len(bad)-5] ^= 1 // checksum word
	_, err = Unpack(bad, 64)
	assert.ErrorIs(t, err, ErrBadCRC)

	_, err = Unpack(src[:10], 64)
	assert.Error(t, err)

	_, err = Unpack(src[4:], 64)
	assert.Error(t, err, "body cut short")
}
