package savestate

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length of a snapshot fingerprint in bytes.
const DigestSize = 32

// Digest fingerprints a snapshot. Two runs fed the same input produce equal
// digests tick for tick.
type Digest [DigestSize]byte

func Sum(snapshot []byte) Digest {
	return blake2b.Sum256(snapshot)
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// ParseDigest decodes the hex form written to journals and save slots.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(raw) != DigestSize {
		return d, hex.ErrLength
	}
	copy(d[:], raw)
	return d, nil
}
