package scene

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// contentHash derives a stable hex fingerprint from a storage handle.
// sha256 keeps the fingerprint space collision-free for any realistic
// document size; the value is only ever compared for equality.
func contentHash(handle uint64) string {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], handle)
	sum := sha256.Sum256(tmp[:])
	return hex.EncodeToString(sum[:])
}
