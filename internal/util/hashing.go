package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashVectors produces a stable digest over the given float sequences.
// Values are formatted with the shortest round-trip representation so the
// digest does not depend on serialization details.
func HashVectors(vecs ...[]float64) [32]byte {
	buffer := GetBuffer()
	defer PutBuffer(buffer)
	for _, vec := range vecs {
		for i := range vec {
			if i > 0 {
				buffer.WriteByte(',')
			}
			buffer.WriteString(strconv.FormatFloat(vec[i], 'g', 16, 64))
		}
		buffer.WriteByte('|')
	}
	return sha256.Sum256(buffer.Bytes())
}

// ETag renders a digest prefix as a quoted entity tag.
func ETag(sum [32]byte) string {
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}
