package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateCheckSum returns the first 4 bytes of the sha256 of data as an int.
func CalculateCheckSum(data []byte) int {
	result := 0
	bytes := sha256.Sum256(data)

	for i := 0; i < 4; i++ {
		result = result << 8
		result += int(bytes[i])
	}

	return result
}

// ETag returns a strong HTTP entity tag for data.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)

	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
