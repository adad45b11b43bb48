package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCheckSum(t *testing.T) {
	// sha256("") starts with e3 b0 c4 42
	assert.Equal(t, 0xe3b0c442, CalculateCheckSum(nil))
	assert.Equal(t, CalculateCheckSum([]byte("png")), CalculateCheckSum([]byte("png")))
	assert.NotEqual(t, CalculateCheckSum([]byte("png")), CalculateCheckSum([]byte("gif")))
}

func TestETag(t *testing.T) {
	tag := ETag([]byte("image"))

	assert.Len(t, tag, 34)
	assert.Equal(t, byte('"'), tag[0])
	assert.Equal(t, tag, ETag([]byte("image")))
	assert.NotEqual(t, tag, ETag([]byte("other")))
}
