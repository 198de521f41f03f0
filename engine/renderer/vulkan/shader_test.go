package vulkan

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirvHeader(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestSpirvWords(t *testing.T) {
	code := spirvHeader(spirvMagic, 0x00010000, 0, 8, 0)
	words, err := SpirvWords(code)
	require.NoError(t, err)
	assert.Len(t, words, 5)
	assert.Equal(t, spirvMagic, words[0])
	assert.Equal(t, uint32(8), words[3])
}

func TestSpirvWordsRejectsBadInput(t *testing.T) {
	_, err := SpirvWords(nil)
	assert.Error(t, err)

	_, err = SpirvWords([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = SpirvWords(spirvHeader(0xdeadbeef, 0))
	assert.Error(t, err)
}
