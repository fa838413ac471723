package live

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePCM16(t *testing.T) {
	res := EncodePCM16([]float32{0, 1, -1}, StreamSampleRate)
	require.Equal(t, 6, len(res))
	assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(res[0:])))
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(res[2:])))
	assert.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(res[4:])))
}

func TestEncodePCM16_Clamps(t *testing.T) {
	res := EncodePCM16([]float32{2, -2}, StreamSampleRate)
	require.Equal(t, 4, len(res))
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(res[0:])))
	assert.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(res[2:])))
}

func TestEncodePCM16_Resamples(t *testing.T) {
	samples := make([]float32, 320)
	res := EncodePCM16(samples, 32000)
	assert.Equal(t, 320, len(res)) // 160 samples * 2 bytes
}

func TestEncodePCM16_Empty(t *testing.T) {
	assert.Nil(t, EncodePCM16(nil, StreamSampleRate))
}
