package live

import "encoding/binary"

// StreamSampleRate is the PCM rate the live endpoint expects
const StreamSampleRate = 16000

// EncodePCM16 converts float32 samples at srcRate to 16 kHz
// little-endian signed 16-bit PCM
func EncodePCM16(samples []float32, srcRate int) []byte {
	if len(samples) == 0 {
		return nil
	}
	if srcRate <= 0 {
		srcRate = StreamSampleRate
	}
	out := samples
	if srcRate != StreamSampleRate {
		out = resample(samples, srcRate, StreamSampleRate)
	}
	res := make([]byte, len(out)*2)
	for i, s := range out {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(res[i*2:], uint16(int16(s*32767)))
	}
	return res
}

// resample picks the nearest source sample for each target position.
// Good enough for speech input, no filtering applied
func resample(samples []float32, from, to int) []float32 {
	n := len(samples) * to / from
	if n == 0 {
		n = 1
	}
	res := make([]float32, n)
	for i := range res {
		j := i * from / to
		if j >= len(samples) {
			j = len(samples) - 1
		}
		res[i] = samples[j]
	}
	return res
}
