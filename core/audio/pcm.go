package audio

import "encoding/binary"

// Int16Samples decodes little-endian linear16 bytes. A trailing odd byte is
// ignored.
func Int16Samples(frame []byte) []int16 {
	samples := make([]int16, len(frame)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}
	return samples
}

// Int16Bytes is the inverse of Int16Samples.
func Int16Bytes(samples []int16) []byte {
	frame := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
	}
	return frame
}
