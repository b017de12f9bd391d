package audio

import "encoding/binary"

// PCMBytesToInts decodes little-endian 16-bit mono PCM into the int
// samples the WAV encoder wants. A trailing odd byte is dropped.
func PCMBytesToInts(pcm []byte) []int {
	samples := make([]int, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return samples
}
