// Package pcm converts between float32 audio samples and the 16-bit
// little-endian PCM frames the live transport carries, plus the base64
// text encoding used for inline binary on the wire.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
)

// Chunk is an immutable buffer of 16-bit little-endian PCM samples.
type Chunk struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// DurationSamples returns the number of per-channel sample frames in the chunk.
func (c Chunk) DurationSamples() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Data) / 2 / c.Channels
}

// Encode scales float samples in [-1.0, 1.0] to signed 16-bit integers.
// Out-of-range samples are clamped rather than wrapped, so clipped input
// saturates instead of folding over.
func Encode(samples []float32, sampleRate, channels int) Chunk {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}
	return Chunk{Data: data, SampleRate: sampleRate, Channels: channels}
}

// Decode de-interleaves a chunk into one float sequence per channel,
// dividing each 16-bit sample by 32768.
func Decode(data []byte, channels int) [][]float32 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(data) / 2 / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(data[(i*channels+ch)*2:]))
			out[ch][i] = float32(raw) / 32768.0
		}
	}
	return out
}

// EncodeTransport maps raw bytes to the text-safe wire representation.
func EncodeTransport(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeTransport is the inverse of EncodeTransport.
func DecodeTransport(text string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(text)
}
