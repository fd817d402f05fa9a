package pcm

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	samples := make([]float32, 256)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * float64(i) / 64.0))
	}

	chunk := Encode(samples, 16000, 1)
	if got, want := len(chunk.Data), len(samples)*2; got != want {
		t.Fatalf("encoded %d bytes, want %d", got, want)
	}
	if chunk.DurationSamples() != len(samples) {
		t.Fatalf("duration=%d samples, want %d", chunk.DurationSamples(), len(samples))
	}

	decoded := Decode(chunk.Data, 1)
	if len(decoded) != 1 {
		t.Fatalf("decoded %d channels, want 1", len(decoded))
	}
	const quantum = 1.0 / 32768.0
	for i, want := range samples {
		got := decoded[0][i]
		if diff := math.Abs(float64(got - want)); diff > quantum {
			t.Fatalf("sample %d: got %f, want %f (diff %f > %f)", i, got, want, diff, quantum)
		}
	}
}

func TestEncode_ClampsOutOfRange(t *testing.T) {
	chunk := Encode([]float32{1.5, -1.5, 1.0, -1.0}, 16000, 1)
	decoded := Decode(chunk.Data, 1)[0]

	if decoded[0] < 0.99 {
		t.Fatalf("over-range sample decoded to %f, want saturation near 1.0", decoded[0])
	}
	if decoded[1] > -0.99 {
		t.Fatalf("under-range sample decoded to %f, want saturation near -1.0", decoded[1])
	}
	if decoded[3] != -1.0 {
		t.Fatalf("-1.0 decoded to %f, want exactly -1.0", decoded[3])
	}
}

func TestDecode_DeinterleavesChannels(t *testing.T) {
	// Interleave two known channels by hand: L=16384 (0.5), R=-16384 (-0.5).
	data := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x40, 0x00, 0xC0}
	decoded := Decode(data, 2)
	if len(decoded) != 2 {
		t.Fatalf("decoded %d channels, want 2", len(decoded))
	}
	for i := range decoded[0] {
		if decoded[0][i] != 0.5 {
			t.Fatalf("left[%d]=%f, want 0.5", i, decoded[0][i])
		}
		if decoded[1][i] != -0.5 {
			t.Fatalf("right[%d]=%f, want -0.5", i, decoded[1][i])
		}
	}
}

func TestTransportEncoding_RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		{0xFF, 0x00, 0x7F, 0x80},
		bytes.Repeat([]byte{0xAB, 0xCD}, 1000),
	}
	for _, in := range cases {
		out, err := DecodeTransport(EncodeTransport(in))
		if err != nil {
			t.Fatalf("decode transport: %v", err)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(in))
		}
	}
}

func TestDecodeTransport_RejectsInvalidText(t *testing.T) {
	if _, err := DecodeTransport("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64 input")
	}
}
