package protocol

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// TestRapid_EncodeDecodeRoundTrip: for any payload P that fits the
// accumulator, decode(encode(P)) yields P with no residual.
func TestRapid_EncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		delim := rapid.SampledFrom([]byte{DelimHostToRadio, DelimRadioToHost}).Draw(t, "delim")
		payload := rapid.SliceOfN(rapid.Byte(), 0, maxAccumulatorLen-4).Draw(t, "payload")

		wire := Encode(delim, payload)
		frame, residual, status := Decode(wire)
		if status != StatusOK {
			t.Fatalf("status = %v, want StatusOK", status)
		}
		if residual != nil {
			t.Fatalf("residual = % X, want nil", residual)
		}
		if !bytes.Equal(frame.Payload, payload) {
			t.Fatalf("payload = % X, want % X", frame.Payload, payload)
		}
	})
}

// TestRapid_ByteAtATime feeds an encoded frame's bytes one at a time and
// checks every prefix but the last reports StatusShort.
func TestRapid_ByteAtATime(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "payload")
		wire := Encode(DelimHostToRadio, payload)

		for i := 1; i < len(wire); i++ {
			_, _, status := Decode(wire[:i])
			if status != StatusShort {
				t.Fatalf("at %d/%d bytes: status = %v, want StatusShort", i, len(wire), status)
			}
		}
		_, _, status := Decode(wire)
		if status != StatusOK {
			t.Fatalf("full wire: status = %v, want StatusOK", status)
		}
	})
}
