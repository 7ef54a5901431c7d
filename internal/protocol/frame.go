// Package protocol implements the length-framed, code-tagged binary wire
// format spoken between the host and the attached mesh radio.
package protocol

import "encoding/binary"

// Delimiter bytes, one per direction of travel.
const (
	DelimHostToRadio byte = 0x3C
	DelimRadioToHost byte = 0x3E
)

// maxAccumulatorLen is the accumulator size at which Decode reports
// StatusTooLong, so the accumulator is dropped outright rather than grown
// further. The wire protocol never sends payloads anywhere near this size.
const maxAccumulatorLen = 1024

// DecodeStatus classifies the outcome of a single Decode call.
type DecodeStatus int

const (
	// StatusOK means a complete frame was extracted; Residual holds any
	// bytes left over past the frame (may be empty).
	StatusOK DecodeStatus = iota
	// StatusShort means fewer than 3 header bytes, or fewer than
	// 3+length total bytes, are present. The caller should keep
	// accumulating and retry once more bytes arrive.
	StatusShort
	// StatusBadDelimiter means the first byte is neither sentinel. The
	// caller must resynchronise: clear the accumulator and resume on
	// whatever follows.
	StatusBadDelimiter
	// StatusTooLong means the accumulator holds maxAccumulatorLen bytes or
	// more. Decode checks this before looking for a frame, so it is reported
	// even when a complete frame sits at the front. The caller must clear the
	// accumulator.
	StatusTooLong
)

// Frame is a single decoded payload along with the delimiter it arrived
// (or will be sent) under.
type Frame struct {
	Delim   byte
	Payload []byte
}

// Encode serialises a frame as delim | length_le(2) | payload. It performs
// exactly one allocation for the returned slice.
func Encode(delim byte, payload []byte) []byte {
	out := make([]byte, 3+len(payload))
	out[0] = delim
	binary.LittleEndian.PutUint16(out[1:3], uint16(len(payload)))
	copy(out[3:], payload)
	return out
}

// Decode attempts to extract one complete frame from the front of acc.
//
// On StatusOK, Frame.Payload is a fresh copy (safe to retain past the
// lifetime of acc) and residual holds whatever bytes in acc followed the
// frame (nil if none). On any other status, frame and residual are the
// zero value and the caller must act per the status: StatusShort means
// "wait for more bytes", StatusBadDelimiter and StatusTooLong both mean
// "drop the whole accumulator and resync on whatever arrives next".
func Decode(acc []byte) (frame Frame, residual []byte, status DecodeStatus) {
	if len(acc) >= maxAccumulatorLen {
		return Frame{}, nil, StatusTooLong
	}
	if len(acc) < 3 {
		return Frame{}, nil, StatusShort
	}
	delim := acc[0]
	if delim != DelimHostToRadio && delim != DelimRadioToHost {
		return Frame{}, nil, StatusBadDelimiter
	}
	length := int(binary.LittleEndian.Uint16(acc[1:3]))
	total := 3 + length
	if len(acc) < total {
		return Frame{}, nil, StatusShort
	}
	payload := make([]byte, length)
	copy(payload, acc[3:total])
	frame = Frame{Delim: delim, Payload: payload}
	if len(acc) > total {
		residual = make([]byte, len(acc)-total)
		copy(residual, acc[total:])
	}
	return frame, residual, StatusOK
}
