// Package state holds the single shared store used by the dispatcher, the
// command API, and the facade: the contact directory, pending-ack table,
// pending-command queue, inbound message queue, and device/self-info
// caches.
package state

import (
	"encoding/hex"
	"fmt"
)

// PublicKey is a mesh node's fixed 32-byte identity.
type PublicKey [32]byte

// Prefix returns the 6-byte prefix used for routing/login correlation.
func (k PublicKey) Prefix() [6]byte {
	var p [6]byte
	copy(p[:], k[:6])
	return p
}

// String renders the key as lowercase hex.
func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

// PublicKeyFromHex parses a lowercase (or mixed-case) hex string into a
// PublicKey. It errors if the string does not decode to exactly 32 bytes.
func PublicKeyFromHex(s string) (PublicKey, error) {
	var k PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("decode public key hex: %w", err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("public key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// LoginState is the tri-state login flag carried on a Contact.
type LoginState int

const (
	LoginUnknown LoginState = iota
	LoginTrue
	LoginFalse
)

// Contact is the host's cached view of a remote node, keyed by its full
// PublicKey.
type Contact struct {
	PublicKey      PublicKey
	Name           string // advertised name, NUL-trimmed UTF-8, <=32 bytes
	AdvType        uint8
	Flags          uint8
	OutPathLen     int8 // -1 means unknown
	OutPath        [64]byte
	LastAdvert     uint32 // seconds
	Lat            int32  // micro-degrees
	Lon            int32  // micro-degrees
	LastModified   uint32 // seconds
	LoggedIn       LoginState
}

// PendingMessage is an outbound direct text message awaiting its SENT/
// CONFIRMED round trip.
type PendingMessage struct {
	TxtType           uint8
	Attempt           uint8 // 0..=3
	SenderTimestamp   uint32
	PubKeyPrefix      [6]byte
	Text              string
	TimeoutMS         uint32 // 0 until SENT stamps it
	LastAttemptMS     int64  // ms, wall clock
}

// AckEnvelope pairs a PendingMessage with the moment it was inserted into
// the ack table, stamped when the SENT response arrives.
type AckEnvelope struct {
	Msg          PendingMessage
	InsertedAtMS int64
}

// AckCode is the 4-byte identifier the radio returns in SENT and echoes in
// SEND_CONFIRMED.
type AckCode [4]byte

// InboundMessage is a received text message, contact or channel, v1 or v3.
type InboundMessage struct {
	IsChannel       bool
	IsV3            bool
	PubKeyPrefix    [6]byte // contact variants only
	ChannelID       uint8   // channel variants only
	PathLen         uint8
	TxtType         uint8
	SNR             int8 // v3 only
	SenderTimestamp uint32
	Text            string
}

// SelfInfo mirrors the SELF_INFO (0x05) response record.
type SelfInfo struct {
	Type            uint8
	TxDBM           uint8
	MaxTxDBM        uint8
	PublicKey       PublicKey
	Lat             int32
	Lon             int32
	MultiAcks       uint8
	LocPolicy       uint8
	TelemetryModes  uint8
	ManualAddOnly   uint8
	Freq            uint32
	BW              uint32
	SF              uint8
	CR              uint8
	Name            string
}

// DeviceInfo mirrors the DEVICE_INFO (0x0D) response record.
type DeviceInfo struct {
	FirmwareVersion uint8
	MaxContactsDiv2 uint8
	MaxChannels     uint8
	BLEPin          uint32
	BuildDate       string
	Model           string
	SemVer          string
}

// TuningParameters mirrors the TUNING_PARAMS (0x17) response record.
type TuningParameters struct {
	RXDelayBase   uint32
	AirtimeFactor uint32
}

// BattAndStorage mirrors the BATT_AND_STORAGE (0x0C) response record.
type BattAndStorage struct {
	MilliVolts uint16
	UsedKB     uint32
	TotalKB    uint32
}
