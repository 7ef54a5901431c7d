// Package command translates typed command values into outbound wire
// frames and enforces the single send-time gate (Congestion).
package command

import "github.com/PeterGrace/meshcore-companion-go/internal/state"

// AdvertMode selects how far a self-advert propagates.
type AdvertMode uint8

const (
	AdvertZeroHop AdvertMode = 0
	AdvertFlood   AdvertMode = 1
)

// AppStart requests the radio enter application mode. Current firmware
// ignores AppVer/AppName and only honours the fixed 9-byte literal; both
// fields are accepted and stored for forward compatibility but not yet
// transmitted.
//
// TODO: switch to encoding AppVer/AppName once firmware is confirmed to
// honour the structured form.
type AppStart struct {
	AppVer  uint8
	AppName string
}

func (AppStart) Kind() state.CommandKind { return state.KindAppStart }

// SendTxtMsg is a direct text message to a contact identified by its
// 6-byte key prefix. Attempt should be 0 on the caller's initial submit;
// the dispatcher's retry sweep resubmits with Attempt incremented.
type SendTxtMsg struct {
	TxtType         uint8
	Attempt         uint8
	SenderTimestamp uint32
	PubKeyPrefix    [6]byte
	Text            string
}

func (SendTxtMsg) Kind() state.CommandKind { return state.KindSendTxtMsg }

// SendChannelTxtMsg is a broadcast text message on a channel. No ack is
// ever expected for these.
type SendChannelTxtMsg struct {
	TxtType         uint8
	ChannelIdx      uint8
	SenderTimestamp uint32
	Text            string
}

func (SendChannelTxtMsg) Kind() state.CommandKind { return state.KindSendChannelTxtMsg }

// SendLogin authenticates against a room-server contact.
type SendLogin struct {
	PublicKey state.PublicKey
	Password  string
}

func (SendLogin) Kind() state.CommandKind { return state.KindSendLogin }

// SetDeviceTime sets the radio's clock to the current host time.
type SetDeviceTime struct{}

func (SetDeviceTime) Kind() state.CommandKind { return state.KindSetDeviceTime }

// SetAdvertName sets this node's advertised display name.
type SetAdvertName struct {
	Name string
}

func (SetAdvertName) Kind() state.CommandKind { return state.KindSetAdvertName }

// SetAdvertLatLon sets this node's advertised position, in micro-degrees.
type SetAdvertLatLon struct {
	LatMicro int32
	LonMicro int32
	AltMicro int32
}

func (SetAdvertLatLon) Kind() state.CommandKind { return state.KindSetAdvertLatLon }

// SetRadioParams sets the LoRa radio parameters. Valid ranges are enforced
// by the radio itself: freq 300000..=2500000 kHz, bw 7000..=500000 Hz,
// sf 5..=12, cr 5..=8.
type SetRadioParams struct {
	FreqHz uint32
	BWHz   uint32
	SF     uint8
	CR     uint8
}

func (SetRadioParams) Kind() state.CommandKind { return state.KindSetRadioParams }

// SetRadioTxPower sets the radio's transmit power in dBm.
type SetRadioTxPower struct {
	PowerDBm uint8
}

func (SetRadioTxPower) Kind() state.CommandKind { return state.KindSetRadioTxPower }

// GetContacts requests the contact directory. Since=0 means a full sync;
// otherwise an incremental sync from the given watermark.
type GetContacts struct {
	Since uint32
}

func (GetContacts) Kind() state.CommandKind { return state.KindGetContacts }

// Reboot reboots the radio. Sent as the fixed `\x13"reboot"` literal.
type Reboot struct{}

func (Reboot) Kind() state.CommandKind { return state.KindReboot }

// ExportContact requests an export blob, either for a specific contact or
// (PublicKey == nil) for this node's own advert.
type ExportContact struct {
	PublicKey *state.PublicKey
}

func (ExportContact) Kind() state.CommandKind { return state.KindExportContact }

// RemoveContact deletes a contact by its full public key.
type RemoveContact struct {
	PublicKey state.PublicKey
}

func (RemoveContact) Kind() state.CommandKind { return state.KindRemoveContact }

// ResetPath clears the cached out-path for a contact.
type ResetPath struct {
	PublicKey state.PublicKey
}

func (ResetPath) Kind() state.CommandKind { return state.KindResetPath }

// DeviceQuery asks the radio to identify itself.
type DeviceQuery struct {
	AppTargetVer uint8
}

func (DeviceQuery) Kind() state.CommandKind { return state.KindDeviceQuery }

// SyncNextMessage drains the next queued inbound message from the radio.
type SyncNextMessage struct{}

func (SyncNextMessage) Kind() state.CommandKind { return state.KindSyncNextMessage }

// SendSelfAdvert broadcasts this node's own identity/location advert.
type SendSelfAdvert struct {
	Mode AdvertMode
}

func (SendSelfAdvert) Kind() state.CommandKind { return state.KindSendSelfAdvert }

// GetDeviceTime requests the radio's current clock value (CURR_TIME
// response).
type GetDeviceTime struct{}

func (GetDeviceTime) Kind() state.CommandKind { return state.KindGetDeviceTime }

// GetBattAndStorage requests battery/flash-usage telemetry.
type GetBattAndStorage struct{}

func (GetBattAndStorage) Kind() state.CommandKind { return state.KindGetBattAndStorage }

// GetTuningParams requests the current radio tuning parameters.
type GetTuningParams struct{}

func (GetTuningParams) Kind() state.CommandKind { return state.KindGetTuningParams }

// SendStatusReq requests a Status (0x18) push from the radio.
type SendStatusReq struct{}

func (SendStatusReq) Kind() state.CommandKind { return state.KindSendStatusReq }

// Logout ends a room-server session established by SendLogin.
type Logout struct{}

func (Logout) Kind() state.CommandKind { return state.KindLogout }

// GetCustomVars requests the radio's custom variable table.
type GetCustomVars struct{}

func (GetCustomVars) Kind() state.CommandKind { return state.KindGetCustomVars }

// FactoryReset wipes the radio's persisted configuration.
type FactoryReset struct{}

func (FactoryReset) Kind() state.CommandKind { return state.KindFactoryReset }

// GetStats requests radio-side link statistics.
type GetStats struct{}

func (GetStats) Kind() state.CommandKind { return state.KindGetStats }

// Raw is the escape hatch for opcodes the wire contract names but whose
// payload layout is undocumented: AddUpdateContact,
// ShareContact, ImportContact, SetTuningParams, SetOtherParams,
// SendRawData, SendTracePath, SendTelemetryReq, SetCustomVars,
// GetAdvertPath, SendBinaryReq, SendControlData. Payload must already
// exclude the opcode byte — Submit prepends it. Build with NewRaw rather
// than a bare struct literal so Eligible gets its documented default.
type Raw struct {
	CmdKind  state.CommandKind
	Code     byte
	Payload  []byte
	Eligible bool
}

// NewRaw builds a Raw command defaulting Eligible to true (mutating
// commands generally answer with a bare OK/ERR). kind should be the
// state.CommandKind matching code, e.g. state.KindAddUpdateContact for
// CmdAddUpdateContact.
func NewRaw(kind state.CommandKind, code byte, payload []byte) Raw {
	return Raw{CmdKind: kind, Code: code, Payload: payload, Eligible: true}
}

func (r Raw) Kind() state.CommandKind { return r.CmdKind }
