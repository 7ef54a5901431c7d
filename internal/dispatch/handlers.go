package dispatch

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/PeterGrace/meshcore-companion-go/internal/logging"
	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

// errSubCode extracts the ERR payload's single sub-code byte, if present.
func errSubCode(body []byte) *byte {
	if len(body) == 0 {
		return nil
	}
	b := body[0]
	return &b
}

// handleCommandResult pops the command queue head and pushes its
// outcome. subCode is nil for OK, set for ERR.
func (d *Dispatcher) handleCommandResult(subCode *byte) {
	cmd, ok := d.store.PopCommand()
	if !ok {
		metrics.IncUnsolicited()
		logging.L().Error("unexpected_ok_err_empty_queue")
		return
	}
	var cmdErr *state.CommandError
	if subCode != nil {
		kind := state.ErrorKindFromErrSubCode(*subCode)
		cmdErr = &state.CommandError{Kind: kind, Cmd: cmd}
		metrics.IncCommandError(cmd.Kind(), kind.String())
	}
	d.store.PushResult(state.Result{Cmd: cmd, Err: cmdErr})
}

// handleSent parses the SENT (0x06) transmission receipt: txt_type(1) |
// ack_code(4) | suggested_timeout_ms_le(4).
func (d *Dispatcher) handleSent(body []byte) {
	if len(body) < 9 {
		metrics.IncMalformed()
		logging.L().Warn("sent_frame_too_short", "len", len(body))
		return
	}
	var code state.AckCode
	copy(code[:], body[1:5])
	timeoutMS := binary.LittleEndian.Uint32(body[5:9])

	if !d.store.PromoteSlotToAck(code, timeoutMS, d.now()) {
		logging.L().Info("sent_with_no_pending_slot", "ack_code", hex.EncodeToString(code[:]))
	}
}

// handleSendConfirmed removes the matching ack table entry (PushSendConfirmed
// (0x82): ack_code(4)).
func (d *Dispatcher) handleSendConfirmed(body []byte) {
	if len(body) < 4 {
		metrics.IncMalformed()
		return
	}
	var code state.AckCode
	copy(code[:], body[:4])
	if !d.store.RemoveAck(code) {
		metrics.IncUnsolicited()
		logging.L().Warn("send_confirmed_unknown_code", "ack_code", hex.EncodeToString(code[:]))
	}
}

// handleSelfInfo parses SELF_INFO (0x05), excluding the leading opcode
// byte the caller already stripped: type(1) tx_power(1) max_tx(1)
// pubkey(32) lat(4) lon(4) multi_acks(1) loc_policy(1) telemetry(1)
// manual_add(1) freq(4) bw(4) sf(1) cr(1) name(var).
func (d *Dispatcher) handleSelfInfo(body []byte) {
	const fixedLen = 1 + 1 + 1 + 32 + 4 + 4 + 1 + 1 + 1 + 1 + 4 + 4 + 1 + 1
	if len(body) < fixedLen {
		metrics.IncMalformed()
		logging.L().Warn("self_info_too_short", "len", len(body))
		return
	}
	var info state.SelfInfo
	off := 0
	info.Type = body[off]
	off++
	info.TxDBM = body[off]
	off++
	info.MaxTxDBM = body[off]
	off++
	copy(info.PublicKey[:], body[off:off+32])
	off += 32
	info.Lat = int32(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	info.Lon = int32(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	info.MultiAcks = body[off]
	off++
	info.LocPolicy = body[off]
	off++
	info.TelemetryModes = body[off]
	off++
	info.ManualAddOnly = body[off]
	off++
	info.Freq = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	info.BW = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	info.SF = body[off]
	off++
	info.CR = body[off]
	off++
	info.Name = trimNUL(body[off:])

	d.store.SetSelfInfo(info)
}

// handleDeviceInfo parses DEVICE_INFO (0x0D): firmware_version(1)
// max_contacts_div_2(1) max_channels(1) ble_pin_le(4) build_date(12)
// model(40) semver(20), the fixed-width string fields NUL-trimmed.
func (d *Dispatcher) handleDeviceInfo(body []byte) {
	const buildDateLen, modelLen, semverLen = 12, 40, 20
	const fixedLen = 1 + 1 + 1 + 4 + buildDateLen + modelLen + semverLen
	if len(body) < fixedLen {
		metrics.IncMalformed()
		logging.L().Warn("device_info_too_short", "len", len(body))
		return
	}
	off := 0
	var info state.DeviceInfo
	info.FirmwareVersion = body[off]
	off++
	info.MaxContactsDiv2 = body[off]
	off++
	info.MaxChannels = body[off]
	off++
	info.BLEPin = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	info.BuildDate = trimNUL(body[off : off+buildDateLen])
	off += buildDateLen
	info.Model = trimNUL(body[off : off+modelLen])
	off += modelLen
	info.SemVer = trimNUL(body[off : off+semverLen])

	d.store.SetDeviceInfo(info)
}

// handleBattAndStorage parses BATT_AND_STORAGE (0x0C): millivolts_le(2)
// used_kb_le(4) total_kb_le(4).
func (d *Dispatcher) handleBattAndStorage(body []byte) {
	if len(body) < 10 {
		metrics.IncMalformed()
		return
	}
	d.store.SetBattAndStorage(state.BattAndStorage{
		MilliVolts: binary.LittleEndian.Uint16(body[0:2]),
		UsedKB:     binary.LittleEndian.Uint32(body[2:6]),
		TotalKB:    binary.LittleEndian.Uint32(body[6:10]),
	})
}

// handleCurrTime parses CURR_TIME (0x09): unix_seconds_le(4).
func (d *Dispatcher) handleCurrTime(body []byte) {
	if len(body) < 4 {
		metrics.IncMalformed()
		return
	}
	d.store.SetDeviceTimeUnixSeconds(binary.LittleEndian.Uint32(body[:4]))
}

// handleTuningParams parses TUNING_PARAMS (0x17): rx_delay_base_le(4)
// airtime_factor_le(4).
func (d *Dispatcher) handleTuningParams(body []byte) {
	if len(body) < 8 {
		metrics.IncMalformed()
		return
	}
	d.store.SetTuningParameters(state.TuningParameters{
		RXDelayBase:   binary.LittleEndian.Uint32(body[0:4]),
		AirtimeFactor: binary.LittleEndian.Uint32(body[4:8]),
	})
}

// handleContact parses a CONTACT (0x03) directory record: pubkey(32)
// adv_type(1) flags(1) out_path_len(1) out_path(64) adv_name(32)
// last_advert_le(4) adv_lat_le(4) adv_lon_le(4) lastmod_le(4).
func (d *Dispatcher) handleContact(body []byte) {
	const nameLen = 32
	const fixedLen = 32 + 1 + 1 + 1 + 64 + nameLen + 4 + 4 + 4 + 4
	if len(body) < fixedLen {
		metrics.IncMalformed()
		logging.L().Warn("contact_frame_too_short", "len", len(body))
		return
	}
	var c state.Contact
	off := 0
	copy(c.PublicKey[:], body[off:off+32])
	off += 32
	c.AdvType = body[off]
	off++
	c.Flags = body[off]
	off++
	c.OutPathLen = int8(body[off])
	off++
	copy(c.OutPath[:], body[off:off+64])
	off += 64
	c.Name = trimNUL(body[off : off+nameLen])
	off += nameLen
	c.LastAdvert = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	c.Lat = int32(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	c.Lon = int32(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	c.LastModified = binary.LittleEndian.Uint32(body[off : off+4])

	d.store.UpsertContact(c)
}

// handleEndOfContacts updates the newest-advert watermark used for
// incremental GetContacts resync (END_OF_CONTACTS (0x04): watermark_le(4)).
func (d *Dispatcher) handleEndOfContacts(body []byte) {
	if len(body) < 4 {
		return // zero-length end marker is valid; nothing to update
	}
	d.store.SetWatermark(binary.LittleEndian.Uint32(body[:4]))
}

// handleLoginResult finds the contact by 6-byte prefix and sets its login
// flag. LOGIN_SUCCESS (0x85) carries permissions(1) pubkey_prefix(6)
// tag_le(4) new_permissions(1); LOGIN_FAIL (0x86) carries reserved(1)
// pubkey_prefix(6). Only the prefix is consumed here.
func (d *Dispatcher) handleLoginResult(body []byte, success bool) {
	if len(body) < 7 {
		metrics.IncMalformed()
		return
	}
	var prefix [6]byte
	copy(prefix[:], body[1:7])
	if !d.store.SetLoginByPrefix(prefix, success) {
		logging.L().Warn("login_result_unknown_contact", "prefix", hex.EncodeToString(prefix[:]))
	}
}

// handleContactMsg parses a direct text message. CONTACT_MSG (0x07):
// pubkey_prefix(6) path_len(1) txt_type(1) sender_timestamp_le(4)
// text(var). CONTACT_MSG_V3 (0x10) prepends snr(1) reserved(2).
func (d *Dispatcher) handleContactMsg(body []byte, isV3 bool) {
	minLen := 6 + 1 + 1 + 4
	if isV3 {
		minLen += 3
	}
	if len(body) < minLen {
		metrics.IncMalformed()
		return
	}
	var msg state.InboundMessage
	off := 0
	if isV3 {
		msg.SNR = int8(body[off])
		off += 3 // snr + 2 reserved bytes
		msg.IsV3 = true
	}
	copy(msg.PubKeyPrefix[:], body[off:off+6])
	off += 6
	msg.PathLen = body[off]
	off++
	msg.TxtType = body[off]
	off++
	msg.SenderTimestamp = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	msg.Text = trimNUL(body[off:])

	d.store.PushInbound(msg)
	d.triggerSyncNextMessage()
}

// handleChannelMsg parses a channel text message. CHANNEL_MSG (0x08):
// channel_id(1) path_len(1) txt_type(1) sender_timestamp_le(4) text(var).
// CHANNEL_MSG_V3 (0x11) prepends snr(1) reserved(2).
func (d *Dispatcher) handleChannelMsg(body []byte, isV3 bool) {
	minLen := 1 + 1 + 1 + 4
	if isV3 {
		minLen += 3
	}
	if len(body) < minLen {
		metrics.IncMalformed()
		return
	}
	var msg state.InboundMessage
	msg.IsChannel = true
	off := 0
	if isV3 {
		msg.SNR = int8(body[off])
		off += 3 // snr + 2 reserved bytes
		msg.IsV3 = true
	}
	msg.ChannelID = body[off]
	off++
	msg.PathLen = body[off]
	off++
	msg.TxtType = body[off]
	off++
	msg.SenderTimestamp = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	msg.Text = trimNUL(body[off:])

	d.store.PushInbound(msg)
	d.triggerSyncNextMessage()
}

// handleExportContact records an export URL under the exported contact's
// full public key (EXPORT_CONTACT (0x0B): pubkey(32) advert_blob(var)).
func (d *Dispatcher) handleExportContact(body []byte) {
	if len(body) < 32 {
		metrics.IncMalformed()
		return
	}
	var pk state.PublicKey
	copy(pk[:], body[:32])
	url := "meshcore://" + hex.EncodeToString(body)
	d.store.SetExport(pk, url)
}

// handleLogRxData debug-logs the radio's raw-receive telemetry push
// (LOG_RX_DATA (0x88): snr_le(4, signed) rssi(1) tail(var)).
func (d *Dispatcher) handleLogRxData(body []byte) {
	if len(body) < 5 {
		metrics.IncMalformed()
		return
	}
	snr := int32(binary.LittleEndian.Uint32(body[:4]))
	rssi := body[4]
	logging.L().Debug("log_rx_data", "snr", snr, "rssi", rssi, "tail_len", len(body)-5)
}

// trimNUL decodes b as UTF-8 with lossy replacement and trims trailing
// NUL padding.
func trimNUL(b []byte) string {
	s := strings.TrimRight(string(b), "\x00")
	return strings.ToValidUTF8(s, "�")
}
