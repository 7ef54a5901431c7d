package command

import (
	"encoding/binary"
	"fmt"

	"github.com/PeterGrace/meshcore-companion-go/internal/protocol"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

// build returns the opcode and payload body (excluding the opcode byte)
// for cmd, or an error if cmd is not a type this package knows how to
// encode. Raw passes its payload through untouched.
func build(cmd state.Command) (code byte, body []byte, err error) {
	switch c := cmd.(type) {
	case AppStart:
		// Fixed 9-byte literal (the opcode plus these 8 bytes); AppVer and
		// AppName are not encoded.
		return protocol.CmdAppStart, []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}, nil

	case SendTxtMsg:
		body := make([]byte, 0, 1+1+4+6+len(c.Text))
		body = append(body, c.TxtType, c.Attempt)
		body = appendU32LE(body, c.SenderTimestamp)
		body = append(body, c.PubKeyPrefix[:]...)
		body = append(body, []byte(c.Text)...)
		return protocol.CmdSendTxtMsg, body, nil

	case SendChannelTxtMsg:
		body := make([]byte, 0, 1+1+4+len(c.Text))
		body = append(body, c.TxtType, c.ChannelIdx)
		body = appendU32LE(body, c.SenderTimestamp)
		body = append(body, []byte(c.Text)...)
		return protocol.CmdSendChannelTxt, body, nil

	case SendLogin:
		body := make([]byte, 0, 32+len(c.Password))
		body = append(body, c.PublicKey[:]...)
		body = append(body, []byte(c.Password)...)
		return protocol.CmdSendLogin, body, nil

	case SetDeviceTime:
		return protocol.CmdSetDeviceTime, nil, nil // 8-byte unix-seconds body stamped by API.Submit

	case SetAdvertName:
		return protocol.CmdSetAdvertName, []byte(c.Name), nil

	case SetAdvertLatLon:
		body := make([]byte, 0, 12)
		body = appendI32LE(body, c.LatMicro)
		body = appendI32LE(body, c.LonMicro)
		body = appendI32LE(body, c.AltMicro)
		return protocol.CmdSetAdvertLatLon, body, nil

	case SetRadioParams:
		body := make([]byte, 0, 10)
		body = appendU32LE(body, c.FreqHz)
		body = appendU32LE(body, c.BWHz)
		body = append(body, c.SF, c.CR)
		return protocol.CmdSetRadioParams, body, nil

	case SetRadioTxPower:
		return protocol.CmdSetRadioTxPower, []byte{c.PowerDBm}, nil

	case GetContacts:
		return protocol.CmdGetContacts, appendU32LE(nil, c.Since), nil

	case Reboot:
		return protocol.CmdReboot, []byte("reboot"), nil

	case ExportContact:
		if c.PublicKey == nil {
			return protocol.CmdExportContact, nil, nil
		}
		return protocol.CmdExportContact, append([]byte{}, c.PublicKey[:]...), nil

	case RemoveContact:
		return protocol.CmdRemoveContact, append([]byte{}, c.PublicKey[:]...), nil

	case ResetPath:
		return protocol.CmdResetPath, append([]byte{}, c.PublicKey[:]...), nil

	case DeviceQuery:
		return protocol.CmdDeviceQuery, []byte{c.AppTargetVer}, nil

	case SyncNextMessage:
		return protocol.CmdSyncNextMessage, nil, nil

	case SendSelfAdvert:
		return protocol.CmdSendSelfAdvert, []byte{byte(c.Mode)}, nil

	case GetDeviceTime:
		return protocol.CmdGetDeviceTime, nil, nil

	case GetBattAndStorage:
		return protocol.CmdGetBattAndStore, nil, nil

	case GetTuningParams:
		return protocol.CmdGetTuningParams, nil, nil

	case SendStatusReq:
		return protocol.CmdSendStatusReq, nil, nil

	case Logout:
		return protocol.CmdLogout, nil, nil

	case GetCustomVars:
		return protocol.CmdGetCustomVars, nil, nil

	case FactoryReset:
		return protocol.CmdFactoryReset, nil, nil

	case GetStats:
		return protocol.CmdGetStats, nil, nil

	case Raw:
		return c.Code, c.Payload, nil

	default:
		return 0, nil, fmt.Errorf("command: no wire encoding for %T", cmd)
	}
}

func appendU32LE(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendI32LE(b []byte, v int32) []byte {
	return appendU32LE(b, uint32(v))
}

func appendU64LE(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
