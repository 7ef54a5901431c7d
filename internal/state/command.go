package state

// CommandKind tags every command variant the Command API can build. It
// lives here, rather than in the command package, so the state package's
// CommandQueue/ResultQueue can compare commands without importing the
// concrete command types (which themselves import state for
// Store/PublicKey).
type CommandKind int

const (
	KindAppStart CommandKind = iota
	KindSendTxtMsg
	KindSendChannelTxtMsg
	KindGetContacts
	KindGetDeviceTime
	KindSetDeviceTime
	KindSendSelfAdvert
	KindSetAdvertName
	KindAddUpdateContact
	KindSyncNextMessage
	KindSetRadioParams
	KindSetRadioTxPower
	KindResetPath
	KindSetAdvertLatLon
	KindRemoveContact
	KindShareContact
	KindExportContact
	KindImportContact
	KindReboot
	KindGetBattAndStorage
	KindSetTuningParams
	KindDeviceQuery
	KindSendRawData
	KindSendLogin
	KindSendStatusReq
	KindLogout
	KindSendTracePath
	KindSetOtherParams
	KindSendTelemetryReq
	KindGetCustomVars
	KindSetCustomVars
	KindGetAdvertPath
	KindGetTuningParams
	KindSendBinaryReq
	KindFactoryReset
	KindSendControlData
	KindGetStats
)

var kindNames = map[CommandKind]string{
	KindAppStart:          "AppStart",
	KindSendTxtMsg:        "SendTxtMsg",
	KindSendChannelTxtMsg: "SendChannelTxtMsg",
	KindGetContacts:       "GetContacts",
	KindGetDeviceTime:     "GetDeviceTime",
	KindSetDeviceTime:     "SetDeviceTime",
	KindSendSelfAdvert:    "SendSelfAdvert",
	KindSetAdvertName:     "SetAdvertName",
	KindAddUpdateContact:  "AddUpdateContact",
	KindSyncNextMessage:   "SyncNextMessage",
	KindSetRadioParams:    "SetRadioParams",
	KindSetRadioTxPower:   "SetRadioTxPower",
	KindResetPath:         "ResetPath",
	KindSetAdvertLatLon:   "SetAdvertLatLon",
	KindRemoveContact:     "RemoveContact",
	KindShareContact:      "ShareContact",
	KindExportContact:     "ExportContact",
	KindImportContact:     "ImportContact",
	KindReboot:            "Reboot",
	KindGetBattAndStorage: "GetBattAndStorage",
	KindSetTuningParams:   "SetTuningParams",
	KindDeviceQuery:       "DeviceQuery",
	KindSendRawData:       "SendRawData",
	KindSendLogin:         "SendLogin",
	KindSendStatusReq:     "SendStatusReq",
	KindLogout:            "Logout",
	KindSendTracePath:     "SendTracePath",
	KindSetOtherParams:    "SetOtherParams",
	KindSendTelemetryReq:  "SendTelemetryReq",
	KindGetCustomVars:     "GetCustomVars",
	KindSetCustomVars:     "SetCustomVars",
	KindGetAdvertPath:     "GetAdvertPath",
	KindGetTuningParams:   "GetTuningParams",
	KindSendBinaryReq:     "SendBinaryReq",
	KindFactoryReset:      "FactoryReset",
	KindSendControlData:   "SendControlData",
	KindGetStats:          "GetStats",
}

func (k CommandKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Command is implemented by every command value the facade accepts. The
// concrete types live in package command; only the Kind() tag is needed
// here.
type Command interface {
	Kind() CommandKind
}

// Result is produced when an OK/ERR frame pops the command queue.
type Result struct {
	Cmd Command
	Err *CommandError // nil on success
}
