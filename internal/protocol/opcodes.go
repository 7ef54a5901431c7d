package protocol

// Host->radio command opcodes (first payload byte of a host->radio frame).
// This table is a fixed external contract with the radio firmware, not a
// design choice.
const (
	CmdAppStart         byte = 1
	CmdSendTxtMsg       byte = 2
	CmdSendChannelTxt   byte = 3
	CmdGetContacts      byte = 4
	CmdGetDeviceTime    byte = 5
	CmdSetDeviceTime    byte = 6
	CmdSendSelfAdvert   byte = 7
	CmdSetAdvertName    byte = 8
	CmdAddUpdateContact byte = 9
	CmdSyncNextMessage  byte = 10
	CmdSetRadioParams   byte = 11
	CmdSetRadioTxPower  byte = 12
	CmdResetPath        byte = 13
	CmdSetAdvertLatLon  byte = 14
	CmdRemoveContact    byte = 15
	CmdShareContact     byte = 16
	CmdExportContact    byte = 17
	CmdImportContact    byte = 18
	CmdReboot           byte = 19
	CmdGetBattAndStore  byte = 20
	CmdSetTuningParams  byte = 21
	CmdDeviceQuery      byte = 22
	CmdSendRawData      byte = 25
	CmdSendLogin        byte = 26
	CmdSendStatusReq    byte = 27
	CmdLogout           byte = 29
	CmdSendTracePath    byte = 36
	CmdSetOtherParams   byte = 38
	CmdSendTelemetryReq byte = 39
	CmdGetCustomVars    byte = 40
	CmdSetCustomVars    byte = 41
	CmdGetAdvertPath    byte = 42
	CmdGetTuningParams  byte = 43
	CmdSendBinaryReq    byte = 50
	CmdFactoryReset     byte = 51
	CmdSendControlData  byte = 55
	CmdGetStats         byte = 56
)

// Radio->host result opcodes (OK/ERR and the "answer to a GET" family).
const (
	RespOK             byte = 0
	RespErr            byte = 1
	RespContactsStart  byte = 2
	RespContact        byte = 3
	RespEndOfContacts  byte = 4
	RespSelfInfo       byte = 5
	RespSent           byte = 6
	RespContactMsgRecv byte = 7
	RespChannelMsgRecv byte = 8
	RespCurrTime       byte = 9
	RespNoMoreMessages byte = 10
	RespExportContact  byte = 11
	RespBattAndStorage byte = 12
	RespDeviceInfo     byte = 13
	RespContactMsgV3   byte = 16
	RespChannelMsgV3   byte = 17
	RespAdvertPath     byte = 22
	RespTuningParams   byte = 23
	RespStatus         byte = 24
)

// Radio->host asynchronous push opcodes.
const (
	PushAdvert             byte = 0x80
	PushPathUpdated        byte = 0x81
	PushSendConfirmed      byte = 0x82
	PushMsgWaiting         byte = 0x83
	PushRawData            byte = 0x84
	PushLoginSuccess       byte = 0x85
	PushLoginFail          byte = 0x86
	PushStatusResponse     byte = 0x87
	PushLogRxData          byte = 0x88
	PushTraceData          byte = 0x89
	PushNewAdvert          byte = 0x8A
	PushTelemetryResponse  byte = 0x8B
	PushBinaryResponse     byte = 0x8C
	PushControlData        byte = 0x8D
)

// ERR payload sub-codes (the single byte following the 0x01 opcode).
const (
	ErrSubUnsupportedCmd byte = 1
	ErrSubNotFound       byte = 2
	ErrSubTableFull      byte = 3
	ErrSubBadState       byte = 4
	ErrSubFileIoError    byte = 5
	ErrSubIllegalArg     byte = 6
)
