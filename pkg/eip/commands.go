package eip

import (
	"fmt"

	"github.com/openenip/goenip/pkg/wire"
)

// Command is the encapsulation command id carried in the header.
type Command uint16

// Encapsulation Commands
const (
	CommandNop               Command = 0x0000
	CommandListServices      Command = 0x0004
	CommandListIdentity      Command = 0x0063
	CommandListInterfaces    Command = 0x0064
	CommandRegisterSession   Command = 0x0065
	CommandUnregisterSession Command = 0x0066
	CommandSendRRData        Command = 0x006F
	CommandSendUnitData      Command = 0x0070
	CommandIndicateStatus    Command = 0x0072
	CommandCancel            Command = 0x0073
)

// String returns the string representation of the command.
func (c Command) String() string {
	switch c {
	case CommandNop:
		return "Nop"
	case CommandListServices:
		return "ListServices"
	case CommandListIdentity:
		return "ListIdentity"
	case CommandListInterfaces:
		return "ListInterfaces"
	case CommandRegisterSession:
		return "RegisterSession"
	case CommandUnregisterSession:
		return "UnregisterSession"
	case CommandSendRRData:
		return "SendRRData"
	case CommandSendUnitData:
		return "SendUnitData"
	case CommandIndicateStatus:
		return "IndicateStatus"
	case CommandCancel:
		return "Cancel"
	default:
		return fmt.Sprintf("UnknownCommand(0x%04X)", uint16(c))
	}
}

// Encapsulation status codes (Header.Status).
const (
	StatusSuccess              uint32 = 0x00000000
	StatusInvalidCommand       uint32 = 0x00000001
	StatusInsufficientMemory   uint32 = 0x00000002
	StatusIncorrectData        uint32 = 0x00000003
	StatusInvalidSessionHandle uint32 = 0x00000064
	StatusInvalidLength        uint32 = 0x00000065
	StatusUnsupportedProtocol  uint32 = 0x00000069
)

// RegisterSessionData is the RegisterSession command body.
type RegisterSessionData struct {
	ProtocolVersion uint16
	OptionsFlags    uint16
}

// NewRegisterSessionData builds the standard request body: protocol
// version 1, no option flags.
func NewRegisterSessionData() RegisterSessionData {
	return RegisterSessionData{ProtocolVersion: 1, OptionsFlags: 0}
}

// Encode serializes the RegisterSession body.
func (d RegisterSessionData) Encode() []byte {
	buf := make([]byte, 0, 4)
	buf = wire.PutU16(buf, d.ProtocolVersion)
	buf = wire.PutU16(buf, d.OptionsFlags)
	return buf
}

// TryParseRegisterSessionData decodes a RegisterSession body.
func TryParseRegisterSessionData(buf []byte) (RegisterSessionData, []byte, error) {
	if len(buf) < 4 {
		return RegisterSessionData{}, nil, wire.NewIncomplete(4 - len(buf))
	}
	ver, _ := wire.U16(buf[0:2])
	opts, _ := wire.U16(buf[2:4])
	return RegisterSessionData{ProtocolVersion: ver, OptionsFlags: opts}, buf[4:], nil
}

// SendData is the shared body shape of SendRRData and SendUnitData:
// an interface handle (always 0 on a single-interface client), a
// timeout in seconds (0 defers to the encapsulation-level timeout),
// and a CPF item list.
type SendData struct {
	InterfaceHandle uint32
	TimeoutSeconds  uint16
	Items           ItemList
}

// Encode serializes the SendRRData/SendUnitData body.
func (d SendData) Encode() []byte {
	buf := make([]byte, 0, 6)
	buf = wire.PutU32(buf, d.InterfaceHandle)
	buf = wire.PutU16(buf, d.TimeoutSeconds)
	buf = append(buf, d.Items.Encode()...)
	return buf
}

// TryParseSendData decodes a SendRRData/SendUnitData body.
func TryParseSendData(buf []byte) (SendData, error) {
	if len(buf) < 6 {
		return SendData{}, wire.NewIncomplete(6 - len(buf))
	}
	ifaceHandle, _ := wire.U32(buf[0:4])
	timeout, _ := wire.U16(buf[4:6])
	items, err := DecodeItemList(buf[6:])
	if err != nil {
		return SendData{}, err
	}
	return SendData{InterfaceHandle: ifaceHandle, TimeoutSeconds: timeout, Items: items}, nil
}
