// Package connmgr builds the originator-side requests the Connection
// Manager object (class 0x06, instance 1) understands: ForwardOpen,
// ForwardClose, and UnconnectedSend. It has no server-side dispatch —
// that belongs to a device, not a client library.
package connmgr

import (
	"math/rand"

	"github.com/openenip/goenip/pkg/cip"
	"github.com/openenip/goenip/pkg/epath"
	"github.com/openenip/goenip/pkg/wire"
)

// Connection Manager service codes.
const (
	ServiceForwardOpen     byte = 0x54
	ServiceForwardClose    byte = 0x4E
	ServiceUnconnectedSend byte = 0x52
)

// ForwardOpenRequest is the CIP payload of a ForwardOpen (0x54) call.
type ForwardOpenRequest struct {
	PriorityTimeTick            byte
	TimeoutTicks                byte
	OTConnectionID              uint32
	TOConnectionID              uint32
	ConnectionSerialNumber      uint16
	OriginatorVendorID          uint16
	OriginatorSerialNumber      uint32
	ConnectionTimeoutMultiplier byte
	OTRPIMicroseconds           uint32
	OTNetworkParams             uint16
	TORPIMicroseconds           uint32
	TONetworkParams             uint16
	TransportClassAndTrigger    byte
	ConnectionPath              epath.Path
}

// Encode serializes the fixed 35-byte preamble, then the
// connection_path as a word-count byte followed by its bytes.
func (r ForwardOpenRequest) Encode() ([]byte, error) {
	pathBytes, err := r.ConnectionPath.EncodeWithWordCount()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 36+len(pathBytes))
	buf = append(buf, r.PriorityTimeTick, r.TimeoutTicks)
	buf = wire.PutU32(buf, r.OTConnectionID)
	buf = wire.PutU32(buf, r.TOConnectionID)
	buf = wire.PutU16(buf, r.ConnectionSerialNumber)
	buf = wire.PutU16(buf, r.OriginatorVendorID)
	buf = wire.PutU32(buf, r.OriginatorSerialNumber)
	buf = append(buf, r.ConnectionTimeoutMultiplier)
	buf = append(buf, 0x00, 0x00, 0x00) // 3 reserved bytes
	buf = wire.PutU32(buf, r.OTRPIMicroseconds)
	buf = wire.PutU16(buf, r.OTNetworkParams)
	buf = wire.PutU32(buf, r.TORPIMicroseconds)
	buf = wire.PutU16(buf, r.TONetworkParams)
	buf = append(buf, r.TransportClassAndTrigger)
	buf = append(buf, pathBytes...)
	return buf, nil
}

// MakeNullForwardOpen builds a ForwardOpen request suitable only for
// path validation: every connection parameter is zeroed except
// timeout_ticks (0xFF), connection_serial_number (randomized) and the
// originator ids, which carry documented placeholder values (vendor id
// 1, originator serial 0x12345678). A device rejects it for any
// reason other than the path itself being bad, so it's useful to probe
// whether a route is reachable without opening a real connection.
func MakeNullForwardOpen(path epath.Path) ForwardOpenRequest {
	return ForwardOpenRequest{
		PriorityTimeTick:       0x00,
		TimeoutTicks:           0xFF,
		ConnectionSerialNumber: uint16(rand.Intn(0x10000)),
		OriginatorVendorID:     1,
		OriginatorSerialNumber: 0x12345678,
		ConnectionPath:         path,
	}
}

// ForwardOpenResponse is the success-path result of a ForwardOpen call
// (general_status 0x00); the caller is expected to have already
// checked cip.Response.Err().
type ForwardOpenResponse struct {
	OTConnectionID         uint32
	TOConnectionID         uint32
	ConnectionSerialNumber uint16
	OriginatorVendorID     uint16
	OriginatorSerialNumber uint32
	OTActualPacketInterval uint32
	TOActualPacketInterval uint32
	ApplicationReply       []byte
}

// TryParseForwardOpenResponse decodes a successful ForwardOpen reply body.
func TryParseForwardOpenResponse(data []byte) (ForwardOpenResponse, error) {
	const fixedLen = 4 + 4 + 2 + 2 + 4 + 4 + 4 + 1 + 1
	if len(data) < fixedLen {
		return ForwardOpenResponse{}, wire.NewIncomplete(fixedLen - len(data))
	}
	var r ForwardOpenResponse
	r.OTConnectionID, _ = wire.U32(data[0:4])
	r.TOConnectionID, _ = wire.U32(data[4:8])
	r.ConnectionSerialNumber, _ = wire.U16(data[8:10])
	r.OriginatorVendorID, _ = wire.U16(data[10:12])
	r.OriginatorSerialNumber, _ = wire.U32(data[12:16])
	r.OTActualPacketInterval, _ = wire.U32(data[16:20])
	r.TOActualPacketInterval, _ = wire.U32(data[20:24])
	replySize := int(data[24])
	rest := data[26:]
	if len(rest) < replySize {
		return ForwardOpenResponse{}, wire.NewIncomplete(replySize - len(rest))
	}
	r.ApplicationReply = append([]byte(nil), rest[:replySize]...)
	return r, nil
}

// ForwardCloseRequest is the CIP payload of a ForwardClose (0x4E)
// call, symmetric with ForwardOpenRequest: it identifies the
// connection to tear down by its serial number and originator ids
// rather than by connection id.
type ForwardCloseRequest struct {
	PriorityTimeTick       byte
	TimeoutTicks           byte
	ConnectionSerialNumber uint16
	OriginatorVendorID     uint16
	OriginatorSerialNumber uint32
	ConnectionPath         epath.Path
}

// Encode serializes the ForwardClose request body.
func (r ForwardCloseRequest) Encode() ([]byte, error) {
	pathBytes, err := r.ConnectionPath.EncodeWithWordCount()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 10+len(pathBytes))
	buf = append(buf, r.PriorityTimeTick, r.TimeoutTicks)
	buf = wire.PutU16(buf, r.ConnectionSerialNumber)
	buf = wire.PutU16(buf, r.OriginatorVendorID)
	buf = wire.PutU32(buf, r.OriginatorSerialNumber)
	buf = append(buf, pathBytes[0], 0x00) // path size word count, reserved byte
	buf = append(buf, pathBytes[1:]...)
	return buf, nil
}

// ForwardCloseResponse is the success-path result of a ForwardClose call.
type ForwardCloseResponse struct {
	ConnectionSerialNumber uint16
	OriginatorVendorID     uint16
	OriginatorSerialNumber uint32
	ApplicationReply       []byte
}

// TryParseForwardCloseResponse decodes a successful ForwardClose reply body.
func TryParseForwardCloseResponse(data []byte) (ForwardCloseResponse, error) {
	const fixedLen = 2 + 2 + 4 + 1 + 1
	if len(data) < fixedLen {
		return ForwardCloseResponse{}, wire.NewIncomplete(fixedLen - len(data))
	}
	var r ForwardCloseResponse
	r.ConnectionSerialNumber, _ = wire.U16(data[0:2])
	r.OriginatorVendorID, _ = wire.U16(data[2:4])
	r.OriginatorSerialNumber, _ = wire.U32(data[4:8])
	replySize := int(data[8])
	rest := data[10:]
	if len(rest) < replySize {
		return ForwardCloseResponse{}, wire.NewIncomplete(replySize - len(rest))
	}
	r.ApplicationReply = append([]byte(nil), rest[:replySize]...)
	return r, nil
}

// UnconnectedSendRequest wraps an embedded Message Router request for
// routing to a target reached via route_path, for use with an
// unconnected (explicit) session.
type UnconnectedSendRequest struct {
	PriorityTimeTick byte
	TimeoutTicks     byte
	EmbeddedRequest  []byte
	RoutePath        epath.Path
}

// Encode serializes embedded_length, the embedded request, a pad byte
// if that length is odd, then route_path_size_in_words, a reserved
// zero byte, and the route path bytes.
func (r UnconnectedSendRequest) Encode() ([]byte, error) {
	pathBytes, err := r.RoutePath.EncodeWithWordCount()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 5+len(r.EmbeddedRequest)+1+len(pathBytes))
	buf = append(buf, r.PriorityTimeTick, r.TimeoutTicks)
	buf = wire.PutU16(buf, uint16(len(r.EmbeddedRequest)))
	buf = append(buf, r.EmbeddedRequest...)
	if len(r.EmbeddedRequest)%2 != 0 {
		buf = append(buf, 0x00)
	}
	buf = append(buf, pathBytes[0], 0x00) // route_path_size_in_words, reserved
	buf = append(buf, pathBytes[1:]...)
	return buf, nil
}

// NewUnconnectedSendRequest builds the request to invoke
// UnconnectedSend (service 0x52) on the Connection Manager (class
// 0x06, instance 1), wrapping req and routing it via routePath.
func NewUnconnectedSendRequest(req cip.Request, routePath epath.Path, priorityTimeTick, timeoutTicks byte) (cip.Request, error) {
	embedded, err := req.Encode()
	if err != nil {
		return cip.Request{}, err
	}
	usReq := UnconnectedSendRequest{
		PriorityTimeTick: priorityTimeTick,
		TimeoutTicks:     timeoutTicks,
		EmbeddedRequest:  embedded,
		RoutePath:        routePath,
	}
	data, err := usReq.Encode()
	if err != nil {
		return cip.Request{}, err
	}
	return cip.Request{
		Service: ServiceUnconnectedSend,
		Path:    epath.ClassInstance(uint32(cip.ClassConnectionMgr), 1),
		Data:    data,
	}, nil
}
