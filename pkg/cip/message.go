package cip

import (
	"github.com/openenip/goenip/pkg/epath"
	"github.com/openenip/goenip/pkg/wire"
)

// Request is a Message Router request: a service code, the EPath of
// the target object, and an opaque service-specific payload.
type Request struct {
	Service byte
	Path    epath.Path
	Data    []byte
}

// Encode serializes the request as service, path_size_in_words,
// path_bytes, data_bytes. The path must already be even-length;
// EncodeWithWordCount enforces that.
func (r Request) Encode() ([]byte, error) {
	pathBytes, err := r.Path.EncodeWithWordCount()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 2+len(pathBytes)+len(r.Data))
	buf = append(buf, r.Service)
	buf = append(buf, pathBytes...)
	buf = append(buf, r.Data...)
	return buf, nil
}

// Response is a Message Router response.
type Response struct {
	Service          byte // request service with the high bit set
	GeneralStatus    byte
	AdditionalStatus []uint16
	Data             []byte
}

// IsSuccess reports whether GeneralStatus is StatusSuccess.
func (r Response) IsSuccess() bool {
	return r.GeneralStatus == StatusSuccess
}

// Err returns nil on success, or the CIP Error carried by the
// response otherwise. It is the caller's job to decide whether a
// non-success general_status is fatal for its use case.
func (r Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return Error{GeneralStatus: r.GeneralStatus, AdditionalStatus: r.AdditionalStatus}
}

// TryParseResponse decodes a Message Router response: service,
// reserved, general_status, additional_status_size, that many u16
// words, then the remainder as response data. A service byte with
// the high bit clear is structurally invalid for a reply.
func TryParseResponse(buf []byte) (Response, error) {
	if len(buf) < 4 {
		return Response{}, wire.NewIncomplete(4 - len(buf))
	}
	service := buf[0]
	if service&0x80 == 0 {
		return Response{}, wire.NewMalformed("cip.response.service", "high bit not set on a reply")
	}
	generalStatus := buf[2]
	extSize := int(buf[3])
	rest := buf[4:]

	needed := extSize * 2
	if len(rest) < needed {
		return Response{}, wire.NewIncomplete(needed - len(rest))
	}
	extStatus := make([]uint16, extSize)
	for i := 0; i < extSize; i++ {
		v, _ := wire.U16(rest[i*2 : i*2+2])
		extStatus[i] = v
	}
	data := rest[needed:]

	return Response{
		Service:          service,
		GeneralStatus:    generalStatus,
		AdditionalStatus: extStatus,
		Data:             append([]byte(nil), data...),
	}, nil
}

// NewGetAttributeSingleRequest builds a GetAttributeSingle (0x0E)
// request against class/instance/attribute.
func NewGetAttributeSingleRequest(classID, instanceID, attributeID uint32) Request {
	return Request{Service: ServiceGetAttributeSingle, Path: epath.ClassInstanceAttribute(classID, instanceID, attributeID)}
}

// NewSetAttributeSingleRequest builds a SetAttributeSingle (0x10)
// request carrying data as the new attribute value.
func NewSetAttributeSingleRequest(classID, instanceID, attributeID uint32, data []byte) Request {
	return Request{Service: ServiceSetAttributeSingle, Path: epath.ClassInstanceAttribute(classID, instanceID, attributeID), Data: data}
}

// NewServiceRequest builds a generic request against a class/instance
// pair for an arbitrary service code.
func NewServiceRequest(service byte, classID, instanceID uint32, data []byte) Request {
	return Request{Service: service, Path: epath.ClassInstance(classID, instanceID), Data: data}
}
