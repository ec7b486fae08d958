package eip

import (
	"bytes"

	"github.com/openenip/goenip/pkg/wire"
)

// ListIdentityItem is the CIP Identity item (type id 0x0C) carried in
// a ListIdentity reply.
type ListIdentityItem struct {
	EncapsVersion uint16
	SocketAddr    [16]byte
	VendorID      uint16
	DeviceType    uint16
	ProductCode   uint16
	RevisionMajor byte
	RevisionMinor byte
	Status        uint16
	SerialNumber  uint32
	ProductName   string
	State         byte
}

// ListServicesItem is one advertised service in a ListServices reply.
type ListServicesItem struct {
	Version         uint16
	CapabilityFlags uint16
	Name            string
}

func tryParseListServicesItem(buf []byte) (ListServicesItem, []byte, error) {
	if len(buf) < 4 {
		return ListServicesItem{}, nil, wire.NewIncomplete(4 - len(buf))
	}
	typeID, _ := wire.U16(buf[0:2])
	length, _ := wire.U16(buf[2:4])
	if typeID != TypeListServices {
		return ListServicesItem{}, nil, wire.NewMalformed("eip.list_services_item", "unexpected type id")
	}
	rest := buf[4:]
	if len(rest) < int(length) {
		return ListServicesItem{}, nil, wire.NewIncomplete(int(length) - len(rest))
	}
	body := rest[:length]
	if len(body) < 20 {
		return ListServicesItem{}, nil, wire.NewMalformed("eip.list_services_item", "body shorter than 20 bytes")
	}
	version, _ := wire.U16(body[0:2])
	caps, _ := wire.U16(body[2:4])
	name := string(bytes.TrimRight(body[4:20], "\x00"))
	return ListServicesItem{Version: version, CapabilityFlags: caps, Name: name}, rest[length:], nil
}

// TryParseListIdentityResponse decodes the response_data of a
// ListIdentity reply: an item count followed by that many items.
// Non-Identity item types are skipped by their declared length rather
// than aborting the whole decode, matching the CPF lenient-decode
// posture since a ListIdentity reply is not itself a CPF list.
func TryParseListIdentityResponse(data []byte) ([]ListIdentityItem, error) {
	count, err := wire.U16(data)
	if err != nil {
		return nil, err
	}
	rest := data[2:]
	items := make([]ListIdentityItem, 0, count)
	for i := 0; i < int(count); i++ {
		if len(rest) < 4 {
			return nil, wire.NewIncomplete(4 - len(rest))
		}
		typeID, _ := wire.U16(rest[0:2])
		length, _ := wire.U16(rest[2:4])
		rest = rest[4:]
		if len(rest) < int(length) {
			return nil, wire.NewIncomplete(int(length) - len(rest))
		}
		body := rest[:length]
		rest = rest[length:]

		if typeID != TypeListIdentity {
			continue
		}
		item, err := decodeListIdentityBody(body)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeListIdentityBody(body []byte) (ListIdentityItem, error) {
	const fixedLen = 2 + 16 + 2 + 2 + 2 + 2 + 2 + 4 + 1 // through product name length byte
	if len(body) < fixedLen {
		return ListIdentityItem{}, wire.NewMalformed("eip.list_identity_item", "body too short")
	}
	var item ListIdentityItem
	item.EncapsVersion, _ = wire.U16(body[0:2])
	copy(item.SocketAddr[:], body[2:18])
	item.VendorID, _ = wire.U16(body[18:20])
	item.DeviceType, _ = wire.U16(body[20:22])
	item.ProductCode, _ = wire.U16(body[22:24])
	item.RevisionMajor = body[24]
	item.RevisionMinor = body[25]
	item.Status, _ = wire.U16(body[26:28])
	item.SerialNumber, _ = wire.U32(body[28:32])
	nameLen := int(body[32])
	rest := body[33:]
	if len(rest) < nameLen+1 {
		return ListIdentityItem{}, wire.NewMalformed("eip.list_identity_item", "product name truncated")
	}
	item.ProductName = string(rest[:nameLen])
	item.State = rest[nameLen]
	return item, nil
}

// TryParseListServicesResponse decodes the response_data of a
// ListServices reply.
func TryParseListServicesResponse(data []byte) ([]ListServicesItem, error) {
	count, err := wire.U16(data)
	if err != nil {
		return nil, err
	}
	rest := data[2:]
	items := make([]ListServicesItem, 0, count)
	for i := 0; i < int(count); i++ {
		item, remainder, err := tryParseListServicesItem(rest)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		rest = remainder
	}
	return items, nil
}
