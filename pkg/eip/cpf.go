package eip

import (
	"github.com/openenip/goenip/pkg/wire"
)

// CPF item type ids.
const (
	TypeNullAddress      uint16 = 0x0000
	TypeListIdentity     uint16 = 0x000C
	TypeConnectedAddress uint16 = 0x00A1
	TypeConnectedData    uint16 = 0x00B1
	TypeUnconnectedData  uint16 = 0x00B2
	TypeListServices     uint16 = 0x0100
	TypeSockAddrO2T      uint16 = 0x8000
	TypeSockAddrT2O      uint16 = 0x8001
	TypeSequencedAddress uint16 = 0x8002
)

// Item is one element of a CPF list. The concrete types below are the
// tagged-variant alternatives; order in an ItemList is meaningful (a
// Connected Address item must precede its Connected Data item) and is
// always preserved by Encode/DecodeItemList.
type Item interface {
	wire.Encoder
	typeID() uint16
	body() []byte
}

func encodeItem(it Item) []byte {
	b := it.body()
	buf := make([]byte, 0, 4+len(b))
	buf = wire.PutU16(buf, it.typeID())
	buf = wire.PutU16(buf, uint16(len(b)))
	buf = append(buf, b...)
	return buf
}

// NullAddressItem marks unconnected messaging in a SendRRData CPF list.
type NullAddressItem struct{}

func (NullAddressItem) typeID() uint16    { return TypeNullAddress }
func (NullAddressItem) body() []byte      { return nil }
func (it NullAddressItem) Encode() []byte { return encodeItem(it) }

// ConnectedAddressItem carries the connection id from a prior
// ForwardOpen, addressing a connected (class 3) exchange.
type ConnectedAddressItem struct {
	ConnectionID uint32
}

func (it ConnectedAddressItem) typeID() uint16 { return TypeConnectedAddress }
func (it ConnectedAddressItem) body() []byte   { return wire.PutU32(nil, it.ConnectionID) }
func (it ConnectedAddressItem) Encode() []byte { return encodeItem(it) }

// ConnectedDataItem carries a connected-messaging CIP payload. Data
// includes the leading sequence number the wire format requires; this
// layer treats it as opaque bytes.
type ConnectedDataItem struct {
	Data []byte
}

func (it ConnectedDataItem) typeID() uint16 { return TypeConnectedData }
func (it ConnectedDataItem) body() []byte   { return it.Data }
func (it ConnectedDataItem) Encode() []byte { return encodeItem(it) }

// UnconnectedDataItem carries an unconnected CIP payload — the common
// case of a Message Router request wrapped in UnconnectedSend.
type UnconnectedDataItem struct {
	Data []byte
}

func (it UnconnectedDataItem) typeID() uint16 { return TypeUnconnectedData }
func (it UnconnectedDataItem) body() []byte   { return it.Data }
func (it UnconnectedDataItem) Encode() []byte { return encodeItem(it) }

// SockAddrItem carries a sockaddr_in for implicit (UDP I/O) addressing.
// O2T (0x8000) describes originator-to-target traffic, T2O (0x8001)
// target-to-originator; the wire fields are big-endian network order,
// unlike every other field in the protocol.
type SockAddrItem struct {
	TypeIDValue uint16 // TypeSockAddrO2T or TypeSockAddrT2O
	Family      uint32
	Port        uint16
	Address     uint32
}

func (it SockAddrItem) typeID() uint16 { return it.TypeIDValue }

func (it SockAddrItem) body() []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, byte(it.Family>>24), byte(it.Family>>16), byte(it.Family>>8), byte(it.Family))
	buf = append(buf, byte(it.Port>>8), byte(it.Port))
	buf = append(buf, byte(it.Address>>24), byte(it.Address>>16), byte(it.Address>>8), byte(it.Address))
	buf = append(buf, make([]byte, 8)...)
	return buf
}

func (it SockAddrItem) Encode() []byte { return encodeItem(it) }

func decodeSockAddr(typeID uint16, b []byte) (SockAddrItem, error) {
	if len(b) < 16 {
		return SockAddrItem{}, wire.NewMalformed("cpf.sockaddr", "body shorter than 16 bytes")
	}
	family := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	port := uint16(b[4])<<8 | uint16(b[5])
	addr := uint32(b[6])<<24 | uint32(b[7])<<16 | uint32(b[8])<<8 | uint32(b[9])
	return SockAddrItem{TypeIDValue: typeID, Family: family, Port: port, Address: addr}, nil
}

// UnknownItem preserves a CPF item this codec doesn't understand by
// type id, so a lenient decode can skip exactly its declared length
// without losing frame alignment or silently dropping it from the
// list.
type UnknownItem struct {
	TypeIDValue uint16
	Data        []byte
}

func (it UnknownItem) typeID() uint16 { return it.TypeIDValue }
func (it UnknownItem) body() []byte   { return it.Data }
func (it UnknownItem) Encode() []byte { return encodeItem(it) }

// ItemList is an ordered CPF item list.
type ItemList struct {
	Items []Item
}

// Encode serializes item_count followed by each item in order.
func (l ItemList) Encode() []byte {
	buf := wire.PutU16(nil, uint16(len(l.Items)))
	for _, it := range l.Items {
		buf = append(buf, it.Encode()...)
	}
	return buf
}

// DecodeItemList decodes a CPF list strictly: an item whose type id
// isn't one of the known variants aborts decoding with
// UnknownCpfItem. Use DecodeItemListLenient to tolerate and skip
// unknown items instead.
func DecodeItemList(buf []byte) (ItemList, error) {
	return decodeItemList(buf, false)
}

// DecodeItemListLenient decodes a CPF list, substituting an
// UnknownItem (consuming exactly its declared length) for any item
// type id it doesn't recognize instead of failing.
func DecodeItemListLenient(buf []byte) (ItemList, error) {
	return decodeItemList(buf, true)
}

func decodeItemList(buf []byte, lenient bool) (ItemList, error) {
	count, err := wire.U16(buf)
	if err != nil {
		return ItemList{}, err
	}
	rest := buf[2:]
	items := make([]Item, 0, count)
	for i := 0; i < int(count); i++ {
		typeID, err := wire.U16(rest)
		if err != nil {
			return ItemList{}, err
		}
		length, err := wire.U16(rest[2:])
		if err != nil {
			return ItemList{}, err
		}
		rest = rest[4:]
		if len(rest) < int(length) {
			return ItemList{}, wire.NewIncomplete(int(length) - len(rest))
		}
		body := rest[:length]
		rest = rest[length:]

		item, err := decodeItemBody(typeID, body)
		if err != nil {
			if lenient {
				item = UnknownItem{TypeIDValue: typeID, Data: append([]byte(nil), body...)}
			} else {
				return ItemList{}, err
			}
		}
		items = append(items, item)
	}
	return ItemList{Items: items}, nil
}

func decodeItemBody(typeID uint16, body []byte) (Item, error) {
	switch typeID {
	case TypeNullAddress:
		return NullAddressItem{}, nil
	case TypeConnectedAddress:
		if len(body) < 4 {
			return nil, wire.NewMalformed("cpf.connected_address", "body shorter than 4 bytes")
		}
		id, _ := wire.U32(body)
		return ConnectedAddressItem{ConnectionID: id}, nil
	case TypeConnectedData:
		return ConnectedDataItem{Data: append([]byte(nil), body...)}, nil
	case TypeUnconnectedData:
		return UnconnectedDataItem{Data: append([]byte(nil), body...)}, nil
	case TypeSockAddrO2T, TypeSockAddrT2O:
		return decodeSockAddr(typeID, body)
	default:
		return nil, wire.NewUnknownCpfItem(typeID)
	}
}

// FindFirst returns the first item in the list with the given type id.
func (l ItemList) FindFirst(typeID uint16) (Item, bool) {
	for _, it := range l.Items {
		if it.typeID() == typeID {
			return it, true
		}
	}
	return nil, false
}
