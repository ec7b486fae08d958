package eip

import (
	"bytes"
	"testing"
)

func TestItemListRoundTrip(t *testing.T) {
	list := ItemList{Items: []Item{
		NullAddressItem{},
		UnconnectedDataItem{Data: []byte{0x01, 0x02, 0x03}},
	}}
	encoded := list.Encode()
	got, err := DecodeItemList(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != len(list.Items) {
		t.Fatalf("got %d items, want %d", len(got.Items), len(list.Items))
	}
	if _, ok := got.Items[0].(NullAddressItem); !ok {
		t.Fatalf("item 0 not NullAddressItem: %T", got.Items[0])
	}
	data, ok := got.Items[1].(UnconnectedDataItem)
	if !ok {
		t.Fatalf("item 1 not UnconnectedDataItem: %T", got.Items[1])
	}
	if !bytes.Equal(data.Data, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("got %v", data.Data)
	}
}

func TestItemOrderPreserved(t *testing.T) {
	list := ItemList{Items: []Item{
		ConnectedAddressItem{ConnectionID: 0x11223344},
		ConnectedDataItem{Data: []byte{0xAA, 0xBB}},
	}}
	got, err := DecodeItemList(list.Encode())
	if err != nil {
		t.Fatal(err)
	}
	addr, ok := got.Items[0].(ConnectedAddressItem)
	if !ok || addr.ConnectionID != 0x11223344 {
		t.Fatalf("item 0 wrong: %+v", got.Items[0])
	}
	if _, ok := got.Items[1].(ConnectedDataItem); !ok {
		t.Fatalf("item 1 wrong order: %T", got.Items[1])
	}
}

func TestUnknownItemStrictErrors(t *testing.T) {
	// Hand-build: count=2, unknown type 0xBEEF len=2, then a Null Address item.
	buf := []byte{0x02, 0x00}
	buf = append(buf, 0xEF, 0xBE, 0x02, 0x00, 0x01, 0x02)
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)

	_, err := DecodeItemList(buf)
	if err == nil {
		t.Fatal("expected UnknownCpfItem error")
	}
}

func TestUnknownItemLenientSkipsAndDecodesNext(t *testing.T) {
	buf := []byte{0x02, 0x00}
	buf = append(buf, 0xEF, 0xBE, 0x02, 0x00, 0x01, 0x02) // unknown, 2-byte body
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)             // Null Address

	list, err := DecodeItemListLenient(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("got %d items", len(list.Items))
	}
	unk, ok := list.Items[0].(UnknownItem)
	if !ok || unk.TypeIDValue != 0xBEEF {
		t.Fatalf("item 0 wrong: %+v", list.Items[0])
	}
	if _, ok := list.Items[1].(NullAddressItem); !ok {
		t.Fatalf("item 1 wrong: %T", list.Items[1])
	}
}

func TestItemCountAgreement(t *testing.T) {
	list := ItemList{Items: []Item{NullAddressItem{}, UnconnectedDataItem{Data: []byte{1}}}}
	decoded, err := DecodeItemList(list.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Items) != len(list.Items) {
		t.Fatalf("count mismatch")
	}
}

func TestSockAddrItemRoundTrip(t *testing.T) {
	it := SockAddrItem{TypeIDValue: TypeSockAddrO2T, Family: 2, Port: 2222, Address: 0xC0A80101}
	list := ItemList{Items: []Item{it}}
	decoded, err := DecodeItemList(list.Encode())
	if err != nil {
		t.Fatal(err)
	}
	got, ok := decoded.Items[0].(SockAddrItem)
	if !ok || got != it {
		t.Fatalf("got %+v, want %+v", got, it)
	}
}
