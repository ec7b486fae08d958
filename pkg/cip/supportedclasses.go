package cip

import (
	"sort"

	"github.com/openenip/goenip/pkg/wire"
)

// TryParseSupportedClasses decodes the response_data of a
// GetAttributesAll (service 0x01) call against class=MessageRouter,
// instance=1, attribute=1: count:u16 followed by that many class ids, returned sorted
// ascending.
func TryParseSupportedClasses(data []byte) ([]uint16, error) {
	count, err := wire.U16(data)
	if err != nil {
		return nil, err
	}
	rest := data[2:]
	classes := make([]uint16, count)
	for i := 0; i < int(count); i++ {
		v, err := wire.U16(rest[i*2:])
		if err != nil {
			return nil, err
		}
		classes[i] = v
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes, nil
}
