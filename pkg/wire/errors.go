package wire

import "fmt"

// ParseErrorKind distinguishes why a decode failed.
type ParseErrorKind int

const (
	// KindIncomplete means the buffer ended before a complete value
	// could be read; Needed carries the additional byte count when
	// known, 0 when the decoder can't size the shortfall in advance.
	KindIncomplete ParseErrorKind = iota
	// KindMalformed means the bytes present are structurally invalid
	// for the field being decoded (bad discriminant, odd path length
	// where an even one is required, etc).
	KindMalformed
	// KindUnknownCpfItem means a CPF item's type id isn't one this
	// codec understands. eip.DecodeItemList aborts on it;
	// eip.DecodeItemListLenient keeps the item as an UnknownItem and
	// goes on with the rest of the list.
	KindUnknownCpfItem
	// KindNotSupported means the bytes describe a feature this codec
	// deliberately doesn't implement (e.g. extended port links).
	KindNotSupported
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindIncomplete:
		return "incomplete"
	case KindMalformed:
		return "malformed"
	case KindUnknownCpfItem:
		return "unknown_cpf_item"
	case KindNotSupported:
		return "not_supported"
	default:
		return "unknown"
	}
}

// ParseError is returned by every try-parse in the codec layer. It
// never panics its way out of malformed input.
type ParseError struct {
	Kind   ParseErrorKind
	Field  string // set for KindMalformed
	Needed int    // set for KindIncomplete, when known
	Detail string // set for KindNotSupported / extra context
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindIncomplete:
		if e.Needed > 0 {
			return fmt.Sprintf("incomplete: need %d more byte(s)", e.Needed)
		}
		return "incomplete: need more bytes"
	case KindMalformed:
		return fmt.Sprintf("malformed field %q: %s", e.Field, e.Detail)
	case KindUnknownCpfItem:
		return fmt.Sprintf("unknown cpf item: %s", e.Detail)
	case KindNotSupported:
		return fmt.Sprintf("not supported: %s", e.Detail)
	default:
		return "parse error"
	}
}

// NewIncomplete builds a KindIncomplete ParseError. needed may be 0 if
// the shortfall size isn't known until more of the header is parsed.
func NewIncomplete(needed int) *ParseError {
	if needed < 0 {
		needed = 0
	}
	return &ParseError{Kind: KindIncomplete, Needed: needed}
}

// NewMalformed builds a KindMalformed ParseError naming the offending field.
func NewMalformed(field, detail string) *ParseError {
	return &ParseError{Kind: KindMalformed, Field: field, Detail: detail}
}

// NewUnknownCpfItem builds a KindUnknownCpfItem ParseError.
func NewUnknownCpfItem(typeID uint16) *ParseError {
	return &ParseError{Kind: KindUnknownCpfItem, Detail: fmt.Sprintf("type_id=0x%04X", typeID)}
}

// NewNotSupported builds a KindNotSupported ParseError.
func NewNotSupported(feature string) *ParseError {
	return &ParseError{Kind: KindNotSupported, Detail: feature}
}

// EncodingInvariantViolated is returned by an encoder that was asked to
// build a structurally invalid wire object (odd-length EPath, a value
// too wide for its segment, etc). Constructing these situations is a
// programming error in the caller; the codec layer refuses to encode
// them rather than emit bytes that would fail to round-trip.
type EncodingInvariantViolated struct {
	Reason string
}

func (e *EncodingInvariantViolated) Error() string {
	return fmt.Sprintf("encoding invariant violated: %s", e.Reason)
}

// NewEncodingInvariantViolated builds an EncodingInvariantViolated error.
func NewEncodingInvariantViolated(reason string) *EncodingInvariantViolated {
	return &EncodingInvariantViolated{Reason: reason}
}
