package lineinput

// Kind tells which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is the result of a Request: decoded text, raw bytes, or null at the
// end of a stream read in null-on-EOF mode. The zero Value is null.
type Value struct {
	kind Kind
	text string
	raw  []byte
}

func Null() Value {
	return Value{}
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Bytes wraps b without copying it.
func Bytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBytes, raw: b}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// String returns the text, or the raw bytes as a string. Null is "".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindBytes:
		return string(v.raw)
	default:
		return ""
	}
}

// Bytes returns the raw bytes, or the text as bytes. Null is nil.
func (v Value) Bytes() []byte {
	switch v.kind {
	case KindText:
		return []byte(v.text)
	case KindBytes:
		return v.raw
	default:
		return nil
	}
}
