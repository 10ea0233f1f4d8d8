package index

import "fmt"

// ElemKind identifies the element type an index was built over. It is
// persisted in the descriptor so a loader can reject an index instantiated
// with the wrong type parameter instead of misreading variant bytes.
type ElemKind uint8

const (
	// ElemInvalid is the zero value and never persisted.
	ElemInvalid ElemKind = iota
	ElemInt8
	ElemInt16
	ElemInt32
	ElemInt64
	ElemUint8
	ElemUint16
	ElemUint32
	ElemUint64
	ElemFloat32
	ElemFloat64
	ElemString
)

// String returns a human-readable name for the element kind.
func (e ElemKind) String() string {
	switch e {
	case ElemInt8:
		return "int8"
	case ElemInt16:
		return "int16"
	case ElemInt32:
		return "int32"
	case ElemInt64:
		return "int64"
	case ElemUint8:
		return "uint8"
	case ElemUint16:
		return "uint16"
	case ElemUint32:
		return "uint32"
	case ElemUint64:
		return "uint64"
	case ElemFloat32:
		return "float32"
	case ElemFloat64:
		return "float64"
	case ElemString:
		return "string"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(e))
	}
}

// Valid reports whether e names a supported element type.
func (e ElemKind) Valid() bool {
	return e >= ElemInt8 && e <= ElemString
}

// IsString reports whether e is the string element type.
func (e ElemKind) IsString() bool {
	return e == ElemString
}

// ElemKindOf returns the element kind for the type parameter T.
func ElemKindOf[T Scalar]() ElemKind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return ElemInt8
	case int16:
		return ElemInt16
	case int32:
		return ElemInt32
	case int64:
		return ElemInt64
	case uint8:
		return ElemUint8
	case uint16:
		return ElemUint16
	case uint32:
		return ElemUint32
	case uint64:
		return ElemUint64
	case float32:
		return ElemFloat32
	case float64:
		return ElemFloat64
	case string:
		return ElemString
	default:
		return ElemInvalid
	}
}
