package index

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxElementCount bounds decoded counts so a corrupt length prefix cannot
// drive a multi-gigabyte allocation before validation fails.
const maxElementCount = 1 << 31

// Writer accumulates little-endian binary output for variant blobs.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated output.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// PutUint32 appends a uint32.
func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// PutUint64 appends a uint64.
func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// PutBytes appends a length-prefixed byte slice.
func (w *Writer) PutBytes(p []byte) {
	w.PutUint32(uint32(len(p)))
	w.buf = append(w.buf, p...)
}

// PutUint32Slice appends a length-prefixed uint32 slice.
func (w *Writer) PutUint32Slice(vs []uint32) {
	w.PutUint32(uint32(len(vs)))
	for _, v := range vs {
		w.PutUint32(v)
	}
}

// Reader consumes little-endian binary input produced by Writer. Every read
// validates remaining length; short input surfaces as an error, never a
// panic.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("binary reader: need %d bytes, have %d", n, r.Remaining())
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

// Uint32 reads a uint32.
func (r *Reader) Uint32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Uint64 reads a uint64.
func (r *Reader) Uint64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// Bytes reads a length-prefixed byte slice. The result aliases the input.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if n > maxElementCount {
		return nil, fmt.Errorf("binary reader: byte length %d exceeds limit", n)
	}
	return r.take(int(n))
}

// Uint32Slice reads a length-prefixed uint32 slice.
func (r *Reader) Uint32Slice() ([]uint32, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*4 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("binary reader: uint32 count %d exceeds input", n)
	}
	out := make([]uint32, n)
	for i := range out {
		out[i], err = r.Uint32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// elemWidth returns the fixed encoded width of an element kind, or 0 for
// variable-width kinds.
func elemWidth(e ElemKind) int {
	switch e {
	case ElemInt8, ElemUint8:
		return 1
	case ElemInt16, ElemUint16:
		return 2
	case ElemInt32, ElemUint32, ElemFloat32:
		return 4
	case ElemInt64, ElemUint64, ElemFloat64:
		return 8
	default:
		return 0
	}
}

// EncodeColumn appends a length-prefixed column of scalar values to w.
// Numerics are fixed-width little-endian; strings are length-prefixed.
func EncodeColumn[T Scalar](w *Writer, values []T) {
	w.PutUint32(uint32(len(values)))
	for _, v := range values {
		switch x := any(v).(type) {
		case int8:
			w.buf = append(w.buf, byte(x))
		case uint8:
			w.buf = append(w.buf, x)
		case int16:
			w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(x))
		case uint16:
			w.buf = binary.LittleEndian.AppendUint16(w.buf, x)
		case int32:
			w.PutUint32(uint32(x))
		case uint32:
			w.PutUint32(x)
		case int64:
			w.PutUint64(uint64(x))
		case uint64:
			w.PutUint64(x)
		case float32:
			w.PutUint32(math.Float32bits(x))
		case float64:
			w.PutUint64(math.Float64bits(x))
		case string:
			w.PutBytes([]byte(x))
		}
	}
}

// DecodeColumn reads a column previously written by EncodeColumn.
func DecodeColumn[T Scalar](r *Reader) ([]T, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if n > maxElementCount {
		return nil, fmt.Errorf("column: element count %d exceeds limit", n)
	}
	if width := elemWidth(ElemKindOf[T]()); width > 0 {
		if uint64(n)*uint64(width) > uint64(r.Remaining()) {
			return nil, fmt.Errorf("column: element count %d exceeds input", n)
		}
	}

	out := make([]T, n)
	for i := range out {
		if err := decodeValue(r, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeValue[T Scalar](r *Reader, dst *T) error {
	switch p := any(dst).(type) {
	case *int8:
		b, err := r.take(1)
		if err != nil {
			return err
		}
		*p = int8(b[0])
	case *uint8:
		b, err := r.take(1)
		if err != nil {
			return err
		}
		*p = b[0]
	case *int16:
		b, err := r.take(2)
		if err != nil {
			return err
		}
		*p = int16(binary.LittleEndian.Uint16(b))
	case *uint16:
		b, err := r.take(2)
		if err != nil {
			return err
		}
		*p = binary.LittleEndian.Uint16(b)
	case *int32:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		*p = int32(v)
	case *uint32:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		*p = v
	case *int64:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		*p = int64(v)
	case *uint64:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		*p = v
	case *float32:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		*p = math.Float32frombits(v)
	case *float64:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		*p = math.Float64frombits(v)
	case *string:
		b, err := r.Bytes()
		if err != nil {
			return err
		}
		*p = string(b)
	}
	return nil
}
