package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	// descriptorMagic identifies scalardex descriptor records (ASCII "SDX0").
	descriptorMagic = 0x53445830

	// DescriptorVersion is the current descriptor format version.
	DescriptorVersion = 1

	// DescriptorSize is the fixed on-disk size of a descriptor record.
	DescriptorSize = 32

	// crcOffset is where the checksum of the preceding bytes lives.
	crcOffset = 20
)

var (
	// ErrCorruptDescriptor is returned when the descriptor record is
	// missing, truncated, or fails validation. Callers must treat it as
	// fatal for the load; guessing a default encoding would corrupt every
	// subsequent query.
	ErrCorruptDescriptor = errors.New("corrupt index descriptor")

	// ErrUnsupportedVersion is returned for descriptor versions this
	// build does not understand.
	ErrUnsupportedVersion = errors.New("unsupported descriptor version")
)

// Descriptor is the small self-describing record persisted alongside a
// serialized index. It is the only part of the on-disk format owned by the
// hybrid layer; every other blob is opaque variant data.
//
// Layout (little-endian):
//
//	[0:4]   magic "SDX0"
//	[4:8]   format version
//	[8]     variant kind
//	[9]     element kind
//	[10:12] padding
//	[12:20] row count
//	[20:24] CRC32 (IEEE) of bytes [0:20]
//	[24:32] reserved
type Descriptor struct {
	Kind Kind
	Elem ElemKind
	Rows uint64
}

// MarshalBinary encodes the descriptor into its fixed 32-byte form.
func (d *Descriptor) MarshalBinary() ([]byte, error) {
	if !d.Kind.Valid() {
		return nil, fmt.Errorf("descriptor: cannot encode kind %s", d.Kind)
	}
	if !d.Elem.Valid() {
		return nil, fmt.Errorf("descriptor: cannot encode element kind %s", d.Elem)
	}

	buf := make([]byte, DescriptorSize)
	binary.LittleEndian.PutUint32(buf[0:4], descriptorMagic)
	binary.LittleEndian.PutUint32(buf[4:8], DescriptorVersion)
	buf[8] = byte(d.Kind)
	buf[9] = byte(d.Elem)
	binary.LittleEndian.PutUint64(buf[12:20], d.Rows)
	binary.LittleEndian.PutUint32(buf[crcOffset:crcOffset+4], crc32.ChecksumIEEE(buf[:crcOffset]))
	return buf, nil
}

// UnmarshalDescriptor decodes and validates a descriptor record.
//
// Every failure wraps ErrCorruptDescriptor (or ErrUnsupportedVersion) so the
// caller can distinguish "bad bytes" from "bad usage".
func UnmarshalDescriptor(data []byte) (*Descriptor, error) {
	if len(data) < DescriptorSize {
		return nil, fmt.Errorf("%w: truncated record: %d bytes, want %d", ErrCorruptDescriptor, len(data), DescriptorSize)
	}

	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != descriptorMagic {
		return nil, fmt.Errorf("%w: invalid magic 0x%08x", ErrCorruptDescriptor, magic)
	}

	if sum := binary.LittleEndian.Uint32(data[crcOffset : crcOffset+4]); sum != crc32.ChecksumIEEE(data[:crcOffset]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptDescriptor)
	}

	if version := binary.LittleEndian.Uint32(data[4:8]); version != DescriptorVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version)
	}

	d := &Descriptor{
		Kind: Kind(data[8]),
		Elem: ElemKind(data[9]),
		Rows: binary.LittleEndian.Uint64(data[12:20]),
	}
	if !d.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown variant kind %d", ErrCorruptDescriptor, data[8])
	}
	if !d.Elem.Valid() {
		return nil, fmt.Errorf("%w: unknown element kind %d", ErrCorruptDescriptor, data[9])
	}
	return d, nil
}
