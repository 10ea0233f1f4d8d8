// Package mmap provides read-only memory-mapped file access for local blob
// reads.
package mmap

import (
	"fmt"
	"os"
)

// Mapping is a read-only mapping of a whole file.
type Mapping struct {
	data   []byte
	closed bool
}

// Open maps the file at path read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if size == 0 {
		return &Mapping{data: []byte{}}, nil
	}

	data, err := mapFile(f, size)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped content. Valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Close unmaps the file.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if len(m.data) == 0 {
		return nil
	}
	data := m.data
	m.data = nil
	return unmapFile(data)
}
