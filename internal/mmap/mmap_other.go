//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Fallback for platforms without unix mmap support: read the whole file.
// Correctness over zero-copy; local stores on these platforms still work.
func mapFile(f *os.File, size int64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

func unmapFile(_ []byte) error {
	return nil
}
