package index

import (
	"fmt"
	"sort"
)

// DescriptorKey is the reserved blob name under which the descriptor record
// is stored. Variants must never emit a blob with this name.
const DescriptorKey = "index_type"

// BinarySet is a collection of named binary blobs produced by Serialize and
// consumed by Load. Keys are unique; iteration order is irrelevant.
type BinarySet map[string][]byte

// Append adds a named blob to the set. Adding a name twice is an error so
// variant blobs cannot silently clobber each other or the descriptor.
func (bs BinarySet) Append(name string, data []byte) error {
	if _, ok := bs[name]; ok {
		return fmt.Errorf("binary set: duplicate blob name %q", name)
	}
	bs[name] = data
	return nil
}

// Get returns the blob stored under name.
func (bs BinarySet) Get(name string) ([]byte, bool) {
	data, ok := bs[name]
	return data, ok
}

// Names returns all blob names in sorted order.
func (bs BinarySet) Names() []string {
	names := make([]string, 0, len(bs))
	for name := range bs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithoutDescriptor returns a shallow copy of the set with the reserved
// descriptor blob removed.
func (bs BinarySet) WithoutDescriptor() BinarySet {
	out := make(BinarySet, len(bs))
	for name, data := range bs {
		if name == DescriptorKey {
			continue
		}
		out[name] = data
	}
	return out
}
