package scalardex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/scalardex/index"
)

var (
	// ErrAlreadyBuilt is returned when Build is invoked on an instance
	// that is already ready. Rebuilding would swap the variant under
	// outstanding readers, so it is rejected instead of ignored.
	ErrAlreadyBuilt = errors.New("index already built")

	// ErrAlreadyReady is returned when Load is invoked on an instance
	// that is already ready.
	ErrAlreadyReady = errors.New("index already built or loaded")

	// ErrNotReady is returned when a query or Serialize/Upload is invoked
	// before Build or Load completed.
	ErrNotReady = errors.New("index not built or loaded")

	// ErrCorruptIndex is returned when the persisted descriptor or
	// variant blobs fail validation during Load. The instance stays
	// not-ready; no default variant is ever assumed.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrTypeMismatch is returned when the element type recorded in the
	// descriptor does not match the instantiated type parameter.
	ErrTypeMismatch = errors.New("element type mismatch")
)

// ErrBuildFailed indicates the selected variant failed to build.
//
// The underlying variant error can be accessed via errors.Unwrap.
type ErrBuildFailed struct {
	Kind  index.Kind
	cause error
}

func (e *ErrBuildFailed) Error() string {
	return fmt.Sprintf("build failed for %s index: %v", e.Kind, e.cause)
}

func (e *ErrBuildFailed) Unwrap() error { return e.cause }
