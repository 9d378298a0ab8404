package aliases

import (
	"github.com/google/uuid"
)

// This file contains interfaces for function types provided by other
// packages. Mocks can only be generated for interfaces, so these are
// used to generate mocks whose Call() method can be passed in place of
// the function.

// UUIDGenerator has the same signature as util.UUIDGenerator.
type UUIDGenerator interface {
	Call() (uuid.UUID, error)
}
