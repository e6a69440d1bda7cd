package bridge

import (
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// NewInstanceID returns a short random identifier for a component instance.
// It ends up in the graph name, so it stays free of separators.
func NewInstanceID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}
