package core

import (
	"fmt"
	"sync/atomic"

	"pkt.systems/termmux/schema"
)

var idCounter atomic.Uint64

// newID allocates the next session id. Ids are monotonic for the life of
// the process and never reused while a session is registered.
func newID() schema.SessionID {
	return schema.SessionID(fmt.Sprintf("term-%d", idCounter.Add(1)))
}
