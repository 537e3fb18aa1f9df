// internal/tunnel/ports.go

package tunnel

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"hpcq/internal/apperr"
)

// PortAllocator hands out local ports from [Start, End]. A port is taken when a
// throwaway listener can bind it and no other tunnel in this process holds it.
// The listener is closed before the port is used, so another process can still
// grab it in between.
type PortAllocator struct {
	BindAddress string
	Start       uint16
	End         uint16

	mu      sync.Mutex
	claimed map[uint16]bool
}

func NewPortAllocator(bindAddress string, start, end uint16) *PortAllocator {
	return &PortAllocator{
		BindAddress: bindAddress,
		Start:       start,
		End:         end,
		claimed:     make(map[uint16]bool),
	}
}

// Allocate claims the lowest free port in range.
func (a *PortAllocator) Allocate() (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for p := uint32(a.Start); p <= uint32(a.End); p++ {
		port := uint16(p)
		if a.claimed[port] {
			continue
		}
		ln, err := net.Listen("tcp", net.JoinHostPort(a.BindAddress, strconv.Itoa(int(port))))
		if err != nil {
			continue
		}
		ln.Close()
		a.claimed[port] = true
		return port, nil
	}
	return 0, apperr.Op(apperr.PortExhaustion, "allocate", fmt.Sprintf("%s:%d-%d", a.BindAddress, a.Start, a.End), apperr.ErrPortsExhausted)
}

// Release returns a port to the pool.
func (a *PortAllocator) Release(port uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.claimed, port)
}

// Claimed returns the number of ports currently held.
func (a *PortAllocator) Claimed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.claimed)
}
