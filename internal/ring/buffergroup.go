package ring

import (
	"fmt"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

// giouringBufferGroup is the production BufferGroup: a single mmap'd slab
// sliced into equal-size entries, handed to the kernel as a buffer ring so
// a read SQE can ask for "any free buffer from group N" instead of
// carrying its own iovec. The kernel returns which entry it used in the CQE
// flags; Take/Release round-trip that index back into this group's backing
// slab.
type giouringBufferGroup struct {
	ring    *giouringRing
	br      *giouring.BufAndRing
	data    []byte
	entries uint16
	bufLen  uint32
	groupID uint16
}

// NewBufferGroup carves out a slab of entries*bufLen bytes and registers it
// as buffer group groupID on r.
func (r *giouringRing) NewBufferGroup(groupID uint16, entries uint16, bufLen uint32) (BufferGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := int(entries) * int(bufLen)
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("ring: mmap buffer group %d: %w", groupID, err)
	}

	br, err := r.ring.SetupBufRing(uint32(entries), groupID, 0)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("ring: setup buf ring %d: %w", groupID, err)
	}

	g := &giouringBufferGroup{ring: r, br: br, data: data, entries: entries, bufLen: bufLen, groupID: groupID}
	for i := uint16(0); i < entries; i++ {
		br.BufRingAdd(
			uintptr(unsafe.Pointer(&data[uint32(i)*bufLen])),
			bufLen,
			i,
			giouring.BufRingMask(uint32(entries)),
			int(i),
		)
	}
	br.BufRingAdvance(int(entries))

	r.groups[groupID] = g
	return g, nil
}

// GroupID reports the buffer group index SQEs should reference.
func (g *giouringBufferGroup) GroupID() uint16 { return g.groupID }

// Take returns the slice the kernel selected for a completion, given the CQE
// res (byte count) and flags.
func (g *giouringBufferGroup) Take(res int32, flags uint32) ([]byte, uint16) {
	id := uint16(flags >> giouring.CQEBufferShift)
	start := uint32(id) * g.bufLen
	n := uint32(res)
	return g.data[start : start+n], id
}

// Slot returns the full backing slice for buffer index id, used when a
// buffer is claimed directly (ClaimRegisteredBuffer) rather than selected by
// the kernel on a completion.
func (g *giouringBufferGroup) Slot(id uint16) []byte {
	start := uint32(id) * g.bufLen
	return g.data[start : start+g.bufLen : start+g.bufLen]
}

// Release hands a buffer back to the kernel once the task is done with it.
func (g *giouringBufferGroup) Release(id uint16) {
	g.ring.mu.Lock()
	defer g.ring.mu.Unlock()
	start := uint32(id) * g.bufLen
	g.br.BufRingAdd(
		uintptr(unsafe.Pointer(&g.data[start])),
		g.bufLen,
		id,
		giouring.BufRingMask(uint32(g.entries)),
		0,
	)
	g.br.BufRingAdvance(1)
}

func (g *giouringBufferGroup) deinit() {
	_ = unix.Munmap(g.data)
}
