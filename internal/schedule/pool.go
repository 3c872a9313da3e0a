package schedule

import (
	"fmt"
	"time"

	"github.com/glizzus/callsched/internal/timer"
)

// record is one outstanding registration.
type record struct {
	key      Key
	deadline time.Time
	req      *timer.Request

	// index is the record's slot in the deadline heap, -1 when detached.
	index int

	next *record
}

const initialChunk = 16

// recordPool hands out records from slabs allocated in growing chunks and
// never holds more than capacity records at once.
type recordPool struct {
	capacity  int
	chunk     int
	allocated int
	inUse     int
	free      *record
}

func newRecordPool(capacity int) *recordPool {
	p := &recordPool{capacity: capacity, chunk: initialChunk}
	p.grow()
	return p
}

func (p *recordPool) grow() bool {
	n := min(p.chunk, p.capacity-p.allocated)
	if n <= 0 {
		return false
	}
	slab := make([]record, n)
	for i := range slab {
		slab[i].index = -1
		slab[i].next = p.free
		p.free = &slab[i]
	}
	p.allocated += n
	p.chunk *= 2
	return true
}

func (p *recordPool) get() (*record, error) {
	if p.free == nil && !p.grow() {
		return nil, fmt.Errorf("%w: all %d records in use", ErrOutOfMemory, p.capacity)
	}
	r := p.free
	p.free = r.next
	r.next = nil
	p.inUse++
	return r, nil
}

func (p *recordPool) put(r *record) {
	*r = record{index: -1, next: p.free}
	p.free = r
	p.inUse--
}

func (p *recordPool) outstanding() int {
	return p.inUse
}

func (p *recordPool) available() int {
	return p.capacity - p.inUse
}

// release drops every slab. It refuses while records are still handed out.
func (p *recordPool) release() error {
	if p.inUse != 0 {
		return fmt.Errorf("schedule: releasing pool with %d records in use", p.inUse)
	}
	p.free = nil
	p.allocated = 0
	p.chunk = initialChunk
	return nil
}
