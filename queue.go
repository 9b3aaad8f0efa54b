// FILE: queue.go
package hotwire

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// byteRing is a single-producer single-consumer ring of length-prefixed
// records. Cursors grow monotonically; the buffer position is cursor&mask.
// Records are always contiguous: when a record does not fit before the end
// of the buffer the producer writes wrapMarker in the length-prefix slot
// (or, with fewer than four bytes left, nothing) and restarts at zero.
type byteRing struct {
	buf  []byte
	mask uint64

	head atomic.Uint64 // producer cursor, bytes published
	tail atomic.Uint64 // consumer cursor, bytes consumed
	next atomic.Pointer[byteRing]

	// producer-local
	cachedTail uint64
	pending    uint64

	// consumer-local
	cachedHead uint64
}

func newByteRing(capacity uint64) *byteRing {
	capacity = nextPowerOfTwo(capacity)
	return &byteRing{
		buf:  make([]byte, capacity),
		mask: capacity - 1,
	}
}

func (r *byteRing) capacity() uint64 {
	return uint64(len(r.buf))
}

// prepareWrite reserves space for a record with a payload of n bytes and
// returns the payload slice, or nil when the ring cannot hold it. The write
// is invisible to the consumer until commitWrite.
func (r *byteRing) prepareWrite(n int) []byte {
	need := uint64(lengthPrefixSize + n)
	if need > r.capacity() {
		return nil
	}
	head := r.head.Load()
	pos := head & r.mask
	skip := uint64(0)
	if room := r.capacity() - pos; room < need {
		// Not contiguous: pad to the end and restart at position zero
		skip = room
		pos = 0
	}
	free := r.capacity() - (head - r.cachedTail)
	if free < skip+need {
		r.cachedTail = r.tail.Load()
		free = r.capacity() - (head - r.cachedTail)
		if free < skip+need {
			return nil
		}
	}
	if skip >= lengthPrefixSize {
		binary.LittleEndian.PutUint32(r.buf[(head&r.mask):], wrapMarker)
	}
	binary.LittleEndian.PutUint32(r.buf[pos:], uint32(n))
	r.pending = skip + need
	return r.buf[pos+lengthPrefixSize : pos+lengthPrefixSize+uint64(n)]
}

// commitWrite publishes the record reserved by the last prepareWrite.
func (r *byteRing) commitWrite() {
	r.head.Add(r.pending)
	r.pending = 0
}

// readRecord returns the payload of the next unread record without consuming
// it, plus the total advance for commitRead. The payload aliases the ring.
func (r *byteRing) readRecord() (payload []byte, advance uint64, ok bool) {
	tail := r.tail.Load()
	for {
		if r.cachedHead == tail {
			r.cachedHead = r.head.Load()
			if r.cachedHead == tail {
				return nil, 0, false
			}
		}
		pos := tail & r.mask
		room := r.capacity() - pos
		if room < lengthPrefixSize {
			// Producer restarted at zero without room for a marker
			tail += room
			r.tail.Store(tail)
			continue
		}
		size := binary.LittleEndian.Uint32(r.buf[pos:])
		if size == wrapMarker {
			tail += room
			r.tail.Store(tail)
			continue
		}
		need := uint64(lengthPrefixSize) + uint64(size)
		avail := r.cachedHead - tail
		if need > r.capacity() || need > avail {
			panic(fmt.Sprintf("hotwire: corrupt queue record: size=%d avail=%d capacity=%d", size, avail, r.capacity()))
		}
		return r.buf[pos+lengthPrefixSize : pos+need], need, true
	}
}

// commitRead consumes the record returned by readRecord. Payload views are
// invalid afterwards.
func (r *byteRing) commitRead(advance uint64) {
	r.tail.Store(r.tail.Load() + advance)
}

// empty reports whether every published record has been consumed.
func (r *byteRing) empty() bool {
	return r.tail.Load() == r.head.Load()
}

// eventQueue is the per-goroutine queue. Bounded queues drop on overflow;
// unbounded queues allocate a larger ring and chain it for the consumer,
// which drains each ring fully before following the link.
type eventQueue struct {
	bounded bool
	prod    *byteRing // producer side
	cons    *byteRing // consumer side
}

func newEventQueue(capacity uint64, bounded bool) *eventQueue {
	r := newByteRing(capacity)
	return &eventQueue{bounded: bounded, prod: r, cons: r}
}

// prepareWrite reserves payload space, growing the queue when unbounded.
// A nil return means the record is dropped.
func (q *eventQueue) prepareWrite(n int) []byte {
	if b := q.prod.prepareWrite(n); b != nil {
		return b
	}
	if q.bounded {
		return nil
	}
	capacity := q.prod.capacity() * 2
	if need := uint64(lengthPrefixSize+n) * 2; capacity < need {
		capacity = need
	}
	nr := newByteRing(capacity)
	b := nr.prepareWrite(n)
	// Publish the link after the old ring's final commit so the consumer
	// never observes the new ring before draining the old one.
	q.prod.next.Store(nr)
	q.prod = nr
	return b
}

func (q *eventQueue) commitWrite() {
	q.prod.commitWrite()
}

// readRecord returns the next record across chained rings.
func (q *eventQueue) readRecord() (payload []byte, advance uint64, ok bool) {
	for {
		if payload, advance, ok = q.cons.readRecord(); ok {
			return payload, advance, true
		}
		nr := q.cons.next.Load()
		if nr == nil {
			return nil, 0, false
		}
		// The link is published after the old ring's last record; re-check
		// once before moving on so nothing is skipped.
		if payload, advance, ok = q.cons.readRecord(); ok {
			return payload, advance, true
		}
		q.cons = nr
	}
}

func (q *eventQueue) commitRead(advance uint64) {
	q.cons.commitRead(advance)
}

// drained reports whether the consumer has caught up with the producer.
func (q *eventQueue) drained() bool {
	return q.cons.empty() && q.cons.next.Load() == nil
}
