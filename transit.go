// FILE: transit.go
package hotwire

// transitEvent is a queue record after decode: formatted text plus the
// metadata and logger it belongs to. One event per source queue is staged
// at a time, so the heap never exceeds the number of live queues.
type transitEvent struct {
	ts   int64
	seq  uint64 // staging order, tie-break for equal timestamps
	md   *Metadata
	who  *LoggerDetails
	text string

	flushToken        uint64 // eventFlush
	backtraceCapacity uint32 // eventInitBacktrace
	ctx               *goroutineContext
}

// transitHeap is a min-heap ordered by timestamp, then by staging sequence.
// Equal timestamps dispatch in the order the backend staged the events,
// which is deterministic for a single backend goroutine.
type transitHeap []*transitEvent

func (h transitHeap) Len() int { return len(h) }

func (h transitHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	return h[i].seq < h[j].seq
}

func (h transitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *transitHeap) Push(x any) {
	*h = append(*h, x.(*transitEvent))
}

func (h *transitHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}
