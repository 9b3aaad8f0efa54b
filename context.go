// FILE: context.go
package hotwire

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// goroutineContext owns one event queue. Only the goroutine it was created
// for writes to the queue; only the backend reads from it.
type goroutineContext struct {
	gid   int64
	queue *eventQueue

	dropped atomic.Uint64 // messages rejected by a full bounded queue
	valid   atomic.Bool   // cleared on release; backend reclaims once drained

	// backend-side staging slot and drop-report watermark
	staged        *transitEvent
	reportedDrops uint64
}

// contextRegistry maps goroutine ids to contexts. The hot path is a single
// sync.Map lookup; the mutex guards only membership changes.
type contextRegistry struct {
	mu      sync.Mutex
	byGid   sync.Map // int64 -> *goroutineContext
	members []*goroutineContext
	changed atomic.Bool

	queueCapacity uint64
	bounded       bool

	// backend-owned snapshot, rebuilt when membership changes
	snapshotCache []*goroutineContext

	reclaimedCount atomic.Uint64
	reclaimedDrops atomic.Uint64
}

func newContextRegistry(queueCapacity uint64, bounded bool) *contextRegistry {
	return &contextRegistry{
		queueCapacity: queueCapacity,
		bounded:       bounded,
	}
}

// local returns the calling goroutine's context, registering one on first
// use from that goroutine.
func (r *contextRegistry) local() *goroutineContext {
	gid := goid.Get()
	if v, ok := r.byGid.Load(gid); ok {
		return v.(*goroutineContext)
	}
	return r.register(gid)
}

func (r *contextRegistry) register(gid int64) *goroutineContext {
	ctx := &goroutineContext{
		gid:   gid,
		queue: newEventQueue(r.queueCapacity, r.bounded),
	}
	ctx.valid.Store(true)
	if v, loaded := r.byGid.LoadOrStore(gid, ctx); loaded {
		return v.(*goroutineContext)
	}
	r.mu.Lock()
	r.members = append(r.members, ctx)
	r.mu.Unlock()
	r.changed.Store(true)
	return ctx
}

// release invalidates the calling goroutine's context. Goroutines have no
// exit hooks, so pools and short-lived workers call this when done logging;
// the backend frees the context after draining it. A goroutine that logs
// again afterwards gets a fresh context.
func (r *contextRegistry) release() {
	gid := goid.Get()
	v, ok := r.byGid.LoadAndDelete(gid)
	if !ok {
		return
	}
	v.(*goroutineContext).valid.Store(false)
	r.changed.Store(true)
}

// snapshot returns the backend's view of all registered contexts. Rebuilt
// only when membership changed since the last call.
func (r *contextRegistry) snapshot() []*goroutineContext {
	if !r.changed.Swap(false) {
		return r.snapshotCache
	}
	r.mu.Lock()
	r.snapshotCache = append(r.snapshotCache[:0], r.members...)
	r.mu.Unlock()
	return r.snapshotCache
}

// reclaim removes invalid contexts whose queues are fully drained and have
// no event staged. Called by the backend while idle.
func (r *contextRegistry) reclaim() {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.members[:0]
	for _, ctx := range r.members {
		if !ctx.valid.Load() && ctx.staged == nil && ctx.queue.drained() {
			r.reclaimedCount.Add(1)
			r.reclaimedDrops.Add(ctx.dropped.Load())
			r.changed.Store(true)
			continue
		}
		kept = append(kept, ctx)
	}
	r.members = kept
}

// count returns the number of live registered contexts.
func (r *contextRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// totalDropped sums drops across live and reclaimed contexts.
func (r *contextRegistry) totalDropped() uint64 {
	total := r.reclaimedDrops.Load()
	r.mu.Lock()
	for _, ctx := range r.members {
		total += ctx.dropped.Load()
	}
	r.mu.Unlock()
	return total
}
