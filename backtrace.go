// FILE: backtrace.go
package hotwire

// backtraceEntry is one stored backtrace statement, already formatted.
type backtraceEntry struct {
	ts   int64
	md   *Metadata
	who  *LoggerDetails
	text string
}

// backtraceRing holds the most recent capacity backtrace statements for one
// logger. Oldest entries are overwritten once full; flush emits oldest first.
type backtraceRing struct {
	entries []backtraceEntry
	start   int
	count   int
}

func newBacktraceRing(capacity uint32) *backtraceRing {
	return &backtraceRing{entries: make([]backtraceEntry, capacity)}
}

func (b *backtraceRing) store(e backtraceEntry) {
	if len(b.entries) == 0 {
		return
	}
	if b.count == len(b.entries) {
		// Full: overwrite the oldest entry
		b.entries[b.start] = e
		b.start = (b.start + 1) % len(b.entries)
		return
	}
	b.entries[(b.start+b.count)%len(b.entries)] = e
	b.count++
}

// drain calls emit for each stored entry oldest first, then empties the ring.
func (b *backtraceRing) drain(emit func(backtraceEntry)) {
	for i := 0; i < b.count; i++ {
		emit(b.entries[(b.start+i)%len(b.entries)])
	}
	for i := range b.entries {
		b.entries[i] = backtraceEntry{}
	}
	b.start = 0
	b.count = 0
}

// backtraceStorage maps logger names to their backtrace rings. Owned and
// accessed only by the backend goroutine.
type backtraceStorage struct {
	rings map[string]*backtraceRing
}

func newBacktraceStorage() *backtraceStorage {
	return &backtraceStorage{rings: make(map[string]*backtraceRing)}
}

// setCapacity creates or resizes a logger's ring. Resizing discards stored
// entries; re-initializing with the same capacity keeps them.
func (s *backtraceStorage) setCapacity(loggerName string, capacity uint32) {
	if ring, ok := s.rings[loggerName]; ok && uint32(len(ring.entries)) == capacity {
		return
	}
	s.rings[loggerName] = newBacktraceRing(capacity)
}

func (s *backtraceStorage) store(loggerName string, e backtraceEntry) bool {
	ring, ok := s.rings[loggerName]
	if !ok {
		return false
	}
	ring.store(e)
	return true
}

func (s *backtraceStorage) drain(loggerName string, emit func(backtraceEntry)) {
	if ring, ok := s.rings[loggerName]; ok {
		ring.drain(emit)
	}
}
