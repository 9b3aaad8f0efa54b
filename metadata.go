// FILE: metadata.go
package hotwire

import (
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Metadata is the immutable description of one log call site: source
// location, format string, statement level, event kind, and the argument
// kind sequence of the call. Records live for the process lifetime and are
// referenced from queue records by id, never by pointer.
type Metadata struct {
	ID       uint32
	File     string
	Line     int
	Function string
	Format   string
	Level    Level

	kind     eventKind
	kinds    []argKind
	location string // short source location, "file.go:123"
}

// metadataKey identifies a call site. The format string is part of the
// identity: one call site can forward differing runtime format strings (the
// compat adapters do exactly that), and each must render with its own format.
type metadataKey struct {
	pc     uintptr
	sig    uint64
	format string
}

var metaRegistry = struct {
	mu    sync.Mutex
	byKey sync.Map // metadataKey -> *Metadata
	table atomic.Pointer[[]*Metadata]
}{}

// metadataFor returns the registry record for a call site, creating it on
// first use. The fast path is a single lock-free map lookup; the mutex is
// taken only while a new call site is being registered.
func metadataFor(pc uintptr, sig uint64, format string, level Level, kind eventKind, kinds []argKind) *Metadata {
	key := metadataKey{pc: pc, sig: sig, format: format}
	if v, ok := metaRegistry.byKey.Load(key); ok {
		return v.(*Metadata)
	}

	metaRegistry.mu.Lock()
	defer metaRegistry.mu.Unlock()
	if v, ok := metaRegistry.byKey.Load(key); ok {
		return v.(*Metadata)
	}

	md := &Metadata{
		Format: format,
		Level:  level,
		kind:   kind,
		kinds:  append([]argKind(nil), kinds...),
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		md.Function = fn.Name()
		md.File, md.Line = fn.FileLine(pc)
		md.location = filepath.Base(md.File) + ":" + strconv.Itoa(md.Line)
	}

	old := metaRegistry.table.Load()
	var tbl []*Metadata
	if old != nil {
		tbl = append(tbl, *old...)
	}
	md.ID = uint32(len(tbl))
	tbl = append(tbl, md)
	// Table first, key second: anyone who can observe the key can resolve
	// the id.
	metaRegistry.table.Store(&tbl)
	metaRegistry.byKey.Store(key, md)
	return md
}

// metadataByID resolves an id read back out of a queue record.
func metadataByID(id uint32) *Metadata {
	tbl := metaRegistry.table.Load()
	if tbl == nil || id >= uint32(len(*tbl)) {
		return nil
	}
	return (*tbl)[id]
}

// callerPC returns the program counter of the log statement, skip frames
// above the caller of callerPC itself.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}
