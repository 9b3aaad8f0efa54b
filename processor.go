// FILE: processor.go
package hotwire

import (
	"container/heap"
	"fmt"
	"runtime"
	"time"
)

// processEvents is the backend worker loop running in a separate goroutine.
// It merges all goroutine queues into timestamp order through a min-heap
// holding at most one staged event per queue, formats each event, and
// dispatches it to the owning logger's sinks.
func (e *Engine) processEvents(stopChan <-chan struct{}) {
	defer e.state.WorkerExited.Store(true)

	backtraces := newBacktraceStorage()
	events := &transitHeap{}
	idler := newIdleStrategy(e.getConfig())
	var stagingSeq uint64
	var lastHeartbeat = time.Now()
	var hasUnflushed bool

	terminating := false
	for {
		if !terminating {
			select {
			case <-stopChan:
				terminating = true
			default:
			}
			// Interval-driven regardless of load
			lastHeartbeat = e.maybeHeartbeat(lastHeartbeat)
		}

		contexts := e.contexts.snapshot()
		for _, ctx := range contexts {
			if ctx.staged == nil {
				e.stageNext(ctx, events, &stagingSeq)
			}
		}

		if events.Len() > 0 {
			ev := heap.Pop(events).(*transitEvent)
			// A re-queued flush is no longer its queue's staged candidate
			if ev.ctx.staged == ev {
				ev.ctx.staged = nil
				e.stageNext(ev.ctx, events, &stagingSeq)
			}

			if ev.md.kind == eventFlush {
				// A flush completes only after everything older has been
				// dispatched. Newly staged events may carry earlier
				// timestamps, so re-queue the flush behind them.
				if events.Len() > 0 && (*events)[0].ts < ev.ts {
					heap.Push(events, ev)
					continue
				}
				e.completeFlush(ev.flushToken)
				continue
			}

			e.dispatchEvent(ev, backtraces)
			hasUnflushed = true
			idler.reset()
			continue
		}

		// All queues empty
		if terminating {
			e.finishDrain()
			return
		}

		if hasUnflushed {
			e.flushSinks()
			hasUnflushed = false
		}
		e.reportDrops(contexts)
		e.contexts.reclaim()
		idler.idle()
	}
}

// stageNext decodes and formats the next record of one queue into its
// staging slot and pushes it on the heap. Formatting happens before the read
// is committed because decoded values alias queue memory.
func (e *Engine) stageNext(ctx *goroutineContext, events *transitHeap, stagingSeq *uint64) {
	for {
		payload, advance, ok := ctx.queue.readRecord()
		if !ok {
			return
		}
		if len(payload) < recordHeaderSize {
			panic(fmt.Sprintf("hotwire: corrupt queue record: %d bytes, want header of %d", len(payload), recordHeaderSize))
		}
		metaID, loggerID, ts := readRecordHeader(payload)
		md := metadataByID(metaID)
		details := e.loggerDetailsByID(loggerID)
		if md == nil || details == nil {
			e.internalLog("skipping record with unknown metadata %d / logger %d", metaID, loggerID)
			ctx.queue.commitRead(advance)
			continue
		}

		ev := &transitEvent{ts: ts, md: md, who: details, ctx: ctx}
		vals, err := decodeArgs(payload[recordHeaderSize:], md.kinds)
		if err != nil {
			e.internalLog("skipping undecodable record at %s:%d: %v", md.File, md.Line, err)
			ctx.queue.commitRead(advance)
			continue
		}

		switch md.kind {
		case eventFlush:
			if len(vals) == 1 {
				ev.flushToken, _ = vals[0].(uint64)
			}
		case eventInitBacktrace:
			if len(vals) == 1 {
				ev.backtraceCapacity, _ = vals[0].(uint32)
			}
		default:
			if len(vals) > 0 {
				ev.text = fmt.Sprintf(md.Format, vals...)
			} else {
				ev.text = md.Format
			}
		}

		ctx.queue.commitRead(advance)
		*stagingSeq++
		ev.seq = *stagingSeq
		ctx.staged = ev
		heap.Push(events, ev)
		return
	}
}

// dispatchEvent routes one popped event: backtrace statements are stored,
// control events drive the backtrace buffers, everything else goes to the
// logger's sinks.
func (e *Engine) dispatchEvent(ev *transitEvent, backtraces *backtraceStorage) {
	switch ev.md.kind {
	case eventInitBacktrace:
		backtraces.setCapacity(ev.who.name, ev.backtraceCapacity)
		return
	case eventFlushBacktrace:
		e.drainBacktrace(ev.who.name, backtraces)
		return
	}

	if ev.md.Level == LevelBacktrace {
		if !backtraces.store(ev.who.name, backtraceEntry{ts: ev.ts, md: ev.md, who: ev.who, text: ev.text}) {
			e.internalLog("backtrace statement discarded, logger %q has no backtrace buffer", ev.who.name)
			return
		}
		e.state.TotalBacktraced.Add(1)
		return
	}

	e.writeToSinks(ev.who, ev.ts, ev.md.Level, ev.md.location, ev.text)

	flushLevel := Level(ev.who.backtraceFlushLevel.Load())
	if flushLevel != LevelNone && ev.md.Level >= flushLevel {
		e.drainBacktrace(ev.who.name, backtraces)
	}
}

func (e *Engine) drainBacktrace(loggerName string, backtraces *backtraceStorage) {
	backtraces.drain(loggerName, func(entry backtraceEntry) {
		e.writeToSinks(entry.who, entry.ts, LevelBacktrace, entry.md.location, entry.text)
	})
}

func (e *Engine) writeToSinks(details *LoggerDetails, ts int64, level Level, location, text string) {
	when := time.Unix(0, ts)
	for _, s := range details.sinks {
		if err := s.Write(when, level, details.name, location, text); err != nil {
			e.internalLog("sink write failed for logger %q: %v", details.name, err)
		}
	}
	e.state.TotalDispatched.Add(1)
}

// flushSinks pushes buffered sink data out while the pipeline is idle.
func (e *Engine) flushSinks() {
	for _, s := range e.distinctSinks() {
		if err := s.Flush(); err != nil {
			e.internalLog("sink flush failed: %v", err)
		}
	}
}

// finishDrain runs at termination after the queues reached a fixed point:
// complete stray flush barriers, report outstanding drops, flush sinks.
// Backtrace buffers are discarded, not flushed.
func (e *Engine) finishDrain() {
	e.flushPending.Range(func(key, value any) bool {
		e.completeFlush(key.(uint64))
		return true
	})
	e.reportDrops(e.contexts.snapshot())
	e.contexts.reclaim()
	e.flushSinks()
}

// reportDrops surfaces bounded-queue drops that accumulated since the last
// report. Drop counting is the producers' only signal; the report is
// best-effort and never blocks them.
func (e *Engine) reportDrops(contexts []*goroutineContext) {
	for _, ctx := range contexts {
		dropped := ctx.dropped.Load()
		if dropped > ctx.reportedDrops {
			e.internalLog("%d statements dropped from goroutine %d (queue full)", dropped-ctx.reportedDrops, ctx.gid)
			ctx.reportedDrops = dropped
		}
	}
}

// maybeHeartbeat emits a stats line to every sink when the configured
// interval elapsed. Returns the time of the last heartbeat.
func (e *Engine) maybeHeartbeat(last time.Time) time.Time {
	cfg := e.getConfig()
	if cfg == nil || cfg.HeartbeatIntervalS <= 0 {
		return last
	}
	interval := time.Duration(cfg.HeartbeatIntervalS) * time.Second
	if time.Since(last) < interval {
		return last
	}

	sequence := e.state.HeartbeatSequence.Add(1)
	stats := e.Stats()
	var uptimeHours float64
	if startTime, ok := e.state.EngineStartTime.Load().(time.Time); ok && !startTime.IsZero() {
		uptimeHours = time.Since(startTime).Hours()
	}
	text := fmt.Sprintf("heartbeat sequence=%d uptime_hours=%.2f dispatched=%d dropped=%d active_contexts=%d",
		sequence, uptimeHours, stats.Dispatched, stats.Dropped, stats.ActiveContexts)

	when := time.Unix(0, e.now())
	for _, s := range e.distinctSinks() {
		if err := s.Write(when, LevelInfo, "hotwire", "", text); err != nil {
			e.internalLog("heartbeat write failed: %v", err)
		}
	}
	return time.Now()
}

// idleStrategy is the backend backoff: spin, then yield, then sleep. Any
// dispatched event resets it to spinning.
type idleStrategy struct {
	round int
	sleep time.Duration
}

func newIdleStrategy(cfg *Config) *idleStrategy {
	sleep := 100 * time.Microsecond
	if cfg != nil && cfg.IdleSleepUs > 0 {
		sleep = time.Duration(cfg.IdleSleepUs) * time.Microsecond
	}
	return &idleStrategy{sleep: sleep}
}

func (s *idleStrategy) reset() {
	s.round = 0
}

func (s *idleStrategy) idle() {
	s.round++
	switch {
	case s.round <= idleSpinRounds:
		// Busy spin, cheapest wakeup
	case s.round <= idleSpinRounds+idleYieldRounds:
		runtime.Gosched()
	default:
		time.Sleep(s.sleep)
	}
}
