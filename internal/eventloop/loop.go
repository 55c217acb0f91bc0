// Package eventloop implements the thread-safe, priority-queued scheduler
// that dispatches short-lived tasks and time-delayed events to a fixed
// pool of worker goroutines, with cooperative shutdown via a shared
// atomic flag.
//
// The design follows the polling/worker shape of the teacher's
// internal/tasks scheduler (semaphore-gated acquire loop, graceful
// shutdown via WaitGroup), generalized from a DB-backed cron poller to the
// spec's in-memory FIFO task queue plus delay-ordered event min-heap.
package eventloop

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent/errs"
	"github.com/haasonsaas/agentcore/pkg/models"
	"github.com/robfig/cron/v3"
)

// Workers is the fixed worker-pool size mandated by the spec (N=4).
const Workers = 4

const (
	minEventSleep = time.Millisecond
	maxEventSleep = 100 * time.Millisecond
	idleSleep     = 50 * time.Millisecond
)

// TaskHandler processes one dispatched task. A returned error is logged
// and swallowed; it never aborts the loop.
type TaskHandler func(ctx context.Context, task models.Task) error

// EventHandler processes one due event. Like TaskHandler, errors are
// logged and swallowed.
type EventHandler func(ctx context.Context, event models.Event) error

// Config controls queue bounds and the worker count. Zero-value Config is
// sanitized to the spec defaults by New.
type Config struct {
	// MaxQueueDepth bounds the task queue; zero means unbounded. Exceeding
	// it returns a ResourceExhaustedError from SubmitTask, standing in for
	// the spec's allocation-failure path.
	MaxQueueDepth int
	// Workers overrides the worker pool size; defaults to 4 per spec.
	Workers int
	Logger  *slog.Logger
}

func (c Config) sanitize() Config {
	if c.Workers <= 0 {
		c.Workers = Workers
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type cronEntry struct {
	schedule cron.Schedule
	kind     models.TaskKind
	payload  []byte
}

// Loop is the event loop: a FIFO task queue guarded by a mutex/condvar, a
// min-heap of delay-ordered events guarded by its own mutex, a fixed
// worker pool, and an atomic shutdown flag and offset counter.
type Loop struct {
	cfg Config

	taskMu sync.Mutex
	cond   *sync.Cond
	tasks  []models.Task
	queued int

	eventMu    sync.Mutex
	events     eventHeap
	eventSeq   uint64
	cronMu     sync.Mutex
	cronEntries map[string]*cronEntry
	cronParser  cron.Parser

	taskHandler  TaskHandler
	eventHandler EventHandler

	shutdown atomic.Bool
	offset   atomic.Uint64

	wg sync.WaitGroup
}

// New constructs a Loop. SetTaskHandler/SetEventHandler must be called
// before Run.
func New(cfg Config) *Loop {
	cfg = cfg.sanitize()
	l := &Loop{
		cfg:         cfg,
		cronEntries: make(map[string]*cronEntry),
		// Seconds-optional cron parser, matching the teacher's scheduler
		// which accepts both 5-field and 6-field (with seconds) expressions.
		cronParser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
	l.cond = sync.NewCond(&l.taskMu)
	return l
}

// SetTaskHandler stores the task dispatch callback. Must be called before Run.
func (l *Loop) SetTaskHandler(h TaskHandler) { l.taskHandler = h }

// SetEventHandler stores the event dispatch callback. Must be called before Run.
func (l *Loop) SetEventHandler(h EventHandler) { l.eventHandler = h }

// SubmitTask deep-copies id/data/source into a task record, appends it
// under the task mutex, and signals one waiting worker.
func (l *Loop) SubmitTask(id string, data []byte, source string) error {
	task := models.Task{ID: id, Data: data, Source: source}.Clone()

	l.taskMu.Lock()
	if l.cfg.MaxQueueDepth > 0 && len(l.tasks) >= l.cfg.MaxQueueDepth {
		l.taskMu.Unlock()
		return errs.NewResourceExhausted("task queue", fmt.Errorf("depth %d exceeds max %d", len(l.tasks)+1, l.cfg.MaxQueueDepth))
	}
	l.tasks = append(l.tasks, task)
	l.queued++
	l.taskMu.Unlock()
	l.cond.Signal()
	return nil
}

// ScheduleEvent computes an absolute expiration (now + delay) and pushes a
// deep copy of id/payload into the event heap. It never wakes workers
// directly — only the Run dispatch loop observes new events.
func (l *Loop) ScheduleEvent(id string, kind models.TaskKind, payload []byte, delay time.Duration) error {
	ev := models.Event{ID: id, Kind: kind, Payload: payload, ExpiresAt: time.Now().Add(delay).UnixNano()}.Clone()

	l.eventMu.Lock()
	l.eventSeq++
	heap.Push(&l.events, &eventItem{event: ev, seq: l.eventSeq})
	l.eventMu.Unlock()
	return nil
}

// ScheduleCron registers a recurring event driven by a cron expression
// (seconds field optional). Each time the event fires, the loop computes
// the next occurrence and re-schedules automatically.
func (l *Loop) ScheduleCron(id, cronExpr string, payload []byte) error {
	schedule, err := l.cronParser.Parse(cronExpr)
	if err != nil {
		return &errs.ConfigInvalidError{Key: "cron:" + id, Cause: err}
	}
	l.cronMu.Lock()
	l.cronEntries[id] = &cronEntry{schedule: schedule, kind: models.EventCustom, payload: payload}
	l.cronMu.Unlock()
	return l.scheduleNextCronRun(id)
}

func (l *Loop) scheduleNextCronRun(id string) error {
	l.cronMu.Lock()
	entry, ok := l.cronEntries[id]
	l.cronMu.Unlock()
	if !ok {
		return nil
	}
	next := entry.schedule.Next(time.Now())
	delay := time.Until(next)
	if delay < 0 {
		delay = 0
	}
	return l.ScheduleEvent(id, entry.kind, entry.payload, delay)
}

// GetOffset performs a sequentially-consistent atomic load. Offsets wrap
// via ordinary uint64 overflow; callers relying on monotonic offsets
// across a wraparound must reset state externally (see DESIGN.md).
func (l *Loop) GetOffset() uint64 { return l.offset.Load() }

// UpdateOffset performs a sequentially-consistent atomic store.
func (l *Loop) UpdateOffset(v uint64) { l.offset.Store(v) }

// RequestShutdown sets the shutdown flag and broadcasts the task
// condition so blocked workers wake and observe it. Idempotent.
func (l *Loop) RequestShutdown() {
	l.shutdown.Store(true)
	l.taskMu.Lock()
	l.cond.Broadcast()
	l.taskMu.Unlock()
}

// ShuttingDown reports whether shutdown has been requested.
func (l *Loop) ShuttingDown() bool { return l.shutdown.Load() }

// Run spawns the N worker goroutines and, on the calling goroutine, drives
// the event-dispatch loop until shutdown is requested.
func (l *Loop) Run(ctx context.Context) {
	for i := 0; i < l.cfg.Workers; i++ {
		l.wg.Add(1)
		go l.workerLoop(ctx)
	}

	for {
		due := l.drainDueEvents()
		for _, item := range due {
			l.dispatchEvent(ctx, item.event)
			if entry := l.cronEntryFor(item.event.ID); entry != nil {
				if err := l.scheduleNextCronRun(item.event.ID); err != nil {
					l.cfg.Logger.Error("reschedule cron event failed", "id", item.event.ID, "error", err)
				}
			}
		}
		if l.shutdown.Load() {
			break
		}
		time.Sleep(l.sleepInterval())
	}

	l.wg.Wait()
}

func (l *Loop) cronEntryFor(id string) *cronEntry {
	l.cronMu.Lock()
	defer l.cronMu.Unlock()
	return l.cronEntries[id]
}

func (l *Loop) drainDueEvents() []*eventItem {
	now := time.Now().UnixNano()
	var due []*eventItem

	l.eventMu.Lock()
	for l.events.Len() > 0 && l.events[0].event.ExpiresAt <= now {
		due = append(due, heap.Pop(&l.events).(*eventItem))
	}
	l.eventMu.Unlock()
	return due
}

func (l *Loop) sleepInterval() time.Duration {
	l.eventMu.Lock()
	defer l.eventMu.Unlock()

	if l.events.Len() == 0 {
		return idleSleep
	}
	d := time.Until(time.Unix(0, l.events[0].event.ExpiresAt))
	if d < minEventSleep {
		d = minEventSleep
	}
	if d > maxEventSleep {
		d = maxEventSleep
	}
	return d
}

func (l *Loop) dispatchEvent(ctx context.Context, ev models.Event) {
	if l.eventHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.cfg.Logger.Error("event handler panicked", "event_id", ev.ID, "panic", r)
		}
	}()
	if err := l.eventHandler(ctx, ev); err != nil {
		l.cfg.Logger.Error("event handler failed", "event_id", ev.ID, "error", err)
	}
}

func (l *Loop) workerLoop(ctx context.Context) {
	defer l.wg.Done()
	for {
		l.taskMu.Lock()
		for len(l.tasks) == 0 && !l.shutdown.Load() {
			l.cond.Wait()
		}
		if len(l.tasks) == 0 {
			l.taskMu.Unlock()
			return
		}
		task := l.tasks[0]
		l.tasks = l.tasks[1:]
		l.queued--
		l.taskMu.Unlock()

		l.dispatchTask(ctx, task)
	}
}

func (l *Loop) dispatchTask(ctx context.Context, task models.Task) {
	if l.taskHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.cfg.Logger.Error("task handler panicked", "task_id", task.ID, "panic", r)
		}
	}()
	if err := l.taskHandler(ctx, task); err != nil {
		l.cfg.Logger.Error("task handler failed", "task_id", task.ID, "error", err)
	}
}

// PendingTasks reports the current task queue depth, for tests and metrics.
func (l *Loop) PendingTasks() int {
	l.taskMu.Lock()
	defer l.taskMu.Unlock()
	return len(l.tasks)
}
