package peano

import (
	"sync"
	"sync/atomic"
	"time"
)

// scheduledTask represents a task scheduled for future execution.
type scheduledTask struct {
	// executeAt is the time the task should execute
	executeAt time.Time

	// seq orders tasks with the same executeAt by scheduling order
	seq uint64

	// state is the analyzed task system
	state *systemState

	// cancelled indicates if the task has been cancelled
	cancelled atomic.Bool

	// index is the heap index for efficient removal
	index int
}

// before reports whether t runs before other.
func (t *scheduledTask) before(other *scheduledTask) bool {
	if t.executeAt.Equal(other.executeAt) {
		return t.seq < other.seq
	}
	return t.executeAt.Before(other.executeAt)
}

// taskQueue is a priority queue for scheduled tasks.
// It uses a binary heap for O(log n) insertion and removal.
type taskQueue struct {
	mu   sync.Mutex
	heap []*scheduledTask
	seq  uint64
}

// newTaskQueue creates a new task queue.
func newTaskQueue() *taskQueue {
	return &taskQueue{
		heap: make([]*scheduledTask, 0, 64),
	}
}

// compactHeap removes cancelled tasks from the heap and rebuilds the heap property.
func (q *taskQueue) compactHeap() {
	write := 0
	for read := 0; read < len(q.heap); read++ {
		if !q.heap[read].cancelled.Load() {
			q.heap[write] = q.heap[read]
			q.heap[write].index = write
			write++
		}
	}

	for i := write; i < len(q.heap); i++ {
		q.heap[i] = nil
	}
	q.heap = q.heap[:write]

	for i := len(q.heap)/2 - 1; i >= 0; i-- {
		q.down(i, len(q.heap))
	}
}

// Push adds a task to the queue with periodic cleanup to prevent memory leaks.
func (q *taskQueue) Push(task *scheduledTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) > 100 && len(q.heap)%100 == 0 {
		q.compactHeap()
	}

	q.seq++
	task.seq = q.seq
	task.index = len(q.heap)
	q.heap = append(q.heap, task)
	q.up(task.index)
}

// PopDue removes and returns all tasks that are due (executeAt <= now),
// in execution order. Cancelled tasks are dropped.
func (q *taskQueue) PopDue(now time.Time) []*scheduledTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*scheduledTask
	cancelledCount := 0

	for len(q.heap) > 0 && !q.heap[0].executeAt.After(now) {
		task := q.pop()
		if !task.cancelled.Load() {
			due = append(due, task)
		} else {
			cancelledCount++
		}
	}

	if cancelledCount > 50 && len(q.heap) > 0 {
		q.compactHeap()
	}

	return due
}

// Len returns the number of tasks in the queue, cancelled ones included.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// pop removes and returns the minimum task. Caller must hold lock.
func (q *taskQueue) pop() *scheduledTask {
	n := len(q.heap) - 1
	q.swap(0, n)
	q.down(0, n)
	task := q.heap[n]
	q.heap[n] = nil // Allow GC
	q.heap = q.heap[:n]
	task.index = -1
	return task
}

// up moves task at index up the heap.
func (q *taskQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.heap[i].before(q.heap[parent]) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

// down moves task at index down the heap.
func (q *taskQueue) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n || left < 0 {
			break
		}
		j := left
		if right := left + 1; right < n && q.heap[right].before(q.heap[left]) {
			j = right
		}
		if !q.heap[j].before(q.heap[i]) {
			break
		}
		q.swap(i, j)
		i = j
	}
}

// swap swaps two tasks in the heap.
func (q *taskQueue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].index = i
	q.heap[j].index = j
}

// TaskHandle allows cancelling a scheduled task.
type TaskHandle struct {
	task *scheduledTask
}

// Cancel cancels the scheduled task. Cancelling a task that already ran has
// no effect.
func (h *TaskHandle) Cancel() {
	if h != nil && h.task != nil {
		h.task.cancelled.Store(true)
	}
}

// Cancelled reports whether Cancel was called.
func (h *TaskHandle) Cancelled() bool {
	return h != nil && h.task != nil && h.task.cancelled.Load()
}

// Schedule queues a one-shot system to run at the end of the first tick that
// starts after delay has passed. Tasks run one at a time, in due order,
// after the last stage, so they may touch anything.
// Returns a TaskHandle that can be used to cancel the task.
func (s *Scheduler) Schedule(sys System, delay time.Duration) *TaskHandle {
	return s.ScheduleAt(sys, time.Now().Add(delay))
}

// ScheduleAt schedules a task for execution at a specific time.
// If the time is in the past, the task will execute on the next tick.
func (s *Scheduler) ScheduleAt(sys System, at time.Time) *TaskHandle {
	if sys == nil {
		return nil
	}

	state := newSystemState(sys, PostUpdate, -1)
	state.access.Exclusive()
	scheduled := &scheduledTask{
		executeAt: at,
		state:     state,
	}
	s.tasks.Push(scheduled)

	return &TaskHandle{task: scheduled}
}

// Dispatch schedules a task for the next tick.
func (s *Scheduler) Dispatch(sys System) *TaskHandle {
	return s.Schedule(sys, 0)
}

// RepeatingTaskHandle allows cancelling a repeating scheduled task.
type RepeatingTaskHandle struct {
	cancelled atomic.Bool
}

// Cancel cancels the repeating task, preventing future executions.
func (h *RepeatingTaskHandle) Cancel() {
	if h != nil {
		h.cancelled.Store(true)
	}
}

// repeatingTask wraps a task to reschedule itself after execution.
type repeatingTask struct {
	inner     System
	scheduler *Scheduler
	interval  time.Duration
	remaining int // -1 for infinite
	handle    *RepeatingTaskHandle
	access    *Access
}

func (r *repeatingTask) Name() string    { return systemName(r.inner) }
func (r *repeatingTask) Access() *Access { return r.access }

func (r *repeatingTask) Run(c *Context) {
	if r.handle.cancelled.Load() {
		return
	}

	r.inner.Run(c)

	if r.handle.cancelled.Load() {
		return
	}
	if r.remaining > 0 {
		r.remaining--
	}
	if r.remaining == 0 {
		return // No more executions
	}
	r.scheduler.Schedule(r, r.interval)
}

// ScheduleRepeating schedules a task to run repeatedly at the given interval.
// If times is -1, the task repeats indefinitely until cancelled.
// If times is > 0, the task runs exactly that many times.
func (s *Scheduler) ScheduleRepeating(sys System, interval time.Duration, times int) *RepeatingTaskHandle {
	if sys == nil || times == 0 {
		return nil
	}

	handle := &RepeatingTaskHandle{}
	s.Schedule(&repeatingTask{
		inner:     sys,
		scheduler: s,
		interval:  interval,
		remaining: times,
		handle:    handle,
		access:    newSystemState(sys, PostUpdate, -1).access,
	}, interval)
	return handle
}

// PendingTasks returns the number of queued tasks.
func (s *Scheduler) PendingTasks() int {
	return s.tasks.Len()
}

// processTasks runs all due tasks in order.
func (s *Scheduler) processTasks(now time.Time, tick uint64, delta time.Duration) {
	for _, task := range s.tasks.PopDue(now) {
		if task.cancelled.Load() {
			continue
		}
		if p := s.execute(task.state, tick, delta); p != nil {
			s.handleSystemPanic(p)
		}
	}
}
