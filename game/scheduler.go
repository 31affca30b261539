package game

import (
	"sort"
	"sync"
	"time"
)

type Purpose string

const (
	PurposeBotTurn    Purpose = "bot-turn"
	PurposeAwayFold   Purpose = "away-fold"
	PurposeNextHand   Purpose = "next-hand"
	PurposeExpel      Purpose = "expel"
	PurposeBlindLevel Purpose = "blind-level"
)

// TaskKey identifies a scheduled task. Scheduling a key that is already
// pending replaces the pending task.
type TaskKey struct {
	TableID string
	HandID  string
	Seat    int
	Purpose Purpose
}

// Scheduler runs delayed follow-ups. Tasks must re-check table state when they
// run; cancellation is best effort.
type Scheduler interface {
	Schedule(key TaskKey, delay time.Duration, fn func())
	Cancel(key TaskKey)
	// CancelTable cancels every pending task whose TableID matches.
	CancelTable(tableID string)
}

type manualTask struct {
	key   TaskKey
	delay time.Duration
	fn    func()
	seq   int
}

// ManualScheduler only runs tasks when told to. Used by tests and the simulator.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks map[TaskKey]*manualTask
	seq   int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[TaskKey]*manualTask)}
}

func (m *ManualScheduler) Schedule(key TaskKey, delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.tasks[key] = &manualTask{key: key, delay: delay, fn: fn, seq: m.seq}
}

func (m *ManualScheduler) Cancel(key TaskKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, key)
}

func (m *ManualScheduler) CancelTable(tableID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.tasks {
		if k.TableID == tableID {
			delete(m.tasks, k)
		}
	}
}

func (m *ManualScheduler) sorted() []*manualTask {
	tasks := make([]*manualTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].seq < tasks[j].seq })
	return tasks
}

// Pending lists pending keys in scheduling order.
func (m *ManualScheduler) Pending() []TaskKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]TaskKey, 0, len(m.tasks))
	for _, t := range m.sorted() {
		keys = append(keys, t.key)
	}
	return keys
}

func (m *ManualScheduler) Find(tableID string, purpose Purpose) (TaskKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.sorted() {
		if t.key.Purpose == purpose && (tableID == "" || t.key.TableID == tableID) {
			return t.key, true
		}
	}
	return TaskKey{}, false
}

func (m *ManualScheduler) Has(tableID string, purpose Purpose) bool {
	_, ok := m.Find(tableID, purpose)
	return ok
}

// Fire runs the task for key if it is still pending.
func (m *ManualScheduler) Fire(key TaskKey) bool {
	m.mu.Lock()
	t, ok := m.tasks[key]
	if ok {
		delete(m.tasks, key)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	t.fn()
	return true
}

// FireNext runs the oldest pending task of the given purpose on a table.
// An empty tableID matches any table.
func (m *ManualScheduler) FireNext(tableID string, purpose Purpose) bool {
	key, ok := m.Find(tableID, purpose)
	if !ok {
		return false
	}
	return m.Fire(key)
}

// RunPending keeps firing the oldest task, skipping the given purposes, until
// nothing else is pending or max tasks have run. It returns the number run.
func (m *ManualScheduler) RunPending(max int, skip ...Purpose) int {
	ran := 0
	for ran < max {
		m.mu.Lock()
		var next *manualTask
		for _, t := range m.sorted() {
			skipped := false
			for _, s := range skip {
				if t.key.Purpose == s {
					skipped = true
				}
			}
			if !skipped {
				next = t
				break
			}
		}
		m.mu.Unlock()
		if next == nil {
			return ran
		}
		if m.Fire(next.key) {
			ran++
		}
	}
	return ran
}
