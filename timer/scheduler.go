package timer

import (
	"runtime/debug"
	"sync"
	"time"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/logging"
)

var timerLogger = logging.GetZeroLogger("timer::scheduler", nil)

// Timer is one pending task.
type Timer struct {
	key       game.TaskKey
	t         *time.Timer
	cancelled bool
}

// Controller runs table tasks on the wall clock. It implements game.Scheduler.
type Controller struct {
	// key: table|hand|seat|purpose
	// value: the timer
	timerByKey     map[game.TaskKey]*Timer
	timerByKeyLock sync.Mutex

	// crashHandler is called after a task panics.
	crashHandler func(key game.TaskKey, err interface{})
}

// NewController creates an instance of Controller.
func NewController(crashHandler func(key game.TaskKey, err interface{})) *Controller {
	return &Controller{
		timerByKey:   make(map[game.TaskKey]*Timer),
		crashHandler: crashHandler,
	}
}

// Schedule runs fn after delay. A pending timer with the same key is replaced.
func (c *Controller) Schedule(key game.TaskKey, delay time.Duration, fn func()) {
	timer := &Timer{key: key}

	c.timerByKeyLock.Lock()
	defer c.timerByKeyLock.Unlock()
	if old, exists := c.timerByKey[key]; exists {
		old.cancelled = true
		old.t.Stop()
	}
	c.timerByKey[key] = timer
	timer.t = time.AfterFunc(delay, func() { c.fire(timer, fn) })
}

func (c *Controller) fire(timer *Timer, fn func()) {
	c.timerByKeyLock.Lock()
	currentTimer := c.timerByKey[timer.key]
	if timer.cancelled || currentTimer != timer {
		// cancelled, or a newer timer took the key
		c.timerByKeyLock.Unlock()
		return
	}
	delete(c.timerByKey, timer.key)
	c.timerByKeyLock.Unlock()

	defer func() {
		err := recover()
		if err != nil {
			timerLogger.Error().
				Str(logging.TableIDKey, timer.key.TableID).
				Str(logging.TimerPurposeKey, string(timer.key.Purpose)).
				Msgf("Scheduled task panicked: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			if c.crashHandler != nil {
				c.crashHandler(timer.key, err)
			}
		}
	}()
	fn()
}

// Cancel marks a timer as cancelled.
func (c *Controller) Cancel(key game.TaskKey) {
	c.timerByKeyLock.Lock()
	defer c.timerByKeyLock.Unlock()
	c.cancelLocked(key)
}

func (c *Controller) cancelLocked(key game.TaskKey) {
	timer, exists := c.timerByKey[key]
	if !exists {
		return
	}
	timer.cancelled = true
	timer.t.Stop()
	delete(c.timerByKey, key)
}

// CancelTable cancels every timer of a table.
func (c *Controller) CancelTable(tableID string) {
	c.timerByKeyLock.Lock()
	defer c.timerByKeyLock.Unlock()
	for key := range c.timerByKey {
		if key.TableID == tableID {
			c.cancelLocked(key)
		}
	}
}

// Pending returns the number of timers waiting to fire.
func (c *Controller) Pending() int {
	c.timerByKeyLock.Lock()
	defer c.timerByKeyLock.Unlock()
	return len(c.timerByKey)
}

// Stop cancels every timer.
func (c *Controller) Stop() {
	c.timerByKeyLock.Lock()
	defer c.timerByKeyLock.Unlock()
	for key := range c.timerByKey {
		c.cancelLocked(key)
	}
	timerLogger.Info().Msg("Stopped all timers")
}
