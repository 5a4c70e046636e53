package voice

import "time"

// Timer is a cancellable delayed task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime clock.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// task is a scheduled callback that runs on the controller loop.
type task struct {
	timer     Timer
	cancelled bool
}

func (t *task) cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// schedule runs fn on the controller loop after d unless cancelled first.
func (c *Controller) schedule(d time.Duration, fn func()) *task {
	t := &task{}
	t.timer = c.scheduler.AfterFunc(d, func() {
		c.enqueue(func() {
			if t.cancelled {
				return
			}
			fn()
		})
	})
	return t
}
