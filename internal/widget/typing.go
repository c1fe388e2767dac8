package widget

import (
	"sync/atomic"
	"time"
)

// RevealTask is a cancellable, non-restartable reveal of a reply string.
// It produces every rune prefix of the full text, one per tick.
type RevealTask struct {
	cancelled atomic.Bool
	completed atomic.Bool
	done      chan struct{}
}

// Reveal starts revealing fullText one character per tick at the given
// interval, invoking onStep with the text revealed so far after each tick.
// Cancellation is cooperative: the flag is checked before each step, and a
// cancelled task never reports completion.
func Reveal(fullText string, interval time.Duration, onStep func(partial string)) *RevealTask {
	task := &RevealTask{done: make(chan struct{})}
	runes := []rune(fullText)

	go func() {
		defer close(task.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 1; i <= len(runes); i++ {
			<-ticker.C
			if task.cancelled.Load() {
				return
			}
			onStep(string(runes[:i]))
		}
		task.completed.Store(true)
	}()

	return task
}

// Cancel requests the task to stop before its next step. The partially
// revealed text is left as-is.
func (t *RevealTask) Cancel() {
	t.cancelled.Store(true)
}

// Done is closed when the task stops, whether it completed or was cancelled.
func (t *RevealTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task stops and reports whether the reveal ran to
// completion.
func (t *RevealTask) Wait() bool {
	<-t.done
	return t.completed.Load()
}
