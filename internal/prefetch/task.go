package prefetch

import (
	"context"
	"sync"

	"github.com/alienxp03/arena/internal/core"
)

// Task is a background turn production. It resolves once, after the turn has
// been persisted or production has failed.
type Task struct {
	done chan struct{}
	once sync.Once
	turn *core.Turn
	err  error
}

// NewTask returns an unresolved task.
func NewTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Resolve records the result. Only the first call has any effect.
func (t *Task) Resolve(turn *core.Turn, err error) {
	t.once.Do(func() {
		t.turn, t.err = turn, err
		close(t.done)
	})
}

// Wait blocks until the task resolves or ctx is done.
func (t *Task) Wait(ctx context.Context) (*core.Turn, error) {
	select {
	case <-t.done:
		return t.turn, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
