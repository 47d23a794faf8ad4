// Package cleanup tracks resources opened for a translation run (log files,
// temp artifacts) and closes them as the process exits.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

type hook struct {
	name string
	fn   func() error
}

var (
	mu    sync.Mutex
	stack []hook
)

// Register queues fn to run at shutdown. Hooks run newest first, so a
// resource closes before whatever it was layered on.
func Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	mu.Lock()
	stack = append(stack, hook{name: name, fn: fn})
	mu.Unlock()
}

// RunAll pops and runs every registered hook. A failing hook does not stop
// the rest; failures are joined into one error naming each hook.
func RunAll() error {
	mu.Lock()
	pending := stack
	stack = nil
	mu.Unlock()

	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		if err := pending[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pending[i].name, err))
		}
	}
	return errors.Join(errs...)
}
