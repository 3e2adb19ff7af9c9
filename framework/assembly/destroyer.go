package assembly

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Destroyer is the destruction ledger produced by an assembly session: an
// ordered list of cleanup actions fired exactly once, typically at process
// shutdown.
//
// Each action runs in isolation. A returned error or a panic is logged and
// the remaining actions still run.
type Destroyer struct {
	mu      sync.Mutex
	actions []func() error
	fired   bool
	logger  *zap.Logger
}

// NewDestroyer creates an empty ledger. A nil logger discards failures.
func NewDestroyer(logger *zap.Logger) *Destroyer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Destroyer{logger: logger}
}

// AddAction appends an action. Once the ledger has fired, actions are
// silently dropped.
func (d *Destroyer) AddAction(action func() error) {
	if action == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fired {
		return
	}
	d.actions = append(d.actions, action)
}

// AddFunc appends an action that cannot fail.
func (d *Destroyer) AddFunc(fn func()) {
	if fn == nil {
		return
	}
	d.AddAction(func() error { fn(); return nil })
}

// Fire runs every action in registration order. Subsequent calls do nothing.
func (d *Destroyer) Fire() {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		return
	}
	d.fired = true
	actions := d.actions
	d.actions = nil
	d.mu.Unlock()

	for i, action := range actions {
		d.run(i, action)
	}
	d.logger.Debug("destruction ledger fired", zap.Int("actions", len(actions)))
}

func (d *Destroyer) run(index int, action func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("destruction action panicked",
				zap.Int("action", index),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	if err := action(); err != nil {
		d.logger.Error("destruction action failed", zap.Int("action", index), zap.Error(err))
	}
}

// IsFired reports whether Fire has been called.
func (d *Destroyer) IsFired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

// Len returns the number of pending actions.
func (d *Destroyer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actions)
}
