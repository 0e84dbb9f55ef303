package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/plainnote/internal/storage"
)

// Manager owns the single active Watcher of the process. Restart tears the
// previous watcher down completely before starting the next one.
type Manager struct {
	ctx    context.Context
	clock  SelfWriteSource
	emit   EmitFunc
	logger *slog.Logger
	opts   []Option

	mu     sync.Mutex
	root   string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager whose watchers live no longer than ctx.
func NewManager(ctx context.Context, clock SelfWriteSource, emit EmitFunc, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ctx:    ctx,
		clock:  clock,
		emit:   emit,
		logger: logger,
		opts:   append([]Option{WithLogger(logger)}, opts...),
	}
}

// Restart stops the current watcher, if any, and starts one on store.
func (m *Manager) Restart(store storage.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	w, err := New(store, m.clock, m.opts...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(m.ctx)
	done := make(chan struct{})
	go func() {
		if err := w.Run(ctx, m.emit); err != nil {
			m.logger.Warn("watcher: run failed", slog.String("error", err.Error()))
		}
		_ = w.Close()
		close(done)
		m.forget(done)
	}()

	m.root = w.Root()
	m.cancel = cancel
	m.done = done
	return nil
}

// Root returns the directory of the running watcher, or "" if none.
func (m *Manager) Root() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root
}

// Close stops the active watcher and waits for it to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// forget clears the state of a watcher that stopped on its own, for example
// because its directory was removed. The caller closes done first: stopLocked
// waits on it with the lock held.
func (m *Manager) forget(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != done {
		return
	}
	m.cancel()
	m.cancel = nil
	m.done = nil
	m.root = ""
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	m.root = ""
}
