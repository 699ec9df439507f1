package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels a context on the first termination signal.
type Handler struct {
	ch     chan os.Signal
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu    sync.Mutex
	hooks []func(os.Signal)
	sig   os.Signal
}

// Watch starts listening for SIGINT and SIGTERM and returns a context
// derived from parent that is cancelled when one arrives.
func Watch(parent context.Context) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ch:     make(chan os.Signal, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	signal.Notify(h.ch, syscall.SIGINT, syscall.SIGTERM)

	h.wg.Add(1)
	go h.loop()
	return h, ctx
}

func (h *Handler) loop() {
	defer h.wg.Done()
	select {
	case sig := <-h.ch:
		signal.Stop(h.ch)

		h.mu.Lock()
		h.sig = sig
		hooks := make([]func(os.Signal), len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		h.cancel()
		// Hooks run in reverse order of registration.
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i](sig)
		}
	case <-h.done:
	}
}

// OnSignal registers a hook run after the context is cancelled.
func (h *Handler) OnSignal(hook func(os.Signal)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Signal returns the signal that cancelled the context, or nil.
func (h *Handler) Signal() os.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sig
}

// Stop stops listening and cancels the context. It is safe to call more
// than once.
func (h *Handler) Stop() {
	h.once.Do(func() {
		close(h.done)
		h.wg.Wait()
		signal.Stop(h.ch)
		h.cancel()
	})
}

// ExitCode returns the conventional shell exit status for a process
// terminated by sig: 128 plus the signal number.
func ExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
