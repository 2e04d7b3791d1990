package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a file through a typed loader whenever it changes and hands
// the fresh value to every registered handler. Bursts of writes are collapsed
// by a debounce timer.
type Watcher[T any] struct {
	path     string
	label    string
	debounce time.Duration
	loader   func(path string) (T, error)
	equal    func(prev, next T) bool
	onError  func(error)
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers []func(T)
	last     T
	haveLast bool

	fs       *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets the quiet period after the last write before reloading.
// Default is 1500ms.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for load errors. Errors are always logged.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// WithLabel names the watched file in log messages.
func WithLabel[T any](label string) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.label = label
	}
}

// WithEqual suppresses notifications when the reloaded value equals the
// previously delivered one.
func WithEqual[T any](equal func(prev, next T) bool) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.equal = equal
	}
}

// WithInitial seeds the value WithEqual compares the first reload against.
func WithInitial[T any](initial T) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.last = initial
		w.haveLast = true
	}
}

// NewConfigWatcher creates a watcher for path. The loader runs on every change
// so handlers never see a cached value.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher[T]{
		path:     path,
		label:    "config",
		debounce: 1500 * time.Millisecond,
		loader:   loader,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler and returns a function that removes it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	idx := len(w.handlers) - 1
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.handlers[idx] = nil
	}
}

// Start begins watching. The file must exist.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fs = fsw

	w.logger.Info("Watching file", "label", w.label, "path", w.path, "debounce", w.debounce)
	go w.run(fsw)
	return nil
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher[T]) Stop() error {
	w.stopOnce.Do(func() {
		w.cancel()
		if w.fs != nil {
			w.stopErr = w.fs.Close()
		}
	})
	return w.stopErr
}

func (w *Watcher[T]) run(fsw *fsnotify.Watcher) {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("File watch stopped", "label", w.label)
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			// Create covers editors that replace the file.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("File change detected", "label", w.label, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watch error", "label", w.label, "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	value, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload file", "label", w.label, "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	if w.equal != nil && w.haveLast && w.equal(w.last, value) {
		w.mu.Unlock()
		w.logger.Debug("File changed without effect", "label", w.label)
		return
	}
	w.last, w.haveLast = value, true
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	w.mu.Unlock()

	w.logger.Info("File reloaded", "label", w.label, "handlers", len(handlers))
	for _, h := range handlers {
		h(value)
	}
}
