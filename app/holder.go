package app

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"heartrisk/config"
)

const (
	defaultDebounce   = 500 * time.Millisecond
	defaultCloseDelay = 30 * time.Second
)

// Holder serves the current run context and replaces it when the files it
// was built from change. Readers always see a complete context.
type Holder struct {
	current    atomic.Pointer[Context]
	cfg        config.Config
	logger     *zap.Logger
	debounce   time.Duration
	closeDelay time.Duration
}

func NewHolder(initial *Context, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{
		cfg:        initial.Config,
		logger:     logger,
		debounce:   defaultDebounce,
		closeDelay: defaultCloseDelay,
	}
	h.current.Store(initial)
	return h
}

func (h *Holder) Current() *Context {
	return h.current.Load()
}

// Reload builds a fresh context from the same config. On failure the current
// context stays in place.
func (h *Holder) Reload(ctx context.Context) error {
	next, err := Load(ctx, h.cfg, h.logger)
	if err != nil {
		h.logger.Error("reload failed, keeping current context", zap.Error(err))
		return err
	}
	previous := h.current.Swap(next)
	if previous != nil {
		// Requests that already hold the previous context may still query its store.
		time.AfterFunc(h.closeDelay, func() {
			if err := previous.Close(); err != nil {
				h.logger.Warn("close previous context", zap.Error(err))
			}
		})
	}
	h.logger.Info("run context reloaded")
	return nil
}

// Close closes the current context.
func (h *Holder) Close() error {
	if c := h.current.Load(); c != nil {
		return c.Close()
	}
	return nil
}

// Watch reloads whenever the model artifact or dataset file is written,
// created or renamed into place. It blocks until ctx is done.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, path := range []string{h.cfg.Model.Path, h.cfg.Dataset.Path} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// Watch directories, not files: editors and deploy tools replace files by rename.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	h.logger.Info("watching run context files", zap.Int("files", len(targets)))

	var timer *time.Timer
	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug("run context file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(h.debounce)

		case <-fire:
			timer = nil
			h.Reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
