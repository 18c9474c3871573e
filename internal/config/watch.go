package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay coalesces the burst of events an editor save produces.
const DefaultReloadDelay = 100 * time.Millisecond

// TokenWatcher re-resolves the shared token whenever the config file changes
// and hands rotations to a setter. Only the token is live-reloadable; ports,
// log settings and hub limits need a restart.
type TokenWatcher struct {
	path    string
	current string
	set     func(string)
	delay   time.Duration
}

// NewTokenWatcher watches path. initial is the token the process started
// with; set is called with every different token seen afterwards.
func NewTokenWatcher(path, initial string, set func(string)) *TokenWatcher {
	return &TokenWatcher{
		path:    filepath.Clean(path),
		current: initial,
		set:     set,
		delay:   DefaultReloadDelay,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file, so saves that replace the file by rename are still seen.
// A reload that fails to parse keeps the current token.
func (w *TokenWatcher) Run(ctx context.Context) error {
	if _, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("config: watch %s: %w", w.path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	slog.Info("config: watching token", "path", w.path)

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(w.delay)

		case <-timer.C:
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

func (w *TokenWatcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config: reload failed, keeping token", "path", w.path, "err", err)
		return
	}
	w.apply(cfg.Server.Auth.Token())
}

func (w *TokenWatcher) apply(next string) {
	if next == w.current {
		return
	}
	w.current = next
	w.set(next)
	if next == "" {
		slog.Warn("config: token cleared, running in open mode")
		return
	}
	slog.Info("config: token rotated")
}
