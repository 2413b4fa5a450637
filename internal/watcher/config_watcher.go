package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/risk"
)

// ConfigWatcher reloads the risk rules document when it changes on disk.
// A reload that fails validation keeps the running config untouched, so a
// half-written or broken file never takes scoring down.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	engine   *risk.Engine
	logger   *logrus.Logger
	debounce time.Duration
	stopChan chan struct{}
}

// NewConfigWatcher watches the directory containing path. Editors and
// config management tools typically replace files by rename, which only
// the directory watch catches.
func NewConfigWatcher(path string, engine *risk.Engine, logger *logrus.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:  watcher,
		path:     abs,
		engine:   engine,
		logger:   logger,
		debounce: 2 * time.Second,
		stopChan: make(chan struct{}),
	}

	logger.WithField("path", abs).Info("Risk config watcher created")
	return cw, nil
}

// Start launches the event loop.
func (cw *ConfigWatcher) Start(ctx context.Context) {
	go cw.eventLoop(ctx)
	cw.logger.Info("Risk config watcher started")
}

func (cw *ConfigWatcher) eventLoop(ctx context.Context) {
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Risk config watcher context done")
			return
		case <-cw.stopChan:
			cw.logger.Info("Risk config watcher stopped")
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				cw.logger.Warn("Watcher events channel closed")
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(cw.path) {
				continue
			}

			cw.logger.WithFields(logrus.Fields{
				"event": event.Op.String(),
				"file":  event.Name,
			}).Debug("Risk config change detected")

			// Debounce: editors fire several events per save.
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(cw.debounce, cw.reload)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				cw.logger.Warn("Watcher errors channel closed")
				return
			}
			cw.logger.WithError(err).Error("Watcher error")
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := risk.LoadConfig(cw.path)
	if err != nil {
		cw.logger.WithError(err).WithField("path", cw.path).
			Error("Rejected risk config reload, keeping previous rules")
		return
	}

	cw.engine.UpdateConfig(cfg)
	cw.logger.WithFields(logrus.Fields{
		"path":    cw.path,
		"version": cfg.Version,
	}).Info("Risk config reloaded")
}

// Stop ends the event loop and closes the underlying watcher.
func (cw *ConfigWatcher) Stop() error {
	close(cw.stopChan)
	if cw.watcher != nil {
		return cw.watcher.Close()
	}
	return nil
}
