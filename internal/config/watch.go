package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration from path whenever the file changes and
// invokes onChange with the freshly parsed Config. Parse errors are
// logged and the prior configuration is left in effect. The returned
// closer stops the watch.
func Watch(path string, onChange func(Config), logger *slog.Logger) (func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Warn("config reload failed, keeping prior config", "path", path, "error", err)
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return watcher.Close, nil
}
