package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors emit on save
const reloadDebounce = 100 * time.Millisecond

// Watch reloads configPath whenever it changes and hands the new
// configuration to onChange. Files that fail to load are reported to onError
// and the previous configuration stays in effect. Watching stops when ctx is
// done.
func Watch(ctx context.Context, configPath string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return err
	}

	// watch the directory: editors replace the file rather than write to it
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if onError == nil {
		onError = func(error) {}
	}

	go func() {
		defer watcher.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					pending = time.After(reloadDebounce)
				}
			case <-pending:
				pending = nil
				cfg, err := LoadFile(abs)
				if err != nil {
					onError(err)
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onError(err)
			}
		}
	}()

	return nil
}
