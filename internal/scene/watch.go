package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor produces for a
// single save.
const DefaultDebounce = 300 * time.Millisecond

// Watch reloads the document at path every time it is written and hands the
// fresh document to onLoad. It is the document-load hook: callers reset any
// session state tied to the previous document there. Load failures go to
// onError (which may be nil) and the watch keeps running. Watch blocks until
// ctx is cancelled and runs both callbacks on its own goroutine.
func Watch(ctx context.Context, path string, debounce time.Duration, onLoad func(*Document), onError func(error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer w.Close()

	// Watch the directory: atomic saves replace the file, which would drop a
	// watch placed on the file itself.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	report := func(err error) {
		if onError != nil {
			onError(err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			doc, err := Load(target)
			if err != nil {
				report(err)
				continue
			}
			onLoad(doc)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			report(fmt.Errorf("watch: %w", err))
		}
	}
}
