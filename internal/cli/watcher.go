package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// fileWatcher reports changes to a fixed set of files.
//
// The parent directories are watched rather than the files themselves, so
// editors that save by writing a temp file and renaming it over the
// target are still seen.
type fileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	targets   map[string]bool
	log       *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// newFileWatcher starts watching paths. onChange receives the changed
// targets, sorted, at most once per delay.
func newFileWatcher(paths []string, delay time.Duration, log *zap.Logger, onChange func([]string)) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &fileWatcher{
		watcher:   watcher,
		debouncer: newDebouncer(delay, onChange),
		targets:   make(map[string]bool, len(paths)),
		log:       log,
		stopChan:  make(chan struct{}),
	}

	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		fw.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		log.Debug("watching directory", zap.String("dir", dir))
	}

	fw.wg.Add(1)
	go fw.watch()
	return fw, nil
}

// Close stops the watcher. Pending changes are dropped.
func (fw *fileWatcher) Close() error {
	select {
	case <-fw.stopChan:
		return nil
	default:
		close(fw.stopChan)
	}

	fw.wg.Wait()
	fw.debouncer.Stop()
	return fw.watcher.Close()
}

func (fw *fileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !fw.targets[abs] {
				continue
			}
			fw.log.Debug("file changed", zap.String("path", abs), zap.Stringer("op", event.Op))
			fw.debouncer.Add(abs)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("watch error", zap.Error(err))

		case <-fw.stopChan:
			return
		}
	}
}

// debouncer collects changed paths and reports them once no new change
// arrived for the configured delay.
type debouncer struct {
	delay    time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

func newDebouncer(delay time.Duration, callback func([]string)) *debouncer {
	return &debouncer{
		delay:    delay,
		files:    make(map[string]struct{}),
		callback: callback,
	}
}

// Add records a change and restarts the delay.
func (d *debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped || len(d.files) == 0 {
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	slices.Sort(files)
	d.files = make(map[string]struct{})

	if d.callback != nil {
		d.callback(files)
	}
}

// Stop cancels any pending flush. It waits for a running callback.
func (d *debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
