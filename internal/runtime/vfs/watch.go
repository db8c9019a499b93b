package vfs

import (
	"context"
	"io/fs"
	"os"
	"sync"
	"time"
)

// PollingWatcher is a stat-polling watcher portable across OSes. It reports a
// write whenever the modification time or size of a watched path changes, and
// a remove when a previously present path disappears.
type PollingWatcher struct {
	stat     func(string) (fs.FileInfo, error)
	interval time.Duration

	mu    sync.Mutex
	paths map[string]snapshot

	evCh chan Event
	erCh chan error
	stop context.CancelFunc
	done chan struct{}
	once sync.Once
}

type snapshot struct {
	modTime time.Time
	size    int64
	present bool
}

// NewPollingWatcher returns a watcher that polls every interval once started.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &PollingWatcher{
		stat:     os.Stat,
		interval: interval,
		paths:    make(map[string]snapshot),
		evCh:     make(chan Event, 64),
		erCh:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

func (w *PollingWatcher) Events() <-chan Event { return w.evCh }
func (w *PollingWatcher) Errors() <-chan error { return w.erCh }

// Add starts watching name. Its current state is the baseline for changes.
func (w *PollingWatcher) Add(name string) error {
	s, err := w.take(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.paths[name] = s
	w.mu.Unlock()
	return nil
}

func (w *PollingWatcher) Remove(name string) error {
	w.mu.Lock()
	delete(w.paths, name)
	w.mu.Unlock()
	return nil
}

// Start begins polling in the background until ctx ends or Close is called.
func (w *PollingWatcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	w.stop = cancel
	go w.loop(ctx)
}

// Close stops polling and closes the event channel.
func (w *PollingWatcher) Close() error {
	w.once.Do(func() {
		if w.stop == nil {
			close(w.done)
		} else {
			w.stop()
			<-w.done
		}
		close(w.evCh)
	})
	return nil
}

func (w *PollingWatcher) loop(ctx context.Context) {
	defer close(w.done)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, ev := range w.poll() {
				select {
				case w.evCh <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *PollingWatcher) poll() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	var evs []Event
	now := time.Now()
	for name, prev := range w.paths {
		cur, err := w.take(name)
		if err != nil {
			select {
			case w.erCh <- err:
			default:
			}
			continue
		}
		var op WatchOp
		switch {
		case prev.present && !cur.present:
			op = OpRemove
		case !prev.present && cur.present:
			op = OpCreate
		case cur.present && (!cur.modTime.Equal(prev.modTime) || cur.size != prev.size):
			op = OpWrite
		}
		w.paths[name] = cur
		if op != 0 {
			evs = append(evs, Event{Path: name, Op: op, Time: now})
		}
	}
	return evs
}

func (w *PollingWatcher) take(name string) (snapshot, error) {
	info, err := w.stat(name)
	if os.IsNotExist(err) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{modTime: info.ModTime(), size: info.Size(), present: true}, nil
}

var _ Watcher = (*PollingWatcher)(nil)
