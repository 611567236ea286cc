// Package reloader watches a directory of .env files and rebuilds the
// configuration when they change.
package reloader

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/sirupsen/logrus"
)

const (
	// defaultSettle is how long the directory must stay quiet after a change
	// before the configuration is loaded again.
	defaultSettle = 10 * time.Second

	// defaultPoll is how often a pending change is checked for.
	defaultPoll = defaultSettle / 10
)

var (
	errEventsClosed = errors.New("reloader: fsnotify event channel was closed")
	errErrorsClosed = errors.New("reloader: fsnotify error channel was closed")
)

// configChangingOps are the file operations that can alter the loaded
// configuration. Chmod is not one of them.
const configChangingOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

type ConfigFunc func(*conf.GlobalConfiguration)

type Reloader struct {
	dir    string
	settle time.Duration
	poll   time.Duration
	log    logrus.FieldLogger

	newWatcher func() (watcher, error)
	load       func(dir string) (*conf.GlobalConfiguration, error)
	addDir     func(ctx context.Context, wr watcher, dir string, backoff time.Duration) error
}

func NewReloader(dir string) *Reloader {
	return &Reloader{
		dir:        dir,
		settle:     defaultSettle,
		poll:       defaultPoll,
		log:        logrus.WithFields(logrus.Fields{"component": "reloader", "dir": dir}),
		newWatcher: newFSWatcher,
		load:       loadDirectory,
		addDir:     addDir,
	}
}

func (rl *Reloader) reload() (*conf.GlobalConfiguration, error) {
	return rl.load(rl.dir)
}

// settled reports whether a change seen at changedAt has been followed by a
// quiet period at least as long as rl.settle. A zero changedAt means nothing
// is pending.
func (rl *Reloader) settled(now, changedAt time.Time) bool {
	return !changedAt.IsZero() && now.Sub(changedAt) >= rl.settle
}

// Watch calls fn with each configuration loaded after a .env file in the
// directory changes. A configuration that fails to load is logged and the
// previous one stays in effect. Watch returns when ctx is done or the
// underlying watcher fails.
func (rl *Reloader) Watch(ctx context.Context, fn ConfigFunc) error {
	wr, err := rl.newWatcher()
	if err != nil {
		rl.log.WithError(err).Error("unable to create file watcher")
		return err
	}
	defer wr.Close()

	poll := time.NewTicker(rl.poll)
	defer poll.Stop()

	rl.watchDir(ctx, wr)

	var changedAt time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-poll.C:
			// the directory may be created or replaced after startup
			rl.watchDir(ctx, wr)

			if !rl.settled(now, changedAt) {
				continue
			}
			changedAt = time.Time{}
			rl.apply(fn)

		case evt, ok := <-wr.Events():
			if !ok {
				rl.log.WithError(errEventsClosed).Error("file watcher stopped")
				return errEventsClosed
			}
			if isConfigChange(evt) {
				changedAt = time.Now()
			}

		case werr, ok := <-wr.Errors():
			if !ok {
				rl.log.WithError(errErrorsClosed).Error("file watcher stopped")
				return errErrorsClosed
			}
			rl.log.WithError(werr).Warn("file watcher reported an error")
		}
	}
}

func (rl *Reloader) watchDir(ctx context.Context, wr watcher) {
	if err := rl.addDir(ctx, wr, rl.dir, rl.settle); err != nil {
		rl.log.WithError(err).Warn("unable to watch config directory")
	}
}

func (rl *Reloader) apply(fn ConfigFunc) {
	cfg, err := rl.reload()
	if err != nil {
		rl.log.WithError(err).Error("configuration did not load, keeping the current one")
		return
	}
	rl.log.Info("configuration reloaded")
	fn(cfg)
}

func isConfigChange(evt fsnotify.Event) bool {
	return filepath.Ext(evt.Name) == ".env" && evt.Op&configChangingOps != 0
}

// addDir adds dir to wr. On failure it waits backoff before returning the
// error, so a missing directory is not retried in a tight loop.
func addDir(ctx context.Context, wr watcher, dir string, backoff time.Duration) error {
	err := wr.Add(dir)
	if err == nil {
		return nil
	}

	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return err
	}
}

func loadDirectory(dir string) (*conf.GlobalConfiguration, error) {
	if err := conf.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return conf.LoadGlobalFromEnv()
}

type watcher interface {
	Add(path string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsWatcher struct {
	w *fsnotify.Watcher
}

func newFSWatcher() (watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsWatcher{w}, nil
}

func (o *fsWatcher) Add(path string) error         { return o.w.Add(path) }
func (o *fsWatcher) Close() error                  { return o.w.Close() }
func (o *fsWatcher) Events() <-chan fsnotify.Event { return o.w.Events }
func (o *fsWatcher) Errors() <-chan error          { return o.w.Errors }
