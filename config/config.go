// Package config loads and validates the tunables named in spec §6:
// page size, the two concurrency levels, the GET/POST entity timeouts,
// the fork-follow switch, and the RPC connection pool settings. It
// optionally watches the backing file and hot-swaps the subset of
// knobs that don't require rebuilding an already-constructed fetcher
// or limiter.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config mirrors the knobs spec §6 names. Field names match the TOML
// keys (snake_case) via struct tags.
type Config struct {
	Node struct {
		Scheme string `toml:"scheme"`
		Host   string `toml:"host"`
		Port   int    `toml:"port"`
		Prefix string `toml:"prefix"`
	} `toml:"node"`

	BlockPageSize                   int `toml:"block_page_size"`
	BlockOperationsConcurrencyLevel int `toml:"block_operations_concurrency_level"`
	AccountConcurrencyLevel         int `toml:"account_concurrency_level"`
	FollowFork                      bool `toml:"follow_fork"`

	GetResponseEntityTimeoutSeconds  int `toml:"get_response_entity_timeout_seconds"`
	PostResponseEntityTimeoutSeconds int `toml:"post_response_entity_timeout_seconds"`

	RateLimitPerSecond float64 `toml:"rate_limit_per_second"`
	RateLimitBurst     int     `toml:"rate_limit_burst"`

	MaxIdleConns        int `toml:"max_idle_conns"`
	MaxIdleConnsPerHost int `toml:"max_idle_conns_per_host"`
	IdleConnTimeoutSeconds int `toml:"idle_conn_timeout_seconds"`
}

// GetResponseEntityTimeout and PostResponseEntityTimeout convert the
// TOML integer-seconds fields into time.Duration for rpc.Config.
func (c Config) GetResponseEntityTimeout() time.Duration {
	return time.Duration(c.GetResponseEntityTimeoutSeconds) * time.Second
}

func (c Config) PostResponseEntityTimeout() time.Duration {
	return time.Duration(c.PostResponseEntityTimeoutSeconds) * time.Second
}

func (c Config) IdleConnTimeout() time.Duration {
	return time.Duration(c.IdleConnTimeoutSeconds) * time.Second
}

// Load reads and validates path as TOML.
func Load(path string) (Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrapf(err, "config: decoding %s", path)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects non-positive values for the knobs that must be
// positive to behave sensibly (a zero page size or concurrency level
// would make the engine never make progress or never call out at all).
func (c Config) Validate() error {
	if c.BlockPageSize < 1 {
		return fmt.Errorf("config: block_page_size must be >= 1, got %d", c.BlockPageSize)
	}
	if c.BlockOperationsConcurrencyLevel < 1 {
		return fmt.Errorf("config: block_operations_concurrency_level must be >= 1, got %d", c.BlockOperationsConcurrencyLevel)
	}
	if c.AccountConcurrencyLevel < 1 {
		return fmt.Errorf("config: account_concurrency_level must be >= 1, got %d", c.AccountConcurrencyLevel)
	}
	if c.GetResponseEntityTimeoutSeconds < 1 {
		return fmt.Errorf("config: get_response_entity_timeout_seconds must be >= 1, got %d", c.GetResponseEntityTimeoutSeconds)
	}
	if c.PostResponseEntityTimeoutSeconds < 1 {
		return fmt.Errorf("config: post_response_entity_timeout_seconds must be >= 1, got %d", c.PostResponseEntityTimeoutSeconds)
	}
	return nil
}

// hotReloadable is the subset of Config a Watcher will apply on a file
// change without requiring a process restart: page size and timeouts
// are baked into already-constructed fetchers/limiters and need one.
type hotReloadable struct {
	FollowFork                      bool
	BlockOperationsConcurrencyLevel int
	AccountConcurrencyLevel         int
}

func (c Config) hotReloadable() hotReloadable {
	return hotReloadable{
		FollowFork:                      c.FollowFork,
		BlockOperationsConcurrencyLevel: c.BlockOperationsConcurrencyLevel,
		AccountConcurrencyLevel:         c.AccountConcurrencyLevel,
	}
}

// Watcher holds the live, hot-reloadable subset of a loaded Config and
// updates it in place whenever the backing file changes on disk.
type Watcher struct {
	mu      sync.RWMutex
	current hotReloadable
	path    string
	log     *logrus.Entry
	watcher *fsnotify.Watcher
}

// WatchFile loads path once, then starts an fsnotify watch that
// re-reads and re-validates it on every write event, logging and
// ignoring any reload that fails validation (the last-known-good
// configuration stays in effect).
func WatchFile(path string, log *logrus.Entry) (*Watcher, Config, error) {
	initial, err := Load(path)
	if err != nil {
		return nil, Config{}, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, Config{}, errors.Wrap(err, "config: starting file watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, Config{}, errors.Wrapf(err, "config: watching %s", path)
	}

	w := &Watcher{current: initial.hotReloadable(), path: path, log: log, watcher: fw}
	go w.loop()
	return w, initial, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloaded, err := Load(w.path)
			if err != nil {
				w.log.WithError(err).Warn("config: reload failed, keeping previous values")
				continue
			}
			w.mu.Lock()
			w.current = reloaded.hotReloadable()
			w.mu.Unlock()
			w.log.Info("config: reloaded follow_fork/concurrency knobs")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config: watcher error")
		}
	}
}

// FollowFork returns the live value of follow_fork.
func (w *Watcher) FollowFork() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.FollowFork
}

// BlockOperationsConcurrencyLevel returns the live value of that knob.
func (w *Watcher) BlockOperationsConcurrencyLevel() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.BlockOperationsConcurrencyLevel
}

// AccountConcurrencyLevel returns the live value of that knob.
func (w *Watcher) AccountConcurrencyLevel() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.AccountConcurrencyLevel
}

// Close stops the underlying fsnotify watch.
func (w *Watcher) Close() error { return w.watcher.Close() }
