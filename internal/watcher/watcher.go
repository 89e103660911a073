// Package watcher detects dataset changes between building a rebalance plan
// and executing it.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Config contains monitor settings.
type Config struct {
	Debounce       time.Duration
	IgnorePatterns []string // nil selects DefaultIgnorePatterns
}

// Summary describes a finished monitoring session.
type Summary struct {
	Changes  []string
	Ignored  int
	Duration time.Duration
}

// Monitor watches split image and label folders and records every path that
// changed after Start. It is not recursive; dataset folders are flat.
type Monitor struct {
	config    Config
	filter    *FileFilter
	debouncer *Debouncer
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	mu      sync.Mutex
	changed map[string]struct{}
	ignored int
	running bool
}

// New creates a Monitor. Call Start to begin watching.
func New(config Config) *Monitor {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	m := &Monitor{
		config:  config,
		filter:  NewFileFilter(config.IgnorePatterns),
		changed: make(map[string]struct{}),
	}
	m.debouncer = NewDebouncer(config.Debounce, m.record)
	return m
}

// Start watches dirs. Directories that do not exist are skipped with a
// warning; a split without a labels folder is still a valid dataset.
func (m *Monitor) Start(dirs []string) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := 0
	for _, dir := range dirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			fsWatcher.Close()
			return err
		}
		if err := fsWatcher.Add(absDir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn().Str("dir", absDir).Msg("Skipping missing directory in change monitor")
				continue
			}
			fsWatcher.Close()
			return err
		}
		watched++
	}
	log.Debug().Int("dirs", watched).Dur("debounce", m.config.Debounce).Msg("Change monitor started")

	m.mu.Lock()
	m.fsWatcher = fsWatcher
	m.done = make(chan struct{})
	m.startTime = time.Now()
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.processEvents()
	return nil
}

// Stop shuts the monitor down and returns what it saw. Paths still settling
// in the debouncer are included.
func (m *Monitor) Stop() *Summary {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return &Summary{}
	}
	m.running = false
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	m.fsWatcher.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Pending paths count as changes even though their timers never fired.
	for _, path := range m.debouncer.drain() {
		m.changed[path] = struct{}{}
	}
	return &Summary{
		Changes:  m.sortedChanges(),
		Ignored:  m.ignored,
		Duration: time.Since(m.startTime),
	}
}

// Stale reports whether anything changed since Start or the last Reset,
// including events that have not settled yet.
func (m *Monitor) Stale() bool {
	if m.debouncer.Pending() > 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.changed) > 0
}

// Changes returns the settled changed paths in sorted order.
func (m *Monitor) Changes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedChanges()
}

// Reset forgets recorded changes, e.g. after re-planning.
func (m *Monitor) Reset() {
	m.debouncer.CancelAll()
	m.mu.Lock()
	m.changed = make(map[string]struct{})
	m.mu.Unlock()
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) processEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.fsWatcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-m.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Change monitor error")
		}
	}
}

func (m *Monitor) handleEvent(event fsnotify.Event) {
	// Access-time changes do not alter the dataset.
	if event.Op == fsnotify.Chmod {
		return
	}
	if m.filter.ShouldIgnore(event.Name) {
		m.mu.Lock()
		m.ignored++
		m.mu.Unlock()
		return
	}
	log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Dataset change")
	m.debouncer.Add(event.Name)
}

func (m *Monitor) record(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed[path] = struct{}{}
}

func (m *Monitor) sortedChanges() []string {
	out := make([]string, 0, len(m.changed))
	for p := range m.changed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
