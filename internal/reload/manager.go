// Package reload implements debounced, filesystem-watch-driven configuration
// hot-swap: MCP descriptors and user permission-override files are re-read
// without a process restart (spec §4.1, §4.2).
package reload

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// change is one debounced filesystem update pending dispatch.
type change struct {
	kind   string // config kind, e.g. "mcp" or "policy"
	name   string // basename without extension
	action Action
}

// Manager watches a configuration root directory and dispatches changes to
// the Reloadable registered for the top-level directory (kind) the changed
// file lives under; a file directly under the root is dispatched to the kind
// named by its basename without extension (root/mcps.yaml goes to "mcps").
type Manager struct {
	root     string
	debounce time.Duration

	watcher *fsnotify.Watcher
	regs    map[string]Reloadable

	changes chan change
	ctx     context.Context
	cancel  context.CancelFunc

	mu sync.Mutex // guards regs
}

// NewManager builds a Manager watching root. Debounce is the minimum
// interval between two forwarded events for the same file; use 0 to disable.
func NewManager(root string, debounce time.Duration) (*Manager, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		root:     filepath.Clean(root),
		debounce: debounce,
		watcher:  w,
		regs:     map[string]Reloadable{},
		changes:  make(chan change, 64),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Register attaches a Reloadable to a config kind. Must be called before
// Start.
func (m *Manager) Register(kind string, r Reloadable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[kind] = r
}

// Start begins watching the root and dispatching changes. Spawns goroutines
// and returns immediately.
func (m *Manager) Start() error {
	if err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return m.watcher.Add(path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("reload: failed to register watcher: %w", err)
	}

	go m.loopWatch()
	go m.loopDispatch()
	return nil
}

// Stop shuts down the manager and underlying watcher. Safe to call once.
func (m *Manager) Stop() {
	m.cancel()
	_ = m.watcher.Close()
}

func (m *Manager) loopWatch() {
	debounceMap := map[string]time.Time{}
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !isConfig(ev.Name) {
				continue
			}
			action, ok := translateOp(ev.Op)
			if !ok {
				continue
			}
			relPath, err := filepath.Rel(m.root, ev.Name)
			if err != nil {
				continue
			}
			parts := splitPath(relPath)
			base := strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(parts[len(parts)-1]))
			kind := parts[0]
			if len(parts) == 1 {
				// A file directly under root is its own kind.
				kind = base
			}

			if m.debounce > 0 {
				key := kind + "/" + base
				if ts, exists := debounceMap[key]; exists && time.Since(ts) < m.debounce {
					continue
				}
				debounceMap[key] = time.Now()
			}
			m.changes <- change{kind: kind, name: base, action: action}
		}
	}
}

func (m *Manager) loopDispatch() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case ch := <-m.changes:
			m.mu.Lock()
			reg := m.regs[ch.kind]
			m.mu.Unlock()
			if reg == nil {
				continue
			}
			_ = reg.Reload(m.ctx, ch.name, ch.action)
		}
	}
}

func splitPath(p string) []string {
	p = filepath.ToSlash(p)
	return strings.Split(p, "/")
}

func translateOp(op fsnotify.Op) (Action, bool) {
	switch {
	case op&fsnotify.Create == fsnotify.Create,
		op&fsnotify.Write == fsnotify.Write,
		op&fsnotify.Rename == fsnotify.Rename:
		return AddOrUpdate, true
	case op&fsnotify.Remove == fsnotify.Remove:
		return Delete, true
	default:
		return AddOrUpdate, false
	}
}

func isConfig(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}
