package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type pendingChange struct {
	kind  Kind
	from  string // absolute, Renamed only
	timer *time.Timer
}

type pendingRename struct {
	from  string
	at    time.Time
	timer *time.Timer
}

// renamePairGap bounds how long after a Rename a Create may arrive and still
// be taken as the new name. inotify queues the two halves of a move back to
// back, so anything slower is an unrelated file.
const renamePairGap = 10 * time.Millisecond

// Debouncer merges raw fsnotify operations on the same path that arrive
// within one quiet window into a single Event. Every new operation on a
// path restarts that path's window.
type Debouncer struct {
	root    string
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*pendingChange
	rename  *pendingRename
	pairGap time.Duration
	stopped bool
	output  chan Event
}

// NewDebouncer creates a debouncer for absolute paths under root.
func NewDebouncer(root string, window time.Duration) *Debouncer {
	return &Debouncer{
		root:    root,
		window:  window,
		pending: make(map[string]*pendingChange),
		pairGap: min(renamePairGap, window),
		output:  make(chan Event, 256),
	}
}

// Output returns the channel of settled events. It is never closed.
func (d *Debouncer) Output() <-chan Event {
	return d.output
}

// Push feeds one raw notification for an absolute path.
func (d *Debouncer) Push(op fsnotify.Op, path string) {
	var flush []Event

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	switch {
	case op.Has(fsnotify.Rename):
		// fsnotify only reports the old name; the new name arrives as an
		// immediate Create. An unpaired rename settles as a removal.
		if prev := d.rename; prev != nil && prev.timer.Stop() {
			flush = append(flush, d.event(Removed, prev.from, ""))
		}
		r := &pendingRename{from: path, at: time.Now()}
		r.timer = time.AfterFunc(d.window, func() { d.fireRename(r) })
		d.rename = r
	case op.Has(fsnotify.Create):
		if r := d.rename; r != nil {
			d.rename = nil
			if r.timer.Stop() {
				d.drop(r.from)
				if time.Since(r.at) <= d.pairGap {
					d.merge(path, Renamed, r.from)
					break
				}
				flush = append(flush, d.event(Removed, r.from, ""))
			}
		}
		d.merge(path, Created, "")
	case op.Has(fsnotify.Write):
		d.merge(path, Modified, "")
	case op.Has(fsnotify.Remove):
		d.merge(path, Removed, "")
	}
	d.mu.Unlock()

	for _, ev := range flush {
		d.output <- ev
	}
}

// Stop cancels all pending timers. Pending changes are discarded.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
	if d.rename != nil {
		d.rename.timer.Stop()
		d.rename = nil
	}
}

// merge must be called with d.mu held.
func (d *Debouncer) merge(path string, kind Kind, from string) {
	if p, ok := d.pending[path]; ok && p.timer.Stop() {
		next, keep := combine(p.kind, kind)
		if !keep {
			delete(d.pending, path)
			return
		}
		if kind == Renamed {
			p.from = from
		}
		p.kind = next
		p.timer.Reset(d.window)
		return
	}

	p := &pendingChange{kind: kind, from: from}
	p.timer = time.AfterFunc(d.window, func() { d.fire(path, p) })
	d.pending[path] = p
}

// drop discards a pending change for path. Must be called with d.mu held.
func (d *Debouncer) drop(path string) {
	if p, ok := d.pending[path]; ok && p.timer.Stop() {
		delete(d.pending, path)
	}
}

func (d *Debouncer) fire(path string, p *pendingChange) {
	d.mu.Lock()
	if d.pending[path] == p {
		delete(d.pending, path)
	}
	if d.stopped {
		d.mu.Unlock()
		return
	}
	var ev Event
	if p.kind == Removed && p.from != "" {
		ev = d.event(Removed, p.from, "")
	} else {
		ev = d.event(p.kind, path, p.from)
	}
	d.mu.Unlock()

	d.output <- ev
}

func (d *Debouncer) fireRename(r *pendingRename) {
	d.mu.Lock()
	if d.rename == r {
		d.rename = nil
		d.drop(r.from)
	}
	if d.stopped {
		d.mu.Unlock()
		return
	}
	ev := d.event(Removed, r.from, "")
	d.mu.Unlock()

	d.output <- ev
}

func (d *Debouncer) event(kind Kind, path, from string) Event {
	ev := Event{Kind: kind, Path: d.rel(path)}
	if kind == Renamed {
		ev.From = d.rel(from)
	}
	return ev
}

func (d *Debouncer) rel(path string) string {
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// combine folds a new operation into a pending one. keep is false when the
// two cancel out.
func combine(prev, next Kind) (kind Kind, keep bool) {
	switch {
	case prev == Created && next == Modified:
		return Created, true
	case prev == Created && next == Removed:
		return 0, false
	case prev == Removed && next == Created:
		return Modified, true
	case prev == Renamed && next == Modified:
		return Renamed, true
	}
	return next, true
}
