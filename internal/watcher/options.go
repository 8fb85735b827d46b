package watcher

import "time"

// DefaultWindow is the quiet period used when Options.Window is zero.
const DefaultWindow = 100 * time.Millisecond

type Options struct {
	Window time.Duration
	// Ignore holds glob patterns; a path is skipped when any of its
	// segments below the root matches one.
	Ignore []string
}
