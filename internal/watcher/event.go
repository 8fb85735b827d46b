package watcher

import "fmt"

// Kind classifies a settled filesystem change.
type Kind int

const (
	Created Kind = iota
	Modified
	Removed
	Renamed
)

var kindNames = map[Kind]string{
	Created:  "CREATE",
	Modified: "UPDATE",
	Removed:  "REMOVE",
	Renamed:  "RENAME",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Event is one debounced change. Paths are slash-separated and relative to
// the watched root. From is only set for Renamed.
type Event struct {
	Kind Kind
	Path string
	From string
}

func (e Event) String() string {
	if e.Kind == Renamed {
		return fmt.Sprintf("[%s] %s -> %s", e.Kind, e.From, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Path)
}
