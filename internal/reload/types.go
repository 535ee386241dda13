package reload

import "context"

// Action describes what happened to a watched configuration file.
type Action int

const (
	// AddOrUpdate fires for create, write and rename events.
	AddOrUpdate Action = iota
	// Delete fires when a watched file is removed.
	Delete
)

// Reloadable is registered against a config kind (e.g. "mcp", "policy") and
// is invoked whenever a file of that kind changes on disk.
type Reloadable interface {
	Reload(ctx context.Context, name string, what Action) error
}
