package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values. The
// per-document collaborators (Metrics, Images, Anchors, Store) are nil
// until a subcommand resolves a cache directory and wires them up.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}
