package database

import (
	"github.com/caremap/caredirectory/backend/internal/query/engine"
)

// aliases builds an alias map whose every entry is the logical key plus a
// suffix. An empty suffix yields the identity mapping used by primary
// queries; "_sort" and numbered suffixes keep sort and nested subqueries
// from colliding with their enclosing context.
func aliases(suffix string, keys ...string) engine.Tables {
	t := make(engine.Tables, len(keys))
	for _, k := range keys {
		t[k] = k + suffix
	}
	return t
}
