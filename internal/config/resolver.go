package config

import (
	"cmp"
	"slices"

	"github.com/flemzord/sigbridge/internal/core"
)

// namespaceOrder ranks module namespaces. Stores come first so they are
// started before and stopped after the modules that use them.
var namespaceOrder = map[string]int{
	"store":     0,
	"telemetry": 1,
	"channel":   2,
	"gateway":   3,
}

// Resolve returns the configured module IDs in load order: by namespace
// rank, then by ID. Unknown namespaces sort after the known ones.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

func rank(id string) int {
	if r, ok := namespaceOrder[core.ModuleID(id).Namespace()]; ok {
		return r
	}
	return len(namespaceOrder)
}
