// Package core provides the module system sigbridge is assembled from.
//
// A module registers itself from an init() function, is instantiated from
// its ModuleInfo, and is driven through the optional lifecycle interfaces
// in lifecycle.go.
package core

import "strings"

// ModuleID identifies a module as "<namespace>.<name>", e.g. "store.sqlite".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the first dot, or the whole ID
// when it has no namespace.
func (id ModuleID) Name() string {
	_, name, ok := strings.Cut(string(id), ".")
	if !ok {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every sigbridge module.
type Module interface {
	ModuleInfo() ModuleInfo
}
