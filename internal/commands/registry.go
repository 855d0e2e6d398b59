// Package commands holds the slash commands the composer understands and the
// clients that back them.
package commands

import (
	"sort"
	"strings"
	"sync"

	"github.com/voxchat/backend/internal/composer"
)

// Registry is the default composer.CommandSet: a named set of slash commands
// with case-insensitive lookup.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]composer.Command
}

var _ composer.CommandSet = (*Registry)(nil)

// NewRegistry creates a registry seeded with the given commands
func NewRegistry(cmds ...composer.Command) *Registry {
	r := &Registry{cmds: make(map[string]composer.Command, len(cmds))}
	for _, c := range cmds {
		r.Register(c)
	}
	return r
}

// Default returns the registry shipped with voxchat channels.
func Default() *Registry {
	return NewRegistry(
		composer.Command{Name: "giphy", Description: "Post a GIF", ContentBearing: true, Instant: true},
		composer.Command{Name: "shrug", Description: `Append ¯\_(ツ)_/¯`},
		composer.Command{Name: "mute", Description: "Mute a user", ContentBearing: true},
		composer.Command{Name: "unmute", Description: "Unmute a user", ContentBearing: true},
	)
}

// Register adds or replaces a command. Names are stored lowercased.
func (r *Registry) Register(c composer.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds[strings.ToLower(c.Name)] = c
}

// Lookup implements composer.CommandSet.
func (r *Registry) Lookup(name string) (composer.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cmds[strings.ToLower(name)]
	return c, ok
}

// All returns the registered commands sorted by name, for the client-facing
// command list.
func (r *Registry) All() []composer.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]composer.Command, 0, len(r.cmds))
	for _, c := range r.cmds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
