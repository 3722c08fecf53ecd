// Package skills provides pluggable high-level desktop behaviors: a skill
// bundles a multi-step flow (launch, focus, search, type) behind a single
// named operation the agent can invoke through the use_skill tool.
package skills

import (
	"context"
	"sort"
	"sync"

	"github.com/haasonsaas/deskagent/internal/desktop"
)

// Skill is one registered high-level behavior.
type Skill interface {
	// Name is the unique skill identifier, conventionally "app:verb"
	// (e.g. "signal:send").
	Name() string

	// Description explains what the skill does.
	Description() string

	// Params maps parameter names to human-readable descriptions.
	Params() map[string]string

	// Execute runs the skill. Failures are reported in the Result, not as
	// errors, matching the desktop capability contract.
	Execute(ctx context.Context, params map[string]any) desktop.Result
}

// Info is the serializable view of a registered skill.
type Info struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Params      map[string]string `json:"parameters"`
}

// Registry maps skill names to implementations. Registration is
// idempotent: re-registering a name overwrites the previous skill.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry creates an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds or replaces a skill under its name.
func (r *Registry) Register(skill Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[skill.Name()] = skill
}

// Get returns the skill registered under name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skill, ok := r.skills[name]
	return skill, ok
}

// List returns metadata for every registered skill, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.skills))
	for _, skill := range r.skills {
		out = append(out, Info{
			Name:        skill.Name(),
			Description: skill.Description(),
			Params:      skill.Params(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterDefaults installs the skills shipped with the agent.
func RegisterDefaults(r *Registry, controller desktop.Controller) {
	r.Register(NewSignalSend(controller))
	r.Register(NewWhatsAppSend(controller))
}
