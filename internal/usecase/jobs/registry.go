package jobs

import (
	"sync"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
)

// Registry maps job types to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]domain.JobHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]domain.JobHandler)}
}

// Register replaces any handler already registered for jobType.
func (r *Registry) Register(jobType string, handler domain.JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

func (r *Registry) Lookup(jobType string) (domain.JobHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
