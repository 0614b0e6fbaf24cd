package specialist

import (
	"context"
	"fmt"
	"sync"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// Registry invokes in-process specialists by role.
type Registry struct {
	mu          sync.RWMutex
	specialists map[contractx.Role]contractx.Specialist
}

var _ contractx.Invoker = (*Registry)(nil)

func NewRegistry(facades ...*Facade) *Registry {
	r := &Registry{specialists: make(map[contractx.Role]contractx.Specialist)}
	for _, f := range facades {
		if f != nil {
			r.Register(f.Role(), f)
		}
	}
	return r
}

func (r *Registry) Register(role contractx.Role, s contractx.Specialist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specialists[role] = s
}

func (r *Registry) Invoke(ctx context.Context, role contractx.Role, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	r.mu.RLock()
	s, ok := r.specialists[role]
	r.mu.RUnlock()
	if !ok {
		return contractx.SpecialistResponse{RequestID: req.RequestID, Role: role},
			fmt.Errorf("%w: no specialist registered for role=%s", contractx.ErrRemoteUnreachable, role)
	}
	if err := ctx.Err(); err != nil {
		return contractx.SpecialistResponse{RequestID: req.RequestID, Role: role},
			fmt.Errorf("%w: %v", contractx.ErrRemoteUnreachable, err)
	}
	if req.Role == "" {
		req.Role = role
	}
	return s.Invoke(ctx, req)
}
