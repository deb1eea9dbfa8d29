// Package registry is a directory of agent state machines: agent id to
// machine, queryable by current state. The registry holds non-owning
// references and never drives transitions itself.
package registry

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/statemachine"
	"github.com/BaSui01/agentcore/types"
)

// Registry maps agent identifiers to their lifecycle machines.
type Registry[C any] struct {
	logger *zap.Logger

	mu     sync.RWMutex
	agents map[string]*statemachine.Machine[C]
}

// New creates an empty registry.
func New[C any](logger *zap.Logger) *Registry[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry[C]{
		logger: logger.With(zap.String("component", "agent_registry")),
		agents: make(map[string]*statemachine.Machine[C]),
	}
}

// Register adds an agent's machine under a unique id.
func (r *Registry[C]) Register(agentID string, machine *statemachine.Machine[C]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agentID]; exists {
		return types.NewErrorf(types.ErrAgentExists, "agent %q already registered", agentID)
	}
	r.agents[agentID] = machine
	r.logger.Info("agent registered",
		zap.String("agent_id", agentID),
		zap.String("state", machine.CurrentState()),
	)
	return nil
}

// Deregister removes an agent. The machine itself is untouched.
func (r *Registry[C]) Deregister(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agentID]; !exists {
		return types.NewErrorf(types.ErrAgentNotFound, "agent %q is not registered", agentID)
	}
	delete(r.agents, agentID)
	r.logger.Info("agent deregistered", zap.String("agent_id", agentID))
	return nil
}

// Get returns an agent's machine.
func (r *Registry[C]) Get(agentID string) (*statemachine.Machine[C], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	machine, exists := r.agents[agentID]
	if !exists {
		return nil, types.NewErrorf(types.ErrAgentNotFound, "agent %q is not registered", agentID)
	}
	return machine, nil
}

// AgentsInState returns the sorted ids of agents currently in state
// (case-insensitive).
func (r *Registry[C]) AgentsInState(state string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, machine := range r.agents {
		if strings.EqualFold(machine.CurrentState(), state) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// History returns an agent's transition history.
func (r *Registry[C]) History(agentID string) ([]statemachine.HistoryEntry, error) {
	machine, err := r.Get(agentID)
	if err != nil {
		return nil, err
	}
	return machine.History(), nil
}

// Snapshot returns agent id to current state for every registered agent.
func (r *Registry[C]) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.agents))
	for id, machine := range r.agents {
		out[id] = machine.CurrentState()
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry[C]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
