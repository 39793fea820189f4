package coordinator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/deploy"
)

// Registry tracks the instances that have registered with the coordinator,
// in registration order. It is the source of the cluster snapshot handed to
// lifecycle events.
// Thread-safe: All methods are safe for concurrent access.
type Registry struct {
	name      string
	instances []cluster.Instance
	changed   chan struct{} // closed and replaced on every mutation
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry for the cluster called name.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		changed: make(chan struct{}),
	}
}

// Register adds inst or replaces the instance with the same ID, keeping its
// original position and health status. It reports whether the instance is new.
func (r *Registry) Register(inst cluster.Instance) bool {
	inst.Roles = append([]string(nil), inst.Roles...)

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.instances, func(i cluster.Instance) bool { return i.ID == inst.ID })
	created := idx < 0
	if created {
		if inst.Status == "" {
			inst.Status = cluster.StatusUnknown
		}
		r.instances = append(r.instances, inst)
	} else {
		// The health monitor only reports transitions, so the status it
		// last reported has to survive a re-registration.
		inst.Status = r.instances[idx].Status
		r.instances[idx] = inst
	}
	r.notifyLocked()
	return created
}

// Deregister removes the instance with the given ID.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.instances, func(i cluster.Instance) bool { return i.ID == id })
	if idx < 0 {
		return false
	}
	r.instances = slices.Delete(r.instances, idx, idx+1)
	r.notifyLocked()
	return true
}

// SetStatus records the health state of an instance. Unknown IDs are ignored.
func (r *Registry) SetStatus(id, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.instances, func(i cluster.Instance) bool { return i.ID == id })
	if idx < 0 || r.instances[idx].Status == status {
		return idx >= 0
	}
	r.instances[idx].Status = status
	r.notifyLocked()
	return true
}

// Instances returns a copy of the registered instances.
func (r *Registry) Instances() []cluster.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyLocked()
}

// Snapshot returns a fresh snapshot of the cluster.
func (r *Registry) Snapshot() cluster.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cluster.Snapshot{Name: r.name, Instances: r.copyLocked()}
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// WaitFor blocks until the registered instances satisfy templates and
// returns the snapshot that did. Cancellation of ctx yields an error wrapping
// deploy.ErrInterrupted and the context error.
func (r *Registry) WaitFor(ctx context.Context, templates []cluster.InstanceTemplate) (cluster.Snapshot, error) {
	for {
		r.mu.RLock()
		snap := cluster.Snapshot{Name: r.name, Instances: r.copyLocked()}
		changed := r.changed
		r.mu.RUnlock()

		if cluster.Satisfied(snap, templates) {
			return snap, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return cluster.Snapshot{}, fmt.Errorf("%w: waiting for %d instances: %w",
				deploy.ErrInterrupted, expected(templates), ctx.Err())
		}
	}
}

func (r *Registry) copyLocked() []cluster.Instance {
	out := make([]cluster.Instance, len(r.instances))
	for i, inst := range r.instances {
		inst.Roles = append([]string(nil), inst.Roles...)
		out[i] = inst
	}
	return out
}

func (r *Registry) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func expected(templates []cluster.InstanceTemplate) int {
	n := 0
	for _, t := range templates {
		n += t.Count
	}
	return n
}
