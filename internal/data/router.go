package data

import (
	"sync/atomic"

	"FailoverGuard/internal/model"

	"gorm.io/gorm"
)

// ActiveConnectionRouter hands out the handle of whichever replica the
// controller last designated. Reads are a single atomic load.
type ActiveConnectionRouter struct {
	replicas *ReplicaSet
	active   atomic.Pointer[Replica]
}

// NewActiveConnectionRouter starts out serving the primary.
func NewActiveConnectionRouter(replicas *ReplicaSet) *ActiveConnectionRouter {
	r := &ActiveConnectionRouter{replicas: replicas}
	r.active.Store(replicas.Get(model.RolePrimary))
	return r
}

// GetActiveConnection returns the active replica's gorm handle. It never
// opens a connection or probes.
func (r *ActiveConnectionRouter) GetActiveConnection() *gorm.DB {
	return r.active.Load().DB
}

// ActiveReplica returns the active replica.
func (r *ActiveConnectionRouter) ActiveReplica() *Replica {
	return r.active.Load()
}

// ActiveRole returns the role currently served.
func (r *ActiveConnectionRouter) ActiveRole() model.ReplicaRole {
	return r.active.Load().Role
}

// SetActive designates role as the replica to serve from now on.
func (r *ActiveConnectionRouter) SetActive(role model.ReplicaRole) {
	next := r.replicas.Get(role)
	if r.active.Load() != next {
		r.active.Store(next)
	}
}
