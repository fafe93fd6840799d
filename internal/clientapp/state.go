// Package clientapp implements the client daemon: schedule evaluation, job
// launch and eviction, and the HTTP handlers the server calls into
// (spec.md §4.3, §4.4).
package clientapp

import (
	"sync"

	"relique/internal/config"
	"relique/internal/store"
)

// jobHandle is a detached worker's handle to its own job state. Per
// spec.md §9, jobs never share mutable state with each other, so each
// handle guards its status with its own small lock rather than with the
// shared State lock: the worker updates it without touching the State
// lock, and the run loop reads Status() while holding the State lock.
type jobHandle struct {
	mu         sync.RWMutex
	uuid       string
	moduleName string
	status     store.JobStatus
}

func newJobHandle(uuid, moduleName string) *jobHandle {
	return &jobHandle{uuid: uuid, moduleName: moduleName, status: store.JobStatusPending}
}

func (h *jobHandle) Status() store.JobStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *jobHandle) setStatus(s store.JobStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
}

// clientState is the client daemon's entire in-memory state: the spec
// received from the server (nil until the first successful push) and the
// in-flight job handles keyed by module name, per the duplicate-detection
// rule of spec.md §4.3 ("unless a job already exists in the in-flight list
// for the same module name"). The client has no persistent store of its
// own; this state is lost on restart (spec.md §3).
type clientState struct {
	Spec *config.Client
	Jobs map[string]*jobHandle
}

func newClientState() clientState {
	return clientState{Jobs: make(map[string]*jobHandle)}
}
