package service

import (
	"sync"

	"github.com/google/uuid"
)

// tenantLocks serializes maintenance jobs (merge, calibration, decay sweep)
// per tenant. Contention is low, so a keyed in-process mutex is enough;
// different tenants never block each other.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the tenant's mutex and returns the unlock func.
func (t *tenantLocks) Lock(tenantID uuid.UUID) func() {
	t.mu.Lock()
	l, ok := t.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[tenantID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// NewMaintenanceLocks exposes the lock table for wiring into the services
// that share it.
func NewMaintenanceLocks() *tenantLocks {
	return newTenantLocks()
}
