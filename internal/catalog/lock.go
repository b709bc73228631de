package catalog

import "sync"

// lockRegistry holds one mutex per repository schema, giving the
// "repository-level advisory lock held ... for the duration of the
// operation" spec.md §5 requires to serialize commit/checkout/rm.
//
// A real multi-process deployment would back this with a DB-side
// advisory lock (e.g. GET_LOCK in MySQL/Dolt); an in-process mutex is
// sufficient for the embedded-engine case this module targets and
// matches the teacher's own fallback for its embedded Dolt connector,
// which has no cross-process contention to arbitrate.
var lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func repoMutex(schema string) *sync.Mutex {
	lockRegistry.mu.Lock()
	defer lockRegistry.mu.Unlock()
	if lockRegistry.locks == nil {
		lockRegistry.locks = make(map[string]*sync.Mutex)
	}
	m, ok := lockRegistry.locks[schema]
	if !ok {
		m = &sync.Mutex{}
		lockRegistry.locks[schema] = m
	}
	return m
}

// Lock acquires the advisory lock for repo and returns a function that
// releases it. Mutating operations (commit, checkout, rm) must hold it
// for their full duration; read operations (log, diff, show) must not
// take it, per spec.md §5.
func Lock(repo Repository) func() {
	m := repoMutex(repo.Schema())
	m.Lock()
	return m.Unlock
}
