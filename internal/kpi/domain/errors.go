package domain

import "fmt"

// BackendLoadError is fatal to one backend's run: the materialization
// transaction rolled back and the store is in its pre-run state. The other
// backend is unaffected.
type BackendLoadError struct {
	Backend string
	Err     error
}

func (e *BackendLoadError) Error() string {
	return fmt.Sprintf("backend %s: load failed: %v", e.Backend, e.Err)
}

func (e *BackendLoadError) Unwrap() error {
	return e.Err
}

// BackendComputeError is fatal to one backend's KPI output for the run; it
// never corrupts stored data.
type BackendComputeError struct {
	Backend string
	KPI     string
	Err     error
}

func (e *BackendComputeError) Error() string {
	return fmt.Sprintf("backend %s: %s failed: %v", e.Backend, e.KPI, e.Err)
}

func (e *BackendComputeError) Unwrap() error {
	return e.Err
}
