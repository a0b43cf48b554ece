package peano

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDependency is returned when a system orders itself after a
	// system that is not registered in the same stage.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrDependencyCycle is returned when ordering dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrDuplicateSystem is returned when two systems share a name.
	ErrDuplicateSystem = errors.New("duplicate system")

	// ErrDuplicateMapping is returned when a world already holds a mapping of
	// the same type.
	ErrDuplicateMapping = errors.New("duplicate mapping")

	// ErrSchedulerRunning is returned when systems are added while the
	// scheduler's tick loop is running.
	ErrSchedulerRunning = errors.New("scheduler running")
)

// SystemPanic is the value a tick panics with when a system panicked.
// The tick still waits for the rest of the wave before panicking.
type SystemPanic struct {
	// System is the name of the system that panicked.
	System string
	// Tick is the tick number the panic happened in.
	Tick uint64
	// Value is the value passed to panic.
	Value any
	// Stack is the goroutine stack captured on recovery.
	Stack []byte
}

// Error implements error.
func (p *SystemPanic) Error() string {
	return fmt.Sprintf("peano: panic in system %s (tick %d): %v", p.System, p.Tick, p.Value)
}

// Unwrap returns the panic value if it is an error.
func (p *SystemPanic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}
