package peano

import (
	"io"
	"log/slog"
	"testing"
)

type Position struct{ X, Y float64 }

type Velocity struct{ X, Y float64 }

type Health struct{ Current int }

type Frozen struct{ _ byte }

type Lifecycle struct {
	attached int
	detached int
}

func (l *Lifecycle) Attach(*Entity) { l.attached++ }
func (l *Lifecycle) Detach(*Entity) { l.detached++ }

type Clock struct{ Ticks int }

type Score struct{ Value int }

func init() {
	// Out of name order on purpose.
	RegisterComponent[Velocity]()
	RegisterComponent[Position]()
	RegisterComponent[Lifecycle]()
	RegisterComponent[Health]()
	RegisterComponent[Frozen]()
	RegisterComponent[Position]()

	RegisterResource[Score]()
	RegisterResource[Clock]()
}

// newTestWorld creates a world that logs nowhere and stops its workers when
// the test ends.
func newTestWorld(t testing.TB, opts ...Option) *World {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	w := NewWorld(opts...)
	t.Cleanup(w.Scheduler().Close)
	return w
}

// mustPanic runs fn and returns the recovered value, failing if fn returned
// normally.
func mustPanic(t *testing.T, fn func()) (recovered any) {
	t.Helper()
	defer func() {
		recovered = recover()
		if recovered == nil {
			t.Fatal("expected panic")
		}
	}()
	fn()
	return nil
}
