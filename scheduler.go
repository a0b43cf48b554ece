package peano

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs the world's systems.
// Each stage is split into waves of systems with non-conflicting footprints;
// the systems of a wave run in parallel on a worker pool and the next wave
// starts only after all of them returned.
type Scheduler struct {
	world *World

	// System registry and the plan derived from it
	mu      sync.Mutex
	systems [stageCount][]*systemState
	count   int
	waves   [stageCount][][]*systemState
	dirty   bool

	// Worker pool
	workers    int
	poolMu     sync.Mutex
	workerPool chan func()
	workerWG   sync.WaitGroup

	// One-shot tasks
	tasks *taskQueue

	// Tick loop
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Tick tracking
	tickMu     sync.Mutex
	tickRate   time.Duration
	lastTick   time.Time
	tickNumber atomic.Uint64

	// Access validation
	check        AccessCheck
	violationsMu sync.Mutex
	violations   []AccessViolation
}

// newScheduler creates a new scheduler.
func newScheduler(w *World) *Scheduler {
	return &Scheduler{
		world:    w,
		workers:  w.opts.Workers,
		tasks:    newTaskQueue(),
		tickRate: w.opts.TickRate,
		check:    w.opts.AccessCheck,
	}
}

// Add registers a system in a stage. Systems can not be added while the tick
// loop runs.
func (s *Scheduler) Add(sys System, stage Stage) error {
	if sys == nil {
		return fmt.Errorf("peano: add system: nil system")
	}
	if !stage.valid() {
		return fmt.Errorf("peano: add system %s: invalid stage %d", systemName(sys), stage)
	}
	if s.running.Load() {
		return fmt.Errorf("peano: add system %s: %w", systemName(sys), ErrSchedulerRunning)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := newSystemState(sys, stage, s.count)
	for _, stageSystems := range s.systems {
		for _, existing := range stageSystems {
			if existing.name == st.name {
				return fmt.Errorf("peano: add system %s: %w", st.name, ErrDuplicateSystem)
			}
		}
	}

	s.count++
	s.systems[stage] = append(s.systems[stage], st)
	s.dirty = true
	return nil
}

// Build computes the wave plan of every stage. It reports unknown and
// cyclic dependencies. Tick builds on demand; calling Build first surfaces
// errors before the first tick.
func (s *Scheduler) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked()
}

func (s *Scheduler) buildLocked() error {
	if !s.dirty {
		return nil
	}

	var waves [stageCount][][]*systemState
	for stage := PreUpdate; stage < stageCount; stage++ {
		if err := s.resolveDeps(stage); err != nil {
			return err
		}
		ordered, err := orderSystems(s.systems[stage])
		if err != nil {
			return fmt.Errorf("peano: build stage %s: %w", stage, err)
		}
		waves[stage] = buildWaves(ordered)
	}

	s.waves = waves
	s.dirty = false

	for stage := PreUpdate; stage < stageCount; stage++ {
		for i, wave := range s.waves[stage] {
			names := make([]string, len(wave))
			for j, st := range wave {
				names[j] = st.name
			}
			s.world.logger.Debug("peano: wave planned", "stage", stage.String(), "wave", i, "systems", strings.Join(names, ","))
		}
	}
	return nil
}

// resolveDeps turns declared dependencies into system pointers.
// A dependency on a system of an earlier stage is already satisfied.
func (s *Scheduler) resolveDeps(stage Stage) error {
	for _, st := range s.systems[stage] {
		st.deps = st.deps[:0]

		for _, dep := range st.typeDeps {
			found, earlier := s.match(stage, func(o *systemState) bool { return o.typ == dep })
			if len(found) == 0 && !earlier {
				return fmt.Errorf("peano: system %s runs after %v: %w", st.name, dep, ErrUnknownDependency)
			}
			st.deps = append(st.deps, found...)
		}
		for _, dep := range st.nameDeps {
			found, earlier := s.match(stage, func(o *systemState) bool { return o.name == dep })
			if len(found) == 0 && !earlier {
				return fmt.Errorf("peano: system %s runs after %s: %w", st.name, dep, ErrUnknownDependency)
			}
			st.deps = append(st.deps, found...)
		}
	}
	return nil
}

// match returns the systems of stage satisfying pred, and whether a system
// of an earlier stage does.
func (s *Scheduler) match(stage Stage, pred func(*systemState) bool) ([]*systemState, bool) {
	var found []*systemState
	for _, o := range s.systems[stage] {
		if pred(o) {
			found = append(found, o)
		}
	}
	for prev := PreUpdate; prev < stage; prev++ {
		for _, o := range s.systems[prev] {
			if pred(o) {
				return found, true
			}
		}
	}
	return found, false
}

// orderSystems sorts systems topologically by dependency. Among systems that
// are ready, registration order wins.
func orderSystems(systems []*systemState) ([]*systemState, error) {
	emitted := make(map[*systemState]bool, len(systems))
	ordered := make([]*systemState, 0, len(systems))

	for len(ordered) < len(systems) {
		progress := false
		for _, st := range systems {
			if emitted[st] {
				continue
			}
			ready := true
			for _, dep := range st.deps {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if ready {
				emitted[st] = true
				ordered = append(ordered, st)
				progress = true
				break
			}
		}
		if !progress {
			var stuck []string
			for _, st := range systems {
				if !emitted[st] {
					stuck = append(stuck, st.name)
				}
			}
			return nil, fmt.Errorf("%w between %s", ErrDependencyCycle, strings.Join(stuck, ", "))
		}
	}
	return ordered, nil
}

// buildWaves partitions ordered systems into waves. A system joins the
// current wave if its dependencies sit in earlier waves and it conflicts
// neither with a wave member nor with a system ahead of it that is still
// unplaced. Conflicting systems therefore always run in order.
func buildWaves(ordered []*systemState) [][]*systemState {
	var waves [][]*systemState
	placed := make(map[*systemState]bool, len(ordered))
	remaining := ordered

	for len(remaining) > 0 {
		var wave []*systemState
		var nextRemaining []*systemState

		for _, candidate := range remaining {
			ok := true
			for _, dep := range candidate.deps {
				if !placed[dep] {
					ok = false
					break
				}
			}
			if ok {
				for _, existing := range wave {
					if candidate.access.Conflicts(existing.access) {
						ok = false
						break
					}
				}
			}
			if ok {
				for _, ahead := range nextRemaining {
					if candidate.access.Conflicts(ahead.access) {
						ok = false
						break
					}
				}
			}

			if ok {
				wave = append(wave, candidate)
			} else {
				nextRemaining = append(nextRemaining, candidate)
			}
		}

		for _, st := range wave {
			placed[st] = true
		}
		waves = append(waves, wave)
		remaining = nextRemaining
	}
	return waves
}

// Waves returns the planned system names of a stage, one slice per wave.
func (s *Scheduler) Waves(stage Stage) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buildLocked(); err != nil {
		return nil, err
	}
	if !stage.valid() {
		return nil, nil
	}
	out := make([][]string, len(s.waves[stage]))
	for i, wave := range s.waves[stage] {
		for _, st := range wave {
			out[i] = append(out[i], st.name)
		}
	}
	return out, nil
}

// TickNumber returns the number of ticks started so far.
func (s *Scheduler) TickNumber() uint64 {
	return s.tickNumber.Load()
}

// Tick runs every system exactly once, stage by stage and wave by wave, then
// runs due tasks. Ticks never overlap.
//
// If a system panics, the rest of its wave still completes and Tick then
// panics with a *SystemPanic. An invalid plan panics with the build error.
func (s *Scheduler) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if err := s.buildLocked(); err != nil {
		s.mu.Unlock()
		panic(err)
	}
	waves := s.waves
	s.mu.Unlock()

	now := time.Now()
	var delta time.Duration
	if !s.lastTick.IsZero() {
		delta = now.Sub(s.lastTick)
	}
	s.lastTick = now
	tick := s.tickNumber.Add(1)

	for stage := PreUpdate; stage < stageCount; stage++ {
		for _, wave := range waves[stage] {
			if p := s.runWave(wave, tick, delta); p != nil {
				s.handleSystemPanic(p)
			}
		}
	}

	s.processTasks(now, tick, delta)
}

// runWave fans a wave out on the worker pool and waits for it.
// It returns the first panic recovered in the wave.
func (s *Scheduler) runWave(wave []*systemState, tick uint64, delta time.Duration) *SystemPanic {
	if len(wave) == 1 {
		return s.execute(wave[0], tick, delta)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first *SystemPanic
	)
	wg.Add(len(wave))

	pool := s.pool()
	for _, st := range wave {
		job := func() {
			defer wg.Done()
			if p := s.execute(st, tick, delta); p != nil {
				mu.Lock()
				if first == nil {
					first = p
				}
				mu.Unlock()
			}
		}

		select {
		case pool <- job:
		default:
			// Worker pool full, run inline
			job()
		}
	}

	wg.Wait()
	return first
}

// execute runs one system and recovers its panic.
func (s *Scheduler) execute(st *systemState, tick uint64, delta time.Duration) (p *SystemPanic) {
	defer func() {
		if r := recover(); r != nil {
			p = &SystemPanic{System: st.name, Tick: tick, Value: r, Stack: debug.Stack()}
		}
	}()

	st.sys.Run(&Context{
		World:     s.world,
		Tick:      tick,
		Delta:     delta,
		system:    st,
		scheduler: s,
	})
	return nil
}

// handleSystemPanic logs a recovered panic and fails the tick.
func (s *Scheduler) handleSystemPanic(p *SystemPanic) {
	s.world.logger.Error("peano: system panicked",
		"system", p.System,
		"tick", p.Tick,
		"panic", fmt.Sprint(p.Value),
		"stack", string(p.Stack),
	)
	panic(p)
}

// pool returns the job channel, starting the workers if needed.
func (s *Scheduler) pool() chan func() {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	if s.workerPool == nil {
		s.workerPool = make(chan func(), s.workers*4)
		for i := 0; i < s.workers; i++ {
			s.workerWG.Add(1)
			go s.worker(s.workerPool)
		}
	}
	return s.workerPool
}

// worker is a pool worker that executes jobs.
func (s *Scheduler) worker(jobs <-chan func()) {
	defer s.workerWG.Done()
	for fn := range jobs {
		fn()
	}
}

// Close stops the tick loop and the worker pool. A later Tick starts a new
// pool.
func (s *Scheduler) Close() {
	s.Stop()

	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.poolMu.Lock()
	if s.workerPool != nil {
		close(s.workerPool)
		s.workerPool = nil
	}
	s.poolMu.Unlock()
	s.workerWG.Wait()
}

// Start begins ticking at the configured tick rate on a new goroutine.
// It returns the build error if the plan is invalid.
func (s *Scheduler) Start() error {
	if err := s.Build(); err != nil {
		return err
	}
	if s.running.Swap(true) {
		return nil // Already running
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.tickLoop(s.stopCh, s.doneCh)
	return nil
}

// Stop ends the tick loop and waits for the running tick to finish.
func (s *Scheduler) Stop() {
	if !s.running.Swap(false) {
		return // Not running
	}

	close(s.stopCh)
	<-s.doneCh
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// tickLoop is the main scheduler loop.
func (s *Scheduler) tickLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			s.Tick()
		}
	}
}

// recordViolation stores a violation and logs it.
func (s *Scheduler) recordViolation(v AccessViolation) {
	s.violationsMu.Lock()
	s.violations = append(s.violations, v)
	s.violationsMu.Unlock()

	s.world.logger.Warn("peano: access violation",
		"system", v.System,
		"tick", v.Tick,
		"kind", v.Kind,
		"name", v.Name,
		"write", v.Write,
	)
}

// Violations returns the access violations recorded so far.
func (s *Scheduler) Violations() []AccessViolation {
	s.violationsMu.Lock()
	defer s.violationsMu.Unlock()
	out := make([]AccessViolation, len(s.violations))
	copy(out, s.violations)
	return out
}
