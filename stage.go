package peano

// Stage represents a scheduling stage for system execution.
// Systems are executed in stage order: PreUpdate → Update → PostUpdate.
type Stage int

const (
	// PreUpdate runs first. Use for input, spawning and setup logic that
	// other systems depend on.
	PreUpdate Stage = iota

	// Update runs second. Use for most simulation logic.
	Update

	// PostUpdate runs last. Use for cleanup, index maintenance and
	// despawning.
	PostUpdate

	// stageCount is the total number of stages.
	stageCount
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case PreUpdate:
		return "PreUpdate"
	case Update:
		return "Update"
	case PostUpdate:
		return "PostUpdate"
	default:
		return "Unknown"
	}
}

// valid reports whether s is one of the defined stages.
func (s Stage) valid() bool {
	return s >= PreUpdate && s < stageCount
}
