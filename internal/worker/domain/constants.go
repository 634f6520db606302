package domain

// Iteration stages, in the order the worker loop walks them
const (
	StageIdle       = "idle"
	StageActivating = "activating"
	StageFetching   = "fetching"
	StageProcessing = "processing"
	StageCompleting = "completing"
)

// Iteration status constants
const (
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned" // failure left to lease expiry
	StatusFailed    = "failed"    // failure reported to the engine
	StatusIdle      = "idle"
)

// DefaultJobType is the task type the docling converter subscribes to
const DefaultJobType = "converter.docling"
