package tasks

const (
	PathAnalyzeMixed  = "/analyze-mixed"
	PathCoachMe       = "/coach-me"
	PathDecomposeTask = "/decompose-task"

	StatusText     = "Vira Flow Brain is Active"
	FallbackAdvice = "Şu an bağlantımda sorun var, ama sen çalışmaya devam et!"
)

// FailurePolicy decides what the caller sees when the completion call or
// reply parsing fails.
type FailurePolicy int

const (
	// FailHard answers 500 with the error as detail.
	FailHard FailurePolicy = iota
	// Degrade answers 200 with a default payload plus an error field.
	Degrade
)

// Per-endpoint policies.
const (
	ExtractPolicy   = FailHard
	CoachPolicy     = Degrade
	DecomposePolicy = Degrade
)
