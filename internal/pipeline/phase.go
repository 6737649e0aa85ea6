package pipeline

// Phase is a step of the expansion state machine. Phases run strictly in
// order; there is no retry or re-entry.
type Phase string

const (
	PhaseStart     Phase = "start"
	PhaseStage1    Phase = "stage1_substitute"
	PhaseLandmarks Phase = "extract_landmarks"
	PhaseStage2    Phase = "stage2_substitute"
	PhaseDone      Phase = "done"
)
