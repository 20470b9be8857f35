package setup

import "math"

// StepRecord is the mutable per-step view owned by the orchestrator.
type StepRecord struct {
	Step        Step       `json:"step"`
	Status      StepStatus `json:"status"`
	Progress    int        `json:"progress"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Error       string     `json:"error,omitempty"`
	UserAction  string     `json:"user_action,omitempty"`
}

// State is a snapshot of the whole initialization.
type State struct {
	RunID           string              `json:"run_id,omitempty"`
	CurrentStep     Step                `json:"current_step"`
	Steps           map[Step]StepRecord `json:"steps"`
	OverallProgress int                 `json:"overall_progress"`
	IsCompleted     bool                `json:"is_completed"`
	CanExit         bool                `json:"can_exit"`
}

// newState returns the initial state: every step pending.
func newState() State {
	st := State{
		CurrentStep: StepCheckPrerequisite,
		Steps:       make(map[Step]StepRecord, len(stepOrder)),
	}
	for _, step := range stepOrder {
		st.Steps[step] = pendingRecord(step)
	}
	return st
}

func pendingRecord(step Step) StepRecord {
	return StepRecord{
		Step:        step,
		Status:      StatusPending,
		Title:       step.Title(),
		Description: step.Description(),
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Steps = make(map[Step]StepRecord, len(s.Steps))
	for k, v := range s.Steps {
		out.Steps[k] = v
	}
	return out
}

// Ordered returns the step records in execution order.
func (s State) Ordered() []StepRecord {
	out := make([]StepRecord, 0, len(stepOrder))
	for _, step := range stepOrder {
		if rec, ok := s.Steps[step]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// FailedStep returns the first step in error, if any.
func (s State) FailedStep() (StepRecord, bool) {
	for _, rec := range s.Ordered() {
		if rec.Status == StatusError {
			return rec, true
		}
	}
	return StepRecord{}, false
}

// ComputeProgress derives overall progress from step statuses:
// round(100 * sum(contribution) / sum(weight)), where a successful step
// contributes its weight, a running step weight*progress/100, others nothing.
func ComputeProgress(steps map[Step]StepRecord) int {
	var total, done float64
	for _, step := range stepOrder {
		w := float64(step.Weight())
		total += w

		rec, ok := steps[step]
		if !ok {
			continue
		}
		switch rec.Status {
		case StatusSuccess:
			done += w
		case StatusInProgress:
			done += w * float64(clampPercent(rec.Progress)) / 100
		}
	}
	if total == 0 {
		return 0
	}
	return clampPercent(int(math.Round(100 * done / total)))
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
