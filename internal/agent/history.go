package agent

// History is the append-only record of the steps of one task. It is owned by
// a single Agent and is not safe for concurrent use.
type History struct {
	steps []Step
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(s Step) {
	h.steps = append(h.steps, s)
}

func (h *History) Len() int { return len(h.steps) }

// Last returns the most recent step.
func (h *History) Last() (Step, bool) {
	if len(h.steps) == 0 {
		return Step{}, false
	}
	return h.steps[len(h.steps)-1], true
}

// AttachFeedback sets the feedback of the most recent step. It reports false
// when there is no step yet.
func (h *History) AttachFeedback(text string) bool {
	if len(h.steps) == 0 {
		return false
	}
	h.steps[len(h.steps)-1].Feedback = text
	return true
}

// Steps returns a copy of the recorded steps in order.
func (h *History) Steps() []Step {
	return append([]Step(nil), h.steps...)
}

// Preview returns a copy of the steps as they would read after
// AttachFeedback(text), leaving the history untouched.
func (h *History) Preview(text string) []Step {
	steps := h.Steps()
	if text != "" && len(steps) > 0 {
		steps[len(steps)-1].Feedback = text
	}
	return steps
}
