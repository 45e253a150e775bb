package trace

// Recorder keeps every step handed to it, in order.
type Recorder struct {
	steps []Step
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends s. It never fails.
func (r *Recorder) Record(s Step) error {
	r.steps = append(r.steps, s)
	return nil
}

// Steps returns a copy of the recorded steps.
func (r *Recorder) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int {
	return len(r.steps)
}

// Digest returns the digest of the recorded steps.
func (r *Recorder) Digest() (string, error) {
	return Digest(r.steps)
}
