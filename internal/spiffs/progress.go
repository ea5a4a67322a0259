package spiffs

// StepStatus is the state of a step when it is reported.
type StepStatus string

const (
	StepRunning StepStatus = "in_progress"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// Step is one stage of an operation.
type Step struct {
	// Number is 1-based within the operation.
	Number int
	Total  int
	Name   string
	Status StepStatus
	// Message is a short note such as "1441792 bytes" or the error text.
	Message string
}

// ProgressFunc receives step updates.
type ProgressFunc func(Step)

// sequence numbers the steps of one operation and reports them.
type sequence struct {
	names    []string
	progress ProgressFunc
}

func (o *Operations) newSequence(names []string) *sequence {
	return &sequence{names: names, progress: o.progress}
}

func (s *sequence) number(name string) int {
	for i, n := range s.names {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// run reports name as running, calls fn, then reports the outcome.
func (s *sequence) run(name string, fn func() (string, error)) error {
	step := Step{Number: s.number(name), Total: len(s.names), Name: name, Status: StepRunning}
	s.progress(step)

	msg, err := fn()
	if err != nil {
		step.Status = StepFailed
		step.Message = err.Error()
		s.progress(step)
		return err
	}

	step.Status = StepSuccess
	step.Message = msg
	s.progress(step)
	return nil
}
