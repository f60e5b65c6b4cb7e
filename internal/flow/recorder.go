package flow

import "time"

// Recorder receives engine events for metrics. Implementations must be
// cheap; they are called inline from the scheduler.
type Recorder interface {
	RecordRun(kind string)
	RecordResult(outcome Outcome)
	RecordStop()
	RecordSwitch()
	RecordTick(elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string) {}
func (nopRecorder) RecordResult(Outcome) {}
func (nopRecorder) RecordStop() {}
func (nopRecorder) RecordSwitch() {}
func (nopRecorder) RecordTick(time.Duration) {}
