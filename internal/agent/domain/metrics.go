package domain

// Recorder receives run-lifecycle signals for metrics collection.
type Recorder interface {
	RunStarted()
	RunFinished(outcome string)
	ModelTurn()
	ToolInvocation(name string)
}

type nopRecorder struct{}

func (nopRecorder) RunStarted()           {}
func (nopRecorder) RunFinished(string)    {}
func (nopRecorder) ModelTurn()            {}
func (nopRecorder) ToolInvocation(string) {}

// NopRecorder returns a Recorder that drops every signal.
func NopRecorder() Recorder { return nopRecorder{} }

func orNopRecorder(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
