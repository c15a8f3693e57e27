package tracing

import (
	"github.com/sarchlab/vendsim/datarecording"
	"github.com/sarchlab/vendsim/idgen"
	"github.com/sarchlab/vendsim/vending"
)

// TransitionRecord is a row of the transition table.
type TransitionRecord struct {
	RunID     string
	Machine   string
	TimeMs    float64
	FromState string
	ToState   string
	Cause     string
	Credit    int
	Change    int
	Selected  string
}

// TransitionTracer writes every transition into a table of a DataRecorder.
type TransitionTracer struct {
	recorder datarecording.DataRecorder
	table    string
	runID    string
}

// NewTransitionTracer creates the table and returns a tracer that fills it.
// All rows written by the tracer share one run ID.
func NewTransitionTracer(
	recorder datarecording.DataRecorder,
	table string,
) *TransitionTracer {
	recorder.CreateTable(table, TransitionRecord{})

	return &TransitionTracer{
		recorder: recorder,
		table:    table,
		runID:    idgen.RunID(),
	}
}

// RunID returns the run ID stamped on every row.
func (t *TransitionTracer) RunID() string {
	return t.runID
}

// Transition inserts a row for tr.
func (t *TransitionTracer) Transition(tr vending.Transition) {
	t.recorder.InsertData(t.table, TransitionRecord{
		RunID:     t.runID,
		Machine:   tr.Machine,
		TimeMs:    float64(tr.At.Microseconds()) / 1000,
		FromState: tr.From.String(),
		ToState:   tr.To.String(),
		Cause:     string(tr.Cause),
		Credit:    tr.Credit,
		Change:    tr.Change,
		Selected:  tr.Selected,
	})
}
