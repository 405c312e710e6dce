package oracle

// RowSink and RowSource are the narrow pair of interfaces that break a
// Statement<->Dispatcher reference cycle: instead of the fetch loop
// holding a pointer back into the dispatcher, it only ever talks to the
// small interface it actually needs, and the dispatcher reads column
// metadata through RowSource rather than from the concrete Statement.

// RowSink receives decoded rows as the fetch loop produces them. A
// caller that falls behind returns false from Offer, which is
// StatementExecution.HandleMessages's cue to call
// AdaptiveRowBuffer.Backoff before the next fetch round trip.
type RowSink interface {
	Offer(row [][]byte) (accepted bool)
	Done(err error)
}

// RowSource is what the dispatcher drives: a statement ready to stream
// rows into whatever RowSink the caller supplied.
type RowSource interface {
	NextFetchSize() int
	Columns() []OracleColumn
}

// bufferedRowSink is the default RowSink used when a caller wants a
// simple in-memory slice rather than a custom streaming consumer.
type bufferedRowSink struct {
	rows [][][]byte
	err  error
	cap  int
}

func newBufferedRowSink(capHint int) *bufferedRowSink {
	return &bufferedRowSink{cap: capHint}
}

func (s *bufferedRowSink) Offer(row [][]byte) bool {
	if s.cap > 0 && len(s.rows) >= s.cap {
		return false
	}
	s.rows = append(s.rows, row)
	return true
}

func (s *bufferedRowSink) Done(err error) { s.err = err }

// Rows returns the rows accumulated so far and the terminal error Done
// recorded, if any.
func (s *bufferedRowSink) Rows() ([][][]byte, error) { return s.rows, s.err }
