package oracle

// executePhase is the Statement-local state machine driven through
// PARSE -> BIND -> EXECUTE -> (DESCRIBE) -> FETCH* -> done, separate
// from the Connection's logon state machine and from the Request
// Dispatcher that multiplexes many Statements.
type executePhase int

const (
	phaseIdle executePhase = iota
	phaseAwaitingExecuteReply
	phaseAwaitingDescribe
	phaseAwaitingFetchReply
	phaseDone
)

// executeFunctionCode is the OFETCH/OEXEC TTC function byte sent in the
// leading FUNCTION message of an EXECUTE call.
const executeFunctionCode = 0x5E
const fetchFunctionCode = 0x05

// StatementExecution drives one Statement through its wire dialogue. It
// is created fresh per EXECUTE call (a Statement can be re-executed many
// times; each execution gets its own StatementExecution while reusing
// the Statement's cached Describe/CursorID).
type StatementExecution struct {
	stmt    *Statement
	opts    ExecuteOptions
	sink    RowSink
	buffer  *AdaptiveRowBuffer
	phase   executePhase
	cleanup *CleanupContext

	rowsFetched     int
	moreRowsToFetch bool
	batchErrs       []BatchError
}

// NewExecution starts a new execution of stmt with opts, streaming rows
// into sink (nil is fine for DML/DDL/PL-SQL that produce no rows).
func NewExecution(stmt *Statement, opts ExecuteOptions, sink RowSink, cleanup *CleanupContext) *StatementExecution {
	if stmt.rowBuffer == nil {
		stmt.rowBuffer = NewAdaptiveRowBuffer()
	}
	if sink == nil {
		sink = newBufferedRowSink(0)
	}
	return &StatementExecution{
		stmt:    stmt,
		opts:    opts,
		sink:    sink,
		buffer:  stmt.rowBuffer,
		cleanup: cleanup,
	}
}

// Start encodes and returns the initial EXECUTE packet.
func (e *StatementExecution) Start(protocolVersion uint16) Action {
	if err := e.stmt.preExecute(e.cleanup); err != nil {
		return actionFail(err)
	}
	body := e.buildExecuteBody()
	if piggy := e.cleanup.Flush(); piggy != nil {
		pkt1 := &Packet{Header: PacketHeader{Type: PacketTypeData}, Payload: piggy}
		pkt2 := &Packet{Header: PacketHeader{Type: PacketTypeData}, DataFlags: DataFlagsEndOfRequest, Payload: body}
		e.phase = phaseAwaitingExecuteReply
		return actionSendAll([][]byte{pkt1.Encode(protocolVersion), pkt2.Encode(protocolVersion)})
	}
	pkt := &Packet{Header: PacketHeader{Type: PacketTypeData}, DataFlags: DataFlagsEndOfRequest, Payload: body}
	e.phase = phaseAwaitingExecuteReply
	return actionSend(pkt.Encode(protocolVersion))
}

func (e *StatementExecution) buildExecuteBody() []byte {
	opts := e.opts
	if e.stmt.requiresFullExecute {
		// A changed bind shape invalidates the previously parsed cursor
		// layout; force a re-PARSE alongside BIND+EXECUTE.
		opts.Parse = true
	}
	body := []byte{byte(MessageTypeFunction), executeFunctionCode}
	body = appendUB2(body, e.stmt.CursorID)
	body = appendUB2(body, uint16(len(e.stmt.SQL)))
	body = appendLengthPrefixed(body, []byte(e.stmt.SQL))
	body = appendUB4(body, executeOptionFlags(opts))
	body = appendUB4(body, uint32(numRowsFor(e.opts)))
	body = appendUB2(body, uint16(len(e.stmt.Binds)))
	for _, v := range e.stmt.Values {
		body = appendLengthPrefixed(body, v.Value)
	}
	return body
}

func numRowsFor(opts ExecuteOptions) int {
	if opts.NumRows > 0 {
		return opts.NumRows
	}
	return 1
}

// executeOptionFlags packs ExecuteOptions into the EXECUTE call's option
// bitmask.
func executeOptionFlags(o ExecuteOptions) uint32 {
	var f uint32
	if o.Parse {
		f |= 0x01
	}
	if o.Execute {
		f |= 0x20
	}
	if o.Fetch {
		f |= 0x40
	}
	if o.Describe {
		f |= 0x10
	}
	if o.AutoCommit {
		f |= 0x100
	}
	if o.BatchErrors {
		f |= 0x8000
	}
	if o.ArrayDMLRowCount {
		f |= 0x10000
	}
	return f
}

// HandleMessages advances the execution with messages decoded from one
// reassembled DATA payload.
func (e *StatementExecution) HandleMessages(messages []Message, protocolVersion uint16) Action {
	for _, m := range messages {
		switch msg := m.(type) {
		case *ErrorMessage:
			return e.handleError(msg, protocolVersion)
		case *DescribeInfoMessage:
			e.stmt.Describe = &DescribeInfo{Columns: msg.Columns}
			e.phase = phaseAwaitingFetchReply
		case *RowHeaderMessage:
			// column layout confirmed via cached Describe; nothing to do.
		case *RowDataMessage:
			if e.sink != nil {
				if !e.sink.Offer(msg.Columns) {
					e.buffer.Backoff()
				}
				e.rowsFetched++
			}
		case *ImplicitResultsetMessage:
			// Nested cursor: caller retrieves it via its own CursorID;
			// not expanded automatically.
		case *FlushOutBindsMessage:
			e.stmt.pendingOutBinds = append(e.stmt.pendingOutBinds, msg.Values...)
		case *StatusMessage:
			e.moreRowsToFetch = msg.CallStatus&callStatusMoreRowsToFetch != 0
		}
	}
	return Action{Kind: ActionNone}
}

func (e *StatementExecution) handleError(em *ErrorMessage, protocolVersion uint16) Action {
	if em.RetCode == 0 {
		if e.moreRowsToFetch {
			e.moreRowsToFetch = false
			return e.ContinueFetch(protocolVersion)
		}
		e.phase = phaseDone
		if e.sink != nil {
			e.sink.Done(nil)
		}
		if e.cleanup != nil && e.stmt.Kind == StatementDDL {
			// DDL cursors are never re-executed or re-fetched; dispose
			// the cursor as soon as the call completes instead of
			// waiting for an explicit Close.
			e.cleanup.AddCursor(e.stmt.CursorID)
		}
		return actionComplete(e)
	}
	err := &Error{Kind: KindServer, Message: em.ErrorMsg, Number: int(em.RetCode), CursorID: em.CursorID, RowCount: em.RowCount, Position: int(em.SQLPosition)}
	if e.opts.BatchErrors {
		e.batchErrs = append(e.batchErrs, BatchError{Row: len(e.batchErrs), Err: err})
		return Action{Kind: ActionNone}
	}
	e.phase = phaseDone
	if e.sink != nil {
		e.sink.Done(err)
	}
	// The dispatcher decides from err.Number whether the failure also
	// tears down the connection.
	return actionFail(err)
}

// ContinueFetch builds the next FETCH call using the adaptive buffer's
// current target, growing it back up after a round trip that fully
// satisfied demand.
func (e *StatementExecution) ContinueFetch(protocolVersion uint16) Action {
	if e.rowsFetched >= e.buffer.Target() {
		e.buffer.GrowUp()
	}
	body := []byte{byte(MessageTypeFunction), fetchFunctionCode}
	body = appendUB2(body, e.stmt.CursorID)
	body = appendUB4(body, uint32(e.buffer.Target()))
	e.rowsFetched = 0
	e.phase = phaseAwaitingFetchReply
	pkt := &Packet{Header: PacketHeader{Type: PacketTypeData}, DataFlags: DataFlagsEndOfRequest, Payload: body}
	return actionSend(pkt.Encode(protocolVersion))
}

// BatchErrors returns the per-row failures accumulated under
// ExecuteOptions.BatchErrors (ORA-24381 semantics).
func (e *StatementExecution) BatchErrors() []BatchError { return e.batchErrs }

// Close deposits the statement's cursor into the Cleanup Context for a
// deferred piggyback close. Callers that will not re-execute the same
// Statement invoke this once they are done with it; a cancelled
// execution is disposed the same way by the dispatcher.
func (e *StatementExecution) Close() {
	if e.cleanup != nil {
		e.cleanup.AddCursor(e.stmt.CursorID)
	}
}

// BufferedRows returns the rows accumulated by the default in-memory
// sink NewExecution installs when the caller passes a nil RowSink, or
// ok=false when the caller supplied its own RowSink instead.
func (e *StatementExecution) BufferedRows() (rows [][][]byte, err error, ok bool) {
	b, ok := e.sink.(*bufferedRowSink)
	if !ok {
		return nil, nil, false
	}
	rows, err = b.Rows()
	return rows, err, true
}

// NextFetchSize implements RowSource: the adaptive buffer's current
// target array size for the next FETCH round trip.
func (e *StatementExecution) NextFetchSize() int { return e.buffer.Target() }

// Columns implements RowSource: the cached column projection, or nil
// before DESCRIBE_INFO has arrived.
func (e *StatementExecution) Columns() []OracleColumn {
	if e.stmt.Describe == nil {
		return nil
	}
	return e.stmt.Describe.Columns
}
