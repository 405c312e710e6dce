package oracle

// Action is what a state machine hands back to the Request Dispatcher
// after processing an event, instead of the state machine calling back
// into connection I/O itself: transitions return a closed Action value,
// and the dispatcher is the only thing that touches the socket.
type Action struct {
	Kind ActionKind

	// Send is the payload to hand to the transport when Kind is
	// ActionSendPacket or ActionSendPackets.
	Send  []byte
	Sends [][]byte

	// Err is populated for ActionFail.
	Err error

	// Done carries the final value for ActionComplete: a *Statement
	// finishing EXECUTE, a *Connection finishing logon, etc. The
	// dispatcher type-asserts it based on which sub-state-machine
	// produced the Action.
	Done interface{}
}

// ActionKind closes the set of things a state machine may ask the
// dispatcher to do.
type ActionKind int

const (
	// ActionNone means the event was consumed with no externally visible
	// effect (e.g. an intermediate message in a multi-message reply).
	ActionNone ActionKind = iota
	// ActionSendPacket asks the dispatcher to write Send on the wire.
	ActionSendPacket
	// ActionSendPackets asks the dispatcher to write Sends in order.
	ActionSendPackets
	// ActionWaitForMore means the state machine needs more bytes before
	// it can make progress; the dispatcher keeps reading.
	ActionWaitForMore
	// ActionComplete means the state machine reached a terminal state for
	// the current operation; Done carries the result.
	ActionComplete
	// ActionFail means the operation failed; Err carries the reason. A
	// failure that isOperationalErr (dispatcher.go) classifies as
	// operational tears down the whole Connection rather than just the
	// issuing task.
	ActionFail
)

func actionSend(b []byte) Action { return Action{Kind: ActionSendPacket, Send: b} }

func actionSendAll(bs [][]byte) Action { return Action{Kind: ActionSendPackets, Sends: bs} }

func actionWait() Action { return Action{Kind: ActionWaitForMore} }

func actionComplete(done interface{}) Action { return Action{Kind: ActionComplete, Done: done} }

func actionFail(err error) Action { return Action{Kind: ActionFail, Err: err} }
