package oracle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// task is one Statement execution waiting its turn in the Dispatcher's
// FIFO queue. The Connection's own logon handshake runs outside the
// queue: HandlePacket is driven directly off incoming non-DATA packets
// regardless of whether a task is active, since logon must complete
// before any task can be submitted at all.
type task struct {
	exec *StatementExecution
	done chan Action
}

// Dispatcher is the single owner of a Connection's socket read loop:
// one FIFO task queue, message routing to whichever sub-state-machine
// is active, and piggyback cleanup assembly. Grounded on zgrab2
// scanner.go's RunScanner/Monitor pattern of one goroutine owning all
// mutable state and callers communicating only through channels.
type Dispatcher struct {
	conn    *Connection
	cleanup *CleanupContext
	marker  *markerState
	queue   chan *task
	log     *logrus.Entry

	active   *task
	breakAck chan struct{}
}

// cancelAckTimeout bounds how long cancelActive waits for the server's
// STATUS acknowledgement of a BREAK before sending RESET anyway, so a
// silent server cannot wedge the dispatcher on cancellation forever.
const cancelAckTimeout = 5 * time.Second

// NewDispatcher wraps an already-dialed Connection.
func NewDispatcher(conn *Connection, log *logrus.Entry) *Dispatcher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{
		conn:     conn,
		cleanup:  &CleanupContext{},
		marker:   &markerState{},
		queue:    make(chan *task, 64),
		log:      log,
		breakAck: make(chan struct{}, 1),
	}
}

// Submit enqueues a Statement execution and blocks until it completes or
// ctx is cancelled, returning the terminal Action (ActionComplete or
// ActionFail).
func (d *Dispatcher) Submit(ctx context.Context, exec *StatementExecution) Action {
	t := &task{exec: exec, done: make(chan Action, 1)}
	select {
	case d.queue <- t:
	case <-ctx.Done():
		return actionFail(newError(KindQueryCancelled, "submit cancelled: %v", ctx.Err()))
	}
	select {
	case a := <-t.done:
		return a
	case <-ctx.Done():
		if a := d.cancelActive(ctx); a.Kind == ActionWaitForMore {
			d.log.Debug("cancellation already in flight, waiting on the outstanding BREAK ack")
		}
		return actionFail(newError(KindQueryCancelled, "execution cancelled: %v", ctx.Err()))
	}
}

// cancelActive sends BREAK, waits (bounded by cancelAckTimeout) for the
// server's STATUS acknowledgement observed by Run via observeMarkerAck,
// then sends RESET to resynchronize the stream. It deposits the
// cancelled task's cursor into the Cleanup Context, since a cancelled
// statement is not trusted to be re-executed. Returns ActionWaitForMore
// if a BREAK was already outstanding, since this call piggybacks on
// another cancellation's wait instead of issuing its own.
func (d *Dispatcher) cancelActive(ctx context.Context) Action {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-d.breakAck:
	default:
	}
	alreadyOutstanding := d.marker.breakOutstanding
	if b := d.marker.RequestBreak(); b != nil {
		d.conn.Write(b)
	}
	if d.active != nil && d.active.exec != nil {
		d.cleanup.AddCursor(d.active.exec.stmt.CursorID)
	}
	select {
	case <-d.breakAck:
	case <-ctx.Done():
	case <-time.After(cancelAckTimeout):
	}
	if r := d.marker.RequestReset(); r != nil {
		d.conn.Write(r)
	}
	if alreadyOutstanding {
		return actionWait()
	}
	return Action{Kind: ActionNone}
}

// observeMarkerAck clears an outstanding BREAK once the server's STATUS
// reply arrives, unblocking cancelActive's RESET send.
func (d *Dispatcher) observeMarkerAck(msgs []Message) {
	if !d.marker.breakOutstanding {
		return
	}
	for _, m := range msgs {
		if _, ok := m.(*StatusMessage); ok {
			d.marker.Acknowledge()
			select {
			case d.breakAck <- struct{}{}:
			default:
			}
			return
		}
	}
}

// Run drives the dispatcher's read loop until ctx is cancelled or a
// fatal ActionFail tears the connection down. It is the single goroutine
// that ever calls Connection.HandlePacket or StatementExecution.HandleMessages.
func (d *Dispatcher) Run(ctx context.Context, readTimeout time.Duration) error {
	readBuf := make([]byte, 0, 32*1024)
	tmp := make([]byte, 16*1024)

	for {
		if d.active == nil {
			select {
			case t := <-d.queue:
				d.active = t
				a := t.exec.Start(d.conn.Capabilities().ProtocolVersion)
				if err := d.applyAction(a); err != nil {
					t.done <- actionFail(err)
					d.active = nil
					continue
				}
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if readTimeout > 0 {
			d.conn.SetDeadline(time.Now().Add(readTimeout))
		}
		n, err := d.conn.conn.Read(tmp)
		if err != nil {
			if d.active != nil {
				d.active.done <- actionFail(newError(KindUncleanShutdown, "read: %v", err))
				d.active = nil
			}
			return err
		}
		readBuf = append(readBuf, tmp[:n]...)

		result, consumed, err := d.conn.Codec().Feed(readBuf)
		if err != nil {
			if d.active != nil {
				d.active.done <- actionFail(err)
				d.active = nil
			}
			return err
		}
		readBuf = readBuf[consumed:]

		for _, pkt := range result.OtherPackets {
			a := d.conn.HandlePacket(pkt, nil)
			if d.dispatchConnectionAction(a) {
				return nil
			}
		}
		for _, payload := range result.DataPayloads {
			msgs, leftover, err := SplitMessages(payload)
			if err != nil {
				if d.active != nil {
					d.active.done <- actionFail(err)
					d.active = nil
				}
				continue
			}
			if leftover != nil && d.active != nil && d.active.exec != nil {
				var source RowSource = d.active.exec
				more, err := decodeStatementMessages(leftover, source.Columns(), d.conn.Capabilities().CompileCaps)
				if err != nil {
					d.active.done <- actionFail(err)
					d.active = nil
					continue
				}
				msgs = append(msgs, more...)
			}
			d.observeMarkerAck(msgs)
			var a Action
			if d.active != nil && d.active.exec != nil {
				a = d.active.exec.HandleMessages(msgs, d.conn.Capabilities().ProtocolVersion)
			} else {
				a = d.conn.HandlePacket(nil, msgs)
			}
			if d.dispatchConnectionAction(a) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// dispatchConnectionAction applies a returns Action against the current
// active task, returning true if Run should stop.
func (d *Dispatcher) dispatchConnectionAction(a Action) bool {
	switch a.Kind {
	case ActionNone:
		return false
	case ActionSendPacket, ActionSendPackets:
		if err := d.applyAction(a); err != nil {
			d.log.WithError(err).Warn("write failed")
			return true
		}
		return false
	case ActionComplete, ActionFail:
		if d.active != nil {
			d.active.done <- a
			d.active = nil
		}
		return a.Kind == ActionFail && a.Err != nil && isOperationalErr(a.Err)
	default:
		return false
	}
}

func isOperationalErr(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind != KindServer || IsOperational(e.Number)
	}
	return false
}

func (d *Dispatcher) applyAction(a Action) error {
	switch a.Kind {
	case ActionSendPacket:
		_, err := d.conn.Write(a.Send)
		return err
	case ActionSendPackets:
		for _, b := range a.Sends {
			if _, err := d.conn.Write(b); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
