package oracle

import (
	"context"
	"sync"
	"time"
)

// PingResult is the outcome of one connectivity probe against a connect
// descriptor.
type PingResult struct {
	Descriptor   string
	Success      bool
	Error        string
	Duration     time.Duration
	ServerBanner string
}

// Monitor fans a ping out across many connect descriptors concurrently
// and collects results, adapted from zgrab2 scanner.go's Monitor/
// statusesChan pattern (one result channel, a WaitGroup closing it) to
// this driver's connect-and-logoff probe instead of a banner-grab scan.
type Monitor struct {
	results chan PingResult
	wg      sync.WaitGroup
}

// NewMonitor creates a Monitor with room for concurrent results.
func NewMonitor() *Monitor {
	return &Monitor{results: make(chan PingResult, 64)}
}

// Ping dials descriptor, completes the logon handshake with credential,
// logs off, and records the outcome. It is safe to call concurrently;
// each call runs in its own goroutine tracked by the Monitor's
// WaitGroup.
func (m *Monitor) Ping(ctx context.Context, label string, descriptor *Description, wallet *WalletConfig, credential Credential) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		start := time.Now()
		conn := NewConnection(descriptor, wallet, credential, nil)
		res := PingResult{Descriptor: label}
		defer func() { res.Duration = time.Since(start); m.results <- res }()

		if err := conn.Dial(ctx); err != nil {
			res.Error = err.Error()
			return
		}
		defer conn.Close()

		d := NewDispatcher(conn, nil)
		done := make(chan error, 1)
		go func() { done <- d.Run(ctx, 30*time.Second) }()

		deadline := time.Now().Add(30 * time.Second)
		for conn.State() != StateReadyForRequest && conn.State() != StateClosed {
			if time.Now().After(deadline) {
				res.Error = "timed out waiting for logon"
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		if conn.State() == StateClosed {
			res.Error = "connection closed before logon completed"
			return
		}
		res.Success = true
		res.ServerBanner = conn.serverBanner
		switch a := conn.Logoff(); a.Kind {
		case ActionSendPacket:
			if _, err := conn.Write(a.Send); err != nil {
				res.Error = err.Error()
			}
		case ActionFail:
			res.Error = a.Err.Error()
		}
	}()
}

// Wait blocks until every submitted Ping completes, then closes the
// results channel.
func (m *Monitor) Wait() {
	m.wg.Wait()
	close(m.results)
}

// Results returns the channel results are delivered on; drain it after
// calling Wait (or concurrently, since it is buffered).
func (m *Monitor) Results() <-chan PingResult { return m.results }
