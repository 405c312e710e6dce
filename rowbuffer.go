package oracle

// Adaptive row buffer sizing constants.
const (
	RowBufferMin           = 1
	RowBufferDefaultTarget = 256
	RowBufferMax           = 16384
)

// AdaptiveRowBuffer tracks the fetch array size between round trips,
// halving on backpressure and doubling back up as consumption keeps
// pace, the way SAP go-hdb's session.go paces bulk statement batches.
type AdaptiveRowBuffer struct {
	target int
}

// NewAdaptiveRowBuffer starts at RowBufferDefaultTarget, clamped to
// [RowBufferMin, RowBufferMax].
func NewAdaptiveRowBuffer() *AdaptiveRowBuffer {
	return &AdaptiveRowBuffer{target: RowBufferDefaultTarget}
}

// Target returns the current fetch array size to request.
func (b *AdaptiveRowBuffer) Target() int { return b.target }

// Backoff halves the target, floored at RowBufferMin, called when the
// consumer falls behind the fetch rate (a RowSink that cannot keep up).
func (b *AdaptiveRowBuffer) Backoff() {
	b.target /= 2
	if b.target < RowBufferMin {
		b.target = RowBufferMin
	}
}

// GrowUp doubles the target, capped at RowBufferMax, called when a fetch
// round trip fully drained the consumer's demand.
func (b *AdaptiveRowBuffer) GrowUp() {
	b.target *= 2
	if b.target > RowBufferMax {
		b.target = RowBufferMax
	}
}
