// Package oracle implements the wire-protocol core of a native,
// non-blocking Oracle Database client driver.
//
// The driver speaks TNS (Transparent Network Substrate) framing and TTC
// (Two-Task Common) messages directly; no Oracle-supplied native
// libraries are linked. This package owns packet framing, the
// connection-establishment and statement-execution state machines, and
// the single-connection request dispatcher. Row/column value decoding,
// LOB content I/O, connection pooling and the public error surface are
// left to callers — see Capabilities, RowSink and RowSource for the
// seams.
package oracle
