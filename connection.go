package oracle

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectionState enumerates the Connection state machine's states.
// Transitions are driven by Connection.HandlePacket and Connection.Dial.
// Sending CONNECT and receiving ACCEPT and PROTOCOL are logged at debug
// level, the way zgrab2's scanner.go logs each module's Grab phases;
// setState itself does not log.
type ConnectionState int

const (
	StateInitialized ConnectionState = iota
	StateConnectSent
	StateRenegotiatingTLS
	StateProtocolSent
	StateDataTypesSent
	StateWaitingToStartAuthentication
	StateAuthenticating
	StateReadyForRequest
	StateReadyToLogOff
	StateLoggingOff
	StateClosing
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateConnectSent:
		return "ConnectSent"
	case StateRenegotiatingTLS:
		return "RenegotiatingTLS"
	case StateProtocolSent:
		return "ProtocolSent"
	case StateDataTypesSent:
		return "DataTypesSent"
	case StateWaitingToStartAuthentication:
		return "WaitingToStartAuthentication"
	case StateAuthenticating:
		return "Authenticating"
	case StateReadyForRequest:
		return "ReadyForRequest"
	case StateReadyToLogOff:
		return "ReadyToLogOff"
	case StateLoggingOff:
		return "LoggingOff"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Connection ties together the connect descriptor, TLS wallet, cookie
// cache, capability negotiation, and authentication dialogue into a
// single stateful handshake. It does not itself own the socket read
// loop; that belongs to the Request Dispatcher
// (dispatcher.go), which calls HandlePacket for every packet the
// transport hands it and executes the Actions this type returns.
type Connection struct {
	stateVal atomic.Int32

	conn net.Conn

	descriptor *Description
	wallet     *WalletConfig
	credential Credential

	caps   *Capabilities
	codec  *Codec
	cookie *ConnectionCookie

	serverUUID    string
	serverBanner  string
	serverRelease ReleaseVersion

	authSessionID  int
	authSerialNum  int
	verifierParams authVerifierParams

	log *logrus.Entry
}

// NewConnection constructs a Connection for descriptor, authenticating
// with credential once the handshake reaches WaitingToStartAuthentication.
// wallet may be nil when descriptor.UsesTLS() is false.
func NewConnection(descriptor *Description, wallet *WalletConfig, credential Credential, log *logrus.Entry) *Connection {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Connection{
		descriptor: descriptor,
		wallet:     wallet,
		credential: credential,
		caps:       NewCapabilities(),
		codec:      NewCodec(TNSVersionDesired),
		log:        log,
	}
}

// State returns the current ConnectionState.
func (c *Connection) State() ConnectionState { return ConnectionState(c.stateVal.Load()) }

func (c *Connection) setState(s ConnectionState) { c.stateVal.Store(int32(s)) }

// Dial opens the transport and sends the CONNECT packet, the way
// zgrab2's scanner.go Grab dials before sending its first probe frame.
// It returns once CONNECT has been written; the caller feeds subsequent
// bytes through HandlePacket.
func (c *Connection) Dial(ctx context.Context) error {
	if len(c.descriptor.Addresses) == 0 {
		return newError(KindMissingParameter, "connect descriptor has no addresses")
	}
	addr := c.descriptor.Addresses[0]
	target := fmt.Sprintf("%s:%d", addr.Host, addr.Port)

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return newError(KindConnection, "dial %s: %v", target, err)
	}

	if c.descriptor.UsesTLS() {
		if c.wallet == nil {
			raw.Close()
			return newError(KindFailedToAddSSLHandler, "descriptor requires tcps but no wallet configured")
		}
		tlsCfg, err := c.wallet.BuildTLSConfig()
		if err != nil {
			raw.Close()
			return err
		}
		if err := defaultRenegotiationLimiter.acquire(ctx); err != nil {
			raw.Close()
			return newError(KindConnection, "tls renegotiation limiter: %v", err)
		}
		defer defaultRenegotiationLimiter.release()
		c.setState(StateRenegotiatingTLS)
		tlsConn := tls.Client(raw, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return newError(KindFailedToVerifyTLSCertificates, "tls handshake: %v", err)
		}
		c.conn = tlsConn
	} else {
		c.conn = raw
	}

	connectData, err := c.descriptor.Build()
	if err != nil {
		return err
	}

	service := c.descriptor.ServiceName
	if service == "" {
		service = c.descriptor.SID
	}
	if cached := LookupConnectionCookie(c.serverUUID, service); cached != nil {
		c.cookie = cached
	}

	pkt := &Packet{
		Header:  PacketHeader{Type: PacketTypeConnect},
		Payload: []byte(connectData),
	}
	if _, err := c.conn.Write(pkt.Encode(TNSVersionDesired)); err != nil {
		return newError(KindConnection, "writing connect packet: %v", err)
	}
	c.log.WithField("state", c.State()).Debug("sent CONNECT")
	c.setState(StateConnectSent)
	return nil
}

// HandlePacket advances the state machine with one non-DATA packet
// (ACCEPT/REFUSE/REDIRECT/RESEND/MARKER/CONTROL) or one reassembled DATA
// payload already split into Messages by the Dispatcher via
// SplitMessages. Exactly one of pkt/messages is non-nil per call.
func (c *Connection) HandlePacket(pkt *Packet, messages []Message) Action {
	if pkt != nil {
		return c.handleRawPacket(pkt)
	}
	return c.handleMessages(messages)
}

func (c *Connection) handleRawPacket(pkt *Packet) Action {
	switch pkt.Header.Type {
	case PacketTypeAccept:
		return c.handleAccept(pkt)
	case PacketTypeRefuse:
		c.setState(StateClosed)
		return actionFail(newError(KindConnection, "server refused connection: %s", string(pkt.Payload)))
	case PacketTypeRedirect:
		c.setState(StateClosed)
		return actionFail(newError(KindConnection, "redirect not followed automatically: %s", string(pkt.Payload)))
	case PacketTypeResend:
		// Idempotent re-send of the last CONNECT payload.
		connectData, err := c.descriptor.Build()
		if err != nil {
			return actionFail(err)
		}
		resend := &Packet{Header: PacketHeader{Type: PacketTypeConnect}, Payload: []byte(connectData)}
		return actionSend(resend.Encode(TNSVersionDesired))
	default:
		return Action{Kind: ActionNone}
	}
}

func (c *Connection) handleAccept(pkt *Packet) Action {
	if len(pkt.Payload) < 2 {
		return actionFail(newError(KindMessageDecodingFailure, "truncated ACCEPT payload"))
	}
	r := newByteReader(pkt.Payload)
	versionBytes, _ := r.readBytes(2)
	serverVersion := uint16(versionBytes[0])<<8 | uint16(versionBytes[1])
	if serverVersion < TNSVersionMinAccepted {
		c.setState(StateClosed)
		return actionFail(newError(KindServerVersionNotSupported, "server protocol version %d below minimum %d", serverVersion, TNSVersionMinAccepted))
	}
	c.caps.ProtocolVersion = serverVersion
	c.codec.SetProtocolVersion(serverVersion)
	c.log.WithField("server_version", serverVersion).Debug("received ACCEPT")

	if c.cookie != nil && c.cookie.ProtocolVersion == serverVersion {
		// Cookie fast-path: skip PROTOCOL and DATA_TYPES.
		c.caps.CompileCaps = c.cookie.CompileCaps
		c.caps.RuntimeCaps = c.cookie.RuntimeCaps
		c.caps.CharsetID = c.cookie.CharsetID
		c.caps.NCharsetID = c.cookie.NCharsetID
		c.setState(StateWaitingToStartAuthentication)
		return c.sendLogonPhaseOne()
	}

	c.setState(StateProtocolSent)
	return actionSend(c.buildProtocolMessagePacket())
}

// clientReleaseVersion is the driver's own five-part release advertised
// to the server in the PROTOCOL reply.
var clientReleaseVersion = ReleaseVersion{Major: 21, Maintenance: 13}

// buildProtocolMessagePacket encodes the PROTOCOL (function 0x01) reply
// the client sends immediately after ACCEPT to announce its version and
// driver name.
func (c *Connection) buildProtocolMessagePacket() []byte {
	body := []byte{byte(MessageTypeProtocol), 6}
	body = appendLengthPrefixed(body, []byte("oracle-nio-sub000"))
	body = appendUB2(body, c.caps.CharsetID)
	body = append(body, 0) // client flags, unused
	body = appendUB4(body, EncodeReleaseVersion(clientReleaseVersion))
	pkt := &Packet{
		Header:    PacketHeader{Type: PacketTypeData},
		DataFlags: DataFlagsEndOfRequest,
		Payload:   body,
	}
	return pkt.Encode(c.caps.ProtocolVersion)
}

func (c *Connection) handleMessages(messages []Message) Action {
	for _, m := range messages {
		switch c.State() {
		case StateProtocolSent:
			if pm, ok := m.(*ProtocolMessage); ok {
				c.caps.AdjustForProtocol(pm.ServerVersion, false)
				c.serverBanner = pm.ServerBanner
				c.serverRelease = pm.ServerRelease
				c.log.WithField("server_release", pm.ServerRelease.String()).Debug("received PROTOCOL")
				c.setState(StateDataTypesSent)
				return actionSend(c.buildDataTypesPacket())
			}
		case StateDataTypesSent:
			if dt, ok := m.(*DataTypesMessage); ok {
				var serverCompile [TNSCCAPMax]uint8
				copy(serverCompile[:], dt.CompileCaps)
				var serverRuntime [TNSRCAPMax]uint8
				copy(serverRuntime[:], dt.RuntimeCaps)
				c.caps.AdjustForServerCapabilities(serverCompile, serverRuntime)
				c.serverUUID = dt.ServerUUID
				c.setState(StateWaitingToStartAuthentication)
				return c.sendLogonPhaseOne()
			}
		case StateAuthenticating:
			if pm, ok := m.(*ParameterMessage); ok {
				return c.handleAuthParameters(pm)
			}
			if em, ok := m.(*ErrorMessage); ok {
				return c.handleErrorMessage(em)
			}
		case StateWaitingToStartAuthentication:
			if em, ok := m.(*ErrorMessage); ok {
				return c.handleErrorMessage(em)
			}
		case StateLoggingOff:
			c.setState(StateClosed)
			return actionComplete(c)
		}
	}
	return Action{Kind: ActionNone}
}

// buildDataTypesPacket encodes the DATA_TYPES (function 0x02) message
// advertising compile/runtime capability vectors.
func (c *Connection) buildDataTypesPacket() []byte {
	body := []byte{byte(MessageTypeDataTypes)}
	body = append(body, c.caps.CompileCaps[:]...)
	body = append(body, c.caps.RuntimeCaps[:]...)
	pkt := &Packet{
		Header:    PacketHeader{Type: PacketTypeData},
		DataFlags: DataFlagsEndOfRequest,
		Payload:   body,
	}
	return pkt.Encode(c.caps.ProtocolVersion)
}

// sendLogonPhaseOne sends the phase-one OLOGON call: username and
// authentication-mode bits only, asking the server which verifier it
// wants to use.
func (c *Connection) sendLogonPhaseOne() Action {
	c.setState(StateAuthenticating)
	mode := AuthDefault | c.credential.Mode()
	body := []byte{byte(MessageTypeFunction), 0x73} // OLOGON function code
	body = appendUB4(body, uint32(mode))
	if u, ok := c.credential.(*PasswordCredential); ok {
		body = appendLengthPrefixed(body, []byte(u.Username))
	} else {
		body = appendLengthPrefixed(body, nil)
	}
	pkt := &Packet{
		Header:    PacketHeader{Type: PacketTypeData},
		DataFlags: DataFlagsEndOfRequest,
		Payload:   body,
	}
	return actionSend(pkt.Encode(c.caps.ProtocolVersion))
}

// handleAuthParameters consumes phase one's PARAMETER reply (verifier
// type, salt, nonce), derives the session key, and sends phase two.
func (c *Connection) handleAuthParameters(pm *ParameterMessage) Action {
	params := authVerifierParams{Type: Verifier12C}
	if salt, ok := pm.Params["AUTH_VFR_DATA"]; ok {
		params.Salt = salt
	}
	if nonce, ok := pm.Params["AUTH_SESSKEY"]; ok {
		params.Nonce = nonce
	}
	c.verifierParams = params

	pw, isPassword := c.credential.(*PasswordCredential)
	var sessionKey []byte
	var err error
	if isPassword {
		sessionKey, err = deriveSessionKey12c(pw.Password, params)
		if err != nil {
			return actionFail(err)
		}
	}
	encrypted, err := c.credential.EncryptedPassword(sessionKey)
	if err != nil {
		return actionFail(err)
	}

	body := []byte{byte(MessageTypeFunction), 0x73}
	body = appendUB4(body, uint32(AuthDefault|authMaskWithPassword|c.credential.Mode()))
	body = appendLengthPrefixed(body, encrypted)
	pkt := &Packet{
		Header:    PacketHeader{Type: PacketTypeData},
		DataFlags: DataFlagsEndOfRequest,
		Payload:   body,
	}
	return actionSend(pkt.Encode(c.caps.ProtocolVersion))
}

func (c *Connection) handleErrorMessage(em *ErrorMessage) Action {
	if em.RetCode == 0 {
		// Successful OSESSKEY/OLOGON ack with RetCode 0 terminates the
		// ERROR-message-as-acknowledgement idiom TTC uses for OK replies.
		c.setState(StateReadyForRequest)
		c.storeCookie()
		return actionComplete(c)
	}
	err := &Error{Kind: KindServer, Message: em.ErrorMsg, Number: int(em.RetCode), CursorID: em.CursorID, RowCount: em.RowCount, Position: int(em.SQLPosition)}
	if IsOperational(err.Number) {
		c.setState(StateClosed)
	}
	return actionFail(err)
}

func (c *Connection) storeCookie() {
	service := c.descriptor.ServiceName
	if service == "" {
		service = c.descriptor.SID
	}
	StoreConnectionCookie(c.serverUUID, service, &ConnectionCookie{
		ProtocolVersion: c.caps.ProtocolVersion,
		ServerBanner:    []byte(c.serverBanner),
		CharsetID:       c.caps.CharsetID,
		NCharsetID:      c.caps.NCharsetID,
		CompileCaps:     c.caps.CompileCaps,
		RuntimeCaps:     c.caps.RuntimeCaps,
	})
}

// Logoff starts the graceful shutdown dialogue (OLOGOFF).
func (c *Connection) Logoff() Action {
	if c.State() != StateReadyForRequest {
		return actionFail(newError(KindClientClosesConnection, "logoff requested from state %s", c.State()))
	}
	c.setState(StateLoggingOff)
	body := []byte{byte(MessageTypeFunction), 0x09} // OLOGOFF function code
	pkt := &Packet{
		Header:    PacketHeader{Type: PacketTypeData},
		DataFlags: DataFlagsEndOfRequest,
		Payload:   body,
	}
	return actionSend(pkt.Encode(c.caps.ProtocolVersion))
}

// Close tears down the transport unconditionally, the way a fatal
// operational error does.
func (c *Connection) Close() error {
	c.setState(StateClosed)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Write sends raw already-encoded packet bytes, used by the dispatcher
// for marker/cancellation traffic that bypasses the logon state machine.
func (c *Connection) Write(b []byte) (int, error) {
	return c.conn.Write(b)
}

// SetDeadline proxies to the underlying net.Conn, allowing the
// dispatcher to bound a single read the way zgrab2's scanner.go bounds
// each Grab phase with its configured timeout.
func (c *Connection) SetDeadline(t time.Time) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.SetDeadline(t)
}

// Codec exposes the packet/message reassembler for the dispatcher.
func (c *Connection) Codec() *Codec { return c.codec }

// Capabilities exposes the negotiated capability state, read-only once
// ReadyForRequest is reached.
func (c *Connection) Capabilities() *Capabilities { return c.caps }

// ServerRelease returns the server's release version decoded from its
// PROTOCOL reply, zero until StateDataTypesSent is reached.
func (c *Connection) ServerRelease() ReleaseVersion { return c.serverRelease }
