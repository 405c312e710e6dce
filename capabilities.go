package oracle

// Capability vector sizes.
const (
	TNSCCAPMax = 31
	TNSRCAPMax = 15
)

// Compile-capability bit positions the client advertises at connect
// time. Indices match the historical TTC layout; only a named subset of
// bits gets symbolic names, the rest of the vector is left zero.
const (
	ccapSQLVersion          = 0
	ccapLogonTypes          = 4
	ccapFieldVersion        = 6
	ccapFieldVersionExt     = 14 // index of the extended field-version byte
	ccapFieldVersionExtBit  = 0x01
)

// Logon-type bits packed into the compile-capability logon-types byte.
const (
	LogonO5Logon             uint8 = 0x01
	LogonO5LogonNP           uint8 = 0x02
	LogonO7Logon             uint8 = 0x08
	LogonO8LogonLongIdentifier uint8 = 0x20
)

// Runtime-capability (TTC) feature bits, spread across the TTC1..TTC4
// bytes. Only the named subset is modeled; unnamed bits stay zero both
// ways.
const (
	rcapTTC1 = 6
	rcapTTC2 = 7
	rcapTTC3 = 8
	rcapTTC4 = 9
)

const (
	TTC1IndRcd           uint8 = 0x01
	TTC2FastBVec         uint8 = 0x02
	TTC2EndOfCallStatus  uint8 = 0x04
	TTC2ImplicitResults  uint8 = 0x08
	TTC3BigChunkCLR      uint8 = 0x01
	TTC3KeepOutOrder     uint8 = 0x02
	TTC4ZLNP             uint8 = 0x01
	TTC4InbandNotif      uint8 = 0x02
	TTC4DRCP             uint8 = 0x04
	TTC4LobUB8Size       uint8 = 0x08
	TTC3TTC32K           uint8 = 0x20 // TTC_32K bit, selects 32767-byte max_string_size
)

// Capabilities holds the negotiated protocol state. It is mutated only
// during the early handshake states of the Connection state machine and
// is read-only afterwards.
type Capabilities struct {
	ProtocolVersion uint16
	TTCFieldVersion uint8
	CharsetID       uint16 // client always advertises UTF-8
	NCharsetID      uint16 // must be the single supported UTF-16 variant

	CompileCaps [TNSCCAPMax]uint8
	RuntimeCaps [TNSRCAPMax]uint8

	SupportsOOB   bool
	MaxStringSize uint32 // 4000 or 32767
}

// NCharsetUTF16 is the single national character set this driver
// accepts.
const NCharsetUTF16 uint16 = 2002

// NewCapabilities populates compile-capabilities with the client's
// maximum claims.
func NewCapabilities() *Capabilities {
	c := &Capabilities{
		CharsetID:       873, // AL32UTF8
		NCharsetID:      NCharsetUTF16,
		ProtocolVersion: TNSVersionDesired,
	}
	c.CompileCaps[ccapLogonTypes] = LogonO5Logon | LogonO5LogonNP | LogonO7Logon | LogonO8LogonLongIdentifier
	c.RuntimeCaps[rcapTTC1] = TTC1IndRcd
	c.RuntimeCaps[rcapTTC2] = TTC2FastBVec | TTC2EndOfCallStatus | TTC2ImplicitResults
	c.RuntimeCaps[rcapTTC3] = TTC3BigChunkCLR | TTC3KeepOutOrder | TTC3TTC32K
	c.RuntimeCaps[rcapTTC4] = TTC4ZLNP | TTC4InbandNotif | TTC4DRCP | TTC4LobUB8Size
	c.MaxStringSize = 32767
	return c
}

// usesExtendedFieldVersion centralizes the TNS_CCAP_FIELD_VERSION_18_1_EXT_1
// discriminator in one predicate. The describe-info column decoder
// consults it; AdjustForServerCapabilities does not.
func usesExtendedFieldVersion(compileCaps [TNSCCAPMax]uint8) bool {
	return compileCaps[ccapFieldVersionExt]&ccapFieldVersionExtBit != 0
}

// AdjustForProtocol applies the server's PROTOCOL reply.
func (c *Capabilities) AdjustForProtocol(serverVersion uint8, supportsOOB bool) {
	c.SupportsOOB = supportsOOB
}

// AdjustForServerCapabilities applies the server's DATA_TYPES reply:
// field_version is the minimum of client and server claims, and
// max_string_size is picked from the runtime TTC bitmap.
func (c *Capabilities) AdjustForServerCapabilities(serverCompile [TNSCCAPMax]uint8, serverRuntime [TNSRCAPMax]uint8) {
	serverFieldVersion := serverCompile[ccapFieldVersion]
	if serverFieldVersion < c.CompileCaps[ccapFieldVersion] || c.CompileCaps[ccapFieldVersion] == 0 {
		c.TTCFieldVersion = serverFieldVersion
	} else {
		c.TTCFieldVersion = c.CompileCaps[ccapFieldVersion]
	}
	c.CompileCaps = serverCompile
	c.RuntimeCaps = serverRuntime

	if serverRuntime[rcapTTC3]&TTC3TTC32K != 0 {
		c.MaxStringSize = 32767
	} else {
		c.MaxStringSize = 4000
	}
}
