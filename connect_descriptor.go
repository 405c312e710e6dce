package oracle

import (
	"fmt"
	"strings"
)

// TNSMaxConnectData bounds the serialized DESCRIPTION string.
const TNSMaxConnectData = 2048

// Address is one (PROTOCOL, HOST, PORT) triple in a connect descriptor.
type Address struct {
	Protocol string // "tcp" or "tcps"
	Host     string
	Port     int
}

// Description is the parsed/buildable form of the connect descriptor
// grammar. It carries no CLI flag tags: it is built programmatically by
// an external collaborator and only ever serialized to the
// parenthesized DESCRIPTION string.
type Description struct {
	Addresses   []Address
	LoadBalance bool
	SourceRoute bool

	RetryCount            int
	RetryDelay            int
	ExpireTime            int
	ConnectTimeoutMillis  int

	ServiceName string
	SID         string
	Pooled      bool
	CID         ConnectIdentifier

	PoolConnectionClass string
	PoolPurity          int
	ConnectionID        string

	SSLServerDNMatch  bool
	SSLServerCertDN   string
	WalletDirectory   string
}

// ConnectIdentifier is the (PROGRAM, HOST, USER) client-identity triple
// sent in CID=(...).
type ConnectIdentifier struct {
	Program string
	Host    string
	User    string
}

// Pool purity values for DRCP (CONNECT_DATA POOL_PURITY=n).
const (
	PoolPuritySelf   = 1
	PoolPurityNew    = 2
)

// Build renders d as a parenthesized DESCRIPTION string. It returns an
// error if the result would exceed TNSMaxConnectData.
func (d *Description) Build() (string, error) {
	var b strings.Builder
	b.WriteString("(DESCRIPTION=")
	if d.LoadBalance {
		b.WriteString("(LOAD_BALANCE=ON)")
	}
	if d.SourceRoute {
		b.WriteString("(SOURCE_ROUTE=ON)")
	}
	if d.RetryCount > 0 {
		fmt.Fprintf(&b, "(RETRY_COUNT=%d)", d.RetryCount)
	}
	if d.RetryDelay > 0 {
		fmt.Fprintf(&b, "(RETRY_DELAY=%d)", d.RetryDelay)
	}
	if d.ExpireTime > 0 {
		fmt.Fprintf(&b, "(EXPIRE_TIME=%d)", d.ExpireTime)
	}
	if d.ConnectTimeoutMillis > 0 {
		fmt.Fprintf(&b, "(TRANSPORT_CONNECT_TIMEOUT=%dms)", d.ConnectTimeoutMillis)
	}
	if len(d.Addresses) == 0 {
		return "", newError(KindMissingParameter, "connect descriptor requires at least one ADDRESS")
	}
	for _, a := range d.Addresses {
		proto := a.Protocol
		if proto == "" {
			proto = "tcp"
		}
		fmt.Fprintf(&b, "(ADDRESS=(PROTOCOL=%s)(HOST=%s)(PORT=%d))", proto, a.Host, a.Port)
	}
	b.WriteString("(CONNECT_DATA=")
	switch {
	case d.ServiceName != "":
		fmt.Fprintf(&b, "(SERVICE_NAME=%s)", d.ServiceName)
	case d.SID != "":
		fmt.Fprintf(&b, "(SID=%s)", d.SID)
	default:
		return "", newError(KindSidNotSupported, "connect descriptor requires SERVICE_NAME or SID")
	}
	if d.Pooled {
		b.WriteString("(SERVER=pooled)")
	}
	if d.CID.Program != "" || d.CID.Host != "" || d.CID.User != "" {
		fmt.Fprintf(&b, "(CID=(PROGRAM=%s)(HOST=%s)(USER=%s))", d.CID.Program, d.CID.Host, d.CID.User)
	}
	if d.PoolConnectionClass != "" {
		fmt.Fprintf(&b, "(POOL_CONNECTION_CLASS=%s)", d.PoolConnectionClass)
	}
	if d.PoolPurity != 0 {
		fmt.Fprintf(&b, "(POOL_PURITY=%d)", d.PoolPurity)
	}
	if d.ConnectionID != "" {
		fmt.Fprintf(&b, "(CONNECTION_ID=%s)", d.ConnectionID)
	}
	b.WriteString(")") // close CONNECT_DATA
	if d.SSLServerDNMatch || d.SSLServerCertDN != "" || d.WalletDirectory != "" {
		b.WriteString("(SECURITY=")
		if d.SSLServerDNMatch {
			b.WriteString("(SSL_SERVER_DN_MATCH=ON)")
		}
		if d.SSLServerCertDN != "" {
			fmt.Fprintf(&b, "(SSL_SERVER_CERT_DN=%s)", d.SSLServerCertDN)
		}
		if d.WalletDirectory != "" {
			fmt.Fprintf(&b, "(MY_WALLET_DIRECTORY=%s)", d.WalletDirectory)
		}
		b.WriteString(")")
	}
	b.WriteString(")") // close DESCRIPTION
	out := b.String()
	if len(out) > TNSMaxConnectData {
		return "", newError(KindMalformedQuery, "connect descriptor exceeds %d characters (%d)", TNSMaxConnectData, len(out))
	}
	return out, nil
}

// UsesTLS reports whether every configured address uses tcps.
func (d *Description) UsesTLS() bool {
	for _, a := range d.Addresses {
		if !strings.EqualFold(a.Protocol, "tcps") {
			return false
		}
	}
	return len(d.Addresses) > 0
}
