package oracle

import "sync"

// ConnectionCookie caches a prior successful handshake's negotiated
// state so a later connection to the same server can skip PROTOCOL and
// DATA_TYPES.
type ConnectionCookie struct {
	ProtocolVersion uint16
	ServerBanner    []byte
	CharsetID       uint16
	NCharsetID      uint16
	Flags           uint8
	CompileCaps     [TNSCCAPMax]uint8
	RuntimeCaps     [TNSRCAPMax]uint8
}

type cookieKey struct {
	serverUUID string
	service    string
}

// cookieCache is the one process-wide mutable structure this package
// keeps; every access goes through the mutex, and the public surface is
// deliberately narrow (get/set only).
type cookieCache struct {
	mu      sync.RWMutex
	entries map[cookieKey]*ConnectionCookie
}

var globalCookieCache = &cookieCache{entries: make(map[cookieKey]*ConnectionCookie)}

// LookupConnectionCookie returns the cached cookie for (serverUUID,
// service), or nil if none is cached.
func LookupConnectionCookie(serverUUID, service string) *ConnectionCookie {
	globalCookieCache.mu.RLock()
	defer globalCookieCache.mu.RUnlock()
	return globalCookieCache.entries[cookieKey{serverUUID, service}]
}

// StoreConnectionCookie records a cookie after a successful handshake.
func StoreConnectionCookie(serverUUID, service string, c *ConnectionCookie) {
	globalCookieCache.mu.Lock()
	defer globalCookieCache.mu.Unlock()
	globalCookieCache.entries[cookieKey{serverUUID, service}] = c
}
