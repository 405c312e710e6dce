package oracle

// TNSMaxCursorsToClose bounds how many cursor IDs a single piggyback
// CLOSE_CURSORS call may carry.
const TNSMaxCursorsToClose = 500

// CleanupContext accumulates cursor/LOB cleanup that piggybacks onto the
// next outgoing call instead of each Close triggering its own round
// trip, the way zgrab2's scanner.go batches result writes rather than
// flushing per-probe.
type CleanupContext struct {
	CursorsToClose    []uint16
	TempLOBsToClose   [][]byte // LOB locators
	TempLOBsTotalSize uint64

	DRCPSessionRelease bool
}

// AddCursor records cursorID for piggyback close, dropping the oldest
// entry once TNSMaxCursorsToClose is reached rather than growing
// unbounded. A dropped cursor ID is discarded; no later flush closes it.
func (c *CleanupContext) AddCursor(cursorID uint16) {
	if len(c.CursorsToClose) >= TNSMaxCursorsToClose {
		c.CursorsToClose = c.CursorsToClose[1:]
	}
	c.CursorsToClose = append(c.CursorsToClose, cursorID)
}

// AddTempLOB records a temporary LOB locator pending a free call.
func (c *CleanupContext) AddTempLOB(locator []byte) {
	c.TempLOBsToClose = append(c.TempLOBsToClose, locator)
	c.TempLOBsTotalSize += uint64(len(locator))
}

// Flush encodes the accumulated cleanup as a PIGGYBACK message body and
// clears the context. Returns nil if there is nothing to flush.
func (c *CleanupContext) Flush() []byte {
	if len(c.CursorsToClose) == 0 && len(c.TempLOBsToClose) == 0 && !c.DRCPSessionRelease {
		return nil
	}
	body := []byte{byte(MessageTypePiggyback), 0x04} // CLOSE_CURSORS opcode
	body = appendUB2(body, uint16(len(c.CursorsToClose)))
	for _, id := range c.CursorsToClose {
		body = appendUB2(body, id)
	}
	body = appendUB2(body, uint16(len(c.TempLOBsToClose)))
	for _, loc := range c.TempLOBsToClose {
		body = appendLengthPrefixed(body, loc)
	}
	if c.DRCPSessionRelease {
		body = append(body, 1)
	} else {
		body = append(body, 0)
	}
	c.CursorsToClose = nil
	c.TempLOBsToClose = nil
	c.TempLOBsTotalSize = 0
	c.DRCPSessionRelease = false
	return body
}
