package oracle

import "fmt"

// ReleaseVersion is a decoded Oracle five-part version tuple, e.g.
// 19.16.0.0.0. Grounded on the encode/decode round trip exercised by
// zgrab2's modules/oracle test fixtures (EncodeReleaseVersion /
// NSNValueVersion), generalized to the TTC-era one-number packing
// instead of the old NSN bytes-per-field layout.
type ReleaseVersion struct {
	Major, Maintenance, AppServer, Component, Platform uint8
}

func (v ReleaseVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d", v.Major, v.Maintenance, v.AppServer, v.Component, v.Platform)
}

// EncodeReleaseVersion packs the tuple into the 32-bit form exchanged in
// the PROTOCOL message: Major in the top byte, Maintenance and AppServer
// in one 4-bit nibble each, Component and Platform in one byte each.
func EncodeReleaseVersion(v ReleaseVersion) uint32 {
	return uint32(v.Major)<<24 |
		uint32(v.Maintenance)<<20 |
		uint32(v.AppServer)<<16 |
		uint32(v.Component)<<8 |
		uint32(v.Platform)
}

// DecodeReleaseVersion reverses EncodeReleaseVersion for tuples whose
// Maintenance and AppServer values are below 16.
func DecodeReleaseVersion(packed uint32) ReleaseVersion {
	return ReleaseVersion{
		Major:       uint8(packed >> 24),
		Maintenance: uint8((packed >> 20) & 0xF),
		AppServer:   uint8((packed >> 16) & 0xF),
		Component:   uint8((packed >> 8) & 0xFF),
		Platform:    uint8(packed & 0xFF),
	}
}
