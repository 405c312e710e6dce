package oracle

import "testing"

func TestNewCapabilitiesDefaults(t *testing.T) {
	c := NewCapabilities()
	if c.MaxStringSize != 32767 {
		t.Fatalf("expected default max_string_size 32767, got %d", c.MaxStringSize)
	}
	if c.NCharsetID != NCharsetUTF16 {
		t.Fatalf("expected ncharset %d, got %d", NCharsetUTF16, c.NCharsetID)
	}
}

func TestAdjustForServerCapabilitiesSelectsSmallMaxString(t *testing.T) {
	c := NewCapabilities()
	var serverCompile [TNSCCAPMax]uint8
	var serverRuntime [TNSRCAPMax]uint8
	// TTC3 byte without the TTC3TTC32K bit set.
	serverRuntime[rcapTTC3] = TTC3BigChunkCLR

	c.AdjustForServerCapabilities(serverCompile, serverRuntime)
	if c.MaxStringSize != 4000 {
		t.Fatalf("expected max_string_size 4000 without TTC_32K, got %d", c.MaxStringSize)
	}
	if c.RuntimeCaps != serverRuntime {
		t.Fatal("expected RuntimeCaps to be overwritten by server's vector")
	}
}

func TestAdjustForServerCapabilitiesKeepsMinimumFieldVersion(t *testing.T) {
	c := NewCapabilities()
	c.CompileCaps[ccapFieldVersion] = 10

	var serverCompile [TNSCCAPMax]uint8
	serverCompile[ccapFieldVersion] = 6
	var serverRuntime [TNSRCAPMax]uint8

	c.AdjustForServerCapabilities(serverCompile, serverRuntime)
	if c.TTCFieldVersion != 6 {
		t.Fatalf("expected min(10,6)=6, got %d", c.TTCFieldVersion)
	}
}

func TestUsesExtendedFieldVersion(t *testing.T) {
	var caps [TNSCCAPMax]uint8
	if usesExtendedFieldVersion(caps) {
		t.Fatal("expected false for zeroed capability vector")
	}
	caps[ccapFieldVersionExt] = ccapFieldVersionExtBit
	if !usesExtendedFieldVersion(caps) {
		t.Fatal("expected true once the extension bit is set")
	}
}
