package webusb

import "testing"

func TestParseBOSHappyPath(t *testing.T) {
	bos := []byte{
		0x05, 0x0F, 0x4C, 0x00, 0x03,
		// Container ID (20 bytes), type 0x04 — must be skipped.
		0x14, 0x10, 0x04, 0x00,
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
		// WebUSB Platform Capability (24 bytes).
		0x18, 0x10, 0x05, 0x00,
		0x38, 0xB6, 0x08, 0x34, 0xA9, 0x09, 0xA0, 0x47,
		0x8B, 0xFD, 0xA0, 0x76, 0x88, 0x15, 0xB6, 0x65,
		0x00, 0x01, 0x42, 0x01,
		// Microsoft OS 2.0 (28 bytes), type 0x05 with a different UUID — skipped.
		0x1C, 0x10, 0x05, 0x00,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	vendorCode, landingPageID, ok := ParseBOS(bos)
	if !ok {
		t.Fatalf("expected ok")
	}
	if vendorCode != 0x42 || landingPageID != 0x01 {
		t.Fatalf("got (%#x, %#x), want (0x42, 0x01)", vendorCode, landingPageID)
	}
}

func TestParseBOSTooShort(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4} {
		if _, _, ok := ParseBOS(make([]byte, n)); ok {
			t.Fatalf("len=%d: expected absent", n)
		}
	}
}

func TestParseBOSUUIDMismatchSkips(t *testing.T) {
	bos := []byte{0x05, 0x0F, 0x1D, 0x00, 0x01}
	cap := make([]byte, 24)
	cap[0] = 24
	cap[1] = deviceCapabilityDescType
	cap[2] = platformDevCapabilityType
	copy(cap[4:20], make([]byte, 16)) // all zero, differs from WebUSB UUID
	cap[20], cap[21] = 0x00, 0x01
	bos = append(bos, cap...)

	if _, _, ok := ParseBOS(bos); ok {
		t.Fatalf("expected absent for UUID mismatch")
	}
}

func TestParseBOSVersionBoundary(t *testing.T) {
	build := func(bcdVersion uint16) []byte {
		cap := make([]byte, 24)
		cap[0] = 24
		cap[1] = deviceCapabilityDescType
		cap[2] = platformDevCapabilityType
		copy(cap[4:20], webUSBCapabilityUUID[:])
		cap[20] = byte(bcdVersion)
		cap[21] = byte(bcdVersion >> 8)
		cap[22] = 0x7
		cap[23] = 0x9
		header := []byte{0x05, 0x0F, byte(5 + len(cap)), 0x00, 0x01}
		return append(header, cap...)
	}

	if _, _, ok := ParseBOS(build(0x00FF)); ok {
		t.Fatalf("bcdVersion 0x00FF should be skipped")
	}
	vendorCode, landingPageID, ok := ParseBOS(build(0x0100))
	if !ok || vendorCode != 0x7 || landingPageID != 0x9 {
		t.Fatalf("bcdVersion 0x0100 should be accepted, got (%#x, %#x, %v)", vendorCode, landingPageID, ok)
	}
}

func TestParseWebUSBURLHappyPath(t *testing.T) {
	payload := "example.com/index.html"
	b := append([]byte{byte(3 + len(payload)), 0x03, 0x01}, []byte(payload)...)
	url, ok := ParseWebUSBURL(b)
	if !ok {
		t.Fatalf("expected ok")
	}
	want := "https://example.com/index.html"
	if url != want {
		t.Fatalf("got %q, want %q", url, want)
	}
}

func TestParseWebUSBURLBadScheme(t *testing.T) {
	b := []byte{0x04, 0x03, 0x02, 'x'}
	if _, ok := ParseWebUSBURL(b); ok {
		t.Fatalf("expected absent for unknown scheme byte")
	}
}

func TestParseWebUSBURLNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0xFF},
		{0x03, 0x03},
		{0x00, 0x00, 0x00},
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("ParseWebUSBURL(%v) panicked: %v", in, r)
				}
			}()
			ParseWebUSBURL(in)
		}()
	}
}

func TestParseBOSNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x05},
		{0x05, 0x0F, 0xFF, 0xFF, 0xFF},
		{0x05, 0x0F, 0x05, 0x00, 0x01, 0xFF},
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("ParseBOS(%v) panicked: %v", in, r)
				}
			}()
			ParseBOS(in)
		}()
	}
}
